package main

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// styles holds the few decorations the terminal uses. The renderer is bound
// to the actual output writer, so colors degrade on dumb terminals and in
// tests without any flag plumbing.
type styles struct {
	warn   lipgloss.Style
	banner lipgloss.Style
	detail lipgloss.Style
	pass   lipgloss.Style
	fail   lipgloss.Style
}

func newStyles(output io.Writer) styles {
	renderer := lipgloss.NewRenderer(output, termenv.WithColorCache(true))
	return styles{
		warn: renderer.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		banner: renderer.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("1")).
			Bold(true).
			Padding(1, 4).
			Align(lipgloss.Center),
		detail: renderer.NewStyle().Foreground(lipgloss.Color("1")),
		pass:   renderer.NewStyle().Foreground(lipgloss.Color("2")),
		fail:   renderer.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
}

// renderPolicyBanner nags whoever has not signed the lab safety form yet.
// Loud on purpose; the form matters more than the scrollback.
func renderPolicyBanner(s styles) string {
	var b strings.Builder
	b.WriteString(s.banner.Render("SIGN THE SIR!"))
	b.WriteString("\n")
	b.WriteString(s.detail.Render(
		"This is mandatory: 4 signatures on a boring form.\n" +
			"Ask someone in the lab or on Telegram to provide it."))
	return b.String()
}
