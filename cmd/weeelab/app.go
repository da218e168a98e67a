package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/DoubleTroublePy/weeelab/core/clock"
	"github.com/DoubleTroublePy/weeelab/core/config"
	"github.com/DoubleTroublePy/weeelab/core/directory"
	"github.com/DoubleTroublePy/weeelab/core/hooks"
	"github.com/DoubleTroublePy/weeelab/core/ledger"
)

// app bundles the collaborators every action needs. All state a single
// invocation mutates lives here, never in package globals.
type app struct {
	config config.Config
	store  *ledger.Store
	clock  clock.Clock
	hooks  *hooks.Runner
	prompt *prompter
	styles styles
	stdout io.Writer
	stderr io.Writer

	// useDirectory may flip to false mid-run when the operator chooses
	// to continue without the directory service.
	useDirectory   bool
	warnedNoLookup bool
}

func newApp(configuration config.Config, selected options, stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{
		config: configuration,
		store: ledger.NewStore(configuration.LedgerPath(), ledger.StoreOptions{
			LockRetryInterval: configuration.LockRetryInterval(),
		}),
		clock: clock.Real(),
		hooks: &hooks.Runner{
			FirstInScript: configuration.FirstInScript,
			LastOutScript: configuration.LastOutScript,
			Warnings:      stderr,
		},
		prompt:       newPrompter(stdin, stdout),
		styles:       newStyles(stdout),
		stdout:       stdout,
		stderr:       stderr,
		useDirectory: selected.useDirectory && configuration.DirectoryConfigured(),
	}
}

func (a *app) dispatch(ctx context.Context, chosen action, selected options) error {
	switch chosen.name {
	case "login":
		return a.runLogin(ctx, selected.login)
	case "logout":
		return a.runLogout(ctx, selected.logout, selected.message)
	case "interactive-login":
		return a.runInteractive(ctx, true)
	case "interactive-logout":
		return a.runInteractive(ctx, false)
	case "inlab":
		return a.runInlab()
	case "log":
		return a.runShowLog()
	case "admin":
		return a.runAdmin(ctx)
	case "doctor":
		return a.runDoctor()
	default:
		return fmt.Errorf("unknown action %q", chosen.name)
	}
}

// resolve turns the operator's input into a canonical identity, through the
// directory when enabled and as a trusted literal otherwise.
func (a *app) resolve(ctx context.Context, query string) (directory.Identity, error) {
	if a.useDirectory {
		resolver := &directory.LDAPResolver{
			Server:     a.config.DirectoryServer,
			BindDN:     a.config.DirectoryBindDN,
			Password:   a.config.DirectoryPassword,
			SearchBase: a.config.DirectorySearch,
		}
		return resolver.Resolve(ctx, query)
	}
	if !a.warnedNoLookup {
		a.warnedNoLookup = true
		fmt.Fprintln(a.stdout, a.styles.warn.Render(
			"WARNING: directory lookup is off, make sure this is the real username and not an alias"))
	}
	return directory.Passthrough{}.Resolve(ctx, query)
}

func (a *app) printPolicyBanner() {
	fmt.Fprintln(a.stdout, renderPolicyBanner(a.styles))
}

// validNote enforces the logout note rules shared by every path that
// collects one.
func (a *app) validNote(note string) error {
	note = strings.TrimSpace(note)
	if note == "" {
		return fmt.Errorf("the logout note must not be empty")
	}
	if len(note) > a.config.Tunables.MaxNoteLength {
		return fmt.Errorf("the logout note must stay under %d characters", a.config.Tunables.MaxNoteLength)
	}
	if strings.ContainsAny(note, "\n\r") {
		return fmt.Errorf("the logout note must fit on one line")
	}
	return nil
}
