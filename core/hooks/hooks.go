// Package hooks runs the optional lab automation scripts: one when the first
// person of the day walks in, one when the last person walks out. Scripts are
// fire-and-forget; the ledger operation that triggered them has already
// committed and must not wait on, or fail because of, a script.
package hooks

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Runner launches the configured scripts. Either path may be empty, which
// disables that hook.
type Runner struct {
	FirstInScript string
	LastOutScript string

	// Warnings receives human-readable notes about skipped hooks. A nil
	// writer discards them.
	Warnings io.Writer
}

// FirstIn fires the first-person-in hook, passing the username that opened
// the lab.
func (r *Runner) FirstIn(username string) {
	r.spawn(r.FirstInScript, username)
}

// LastOut fires the last-person-out hook.
func (r *Runner) LastOut(username string) {
	r.spawn(r.LastOutScript, username)
}

// spawn starts the script detached and forgets about it. A configured but
// missing script is worth a warning; a start failure too. Neither is an
// error for the caller.
func (r *Runner) spawn(path, username string) {
	path = strings.TrimSpace(path)
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		r.warnf("hook script %s is configured but not runnable: %v", path, err)
		return
	}
	command := exec.Command(path, username)
	command.Stdout = nil
	command.Stderr = nil
	if err := command.Start(); err != nil {
		r.warnf("hook script %s failed to start: %v", path, err)
		return
	}
	// Detach so the script outlives this process.
	if err := command.Process.Release(); err != nil {
		r.warnf("hook script %s could not be released: %v", path, err)
	}
}

func (r *Runner) warnf(format string, arguments ...any) {
	if r.Warnings == nil {
		return
	}
	fmt.Fprintf(r.Warnings, format+"\n", arguments...)
}
