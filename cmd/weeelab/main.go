// Command weeelab is the lab attendance terminal: it appends logins to the
// plain-text ledger, closes sessions on logout, and answers who is in the
// lab right now. The ledger file stays human-readable and hand-editable;
// everything this program writes, a person with a text editor could too.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/DoubleTroublePy/weeelab/core/config"
	coreerrors "github.com/DoubleTroublePy/weeelab/core/errors"
	"github.com/DoubleTroublePy/weeelab/core/ops"
	"github.com/DoubleTroublePy/weeelab/core/rotation"
)

// version is stamped at release time via ldflags; default stays dev for local builds.
var version = "4.0.0-dev"

const (
	exitOK              = 0
	exitOperationFailed = 3
	exitInterrupted     = 5
	exitRootRefused     = 42
	exitUnknownAction   = 69
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(arguments []string, stdin io.Reader, stdout, stderr io.Writer) int {
	// Everyone shares the lab terminal under an unprivileged account;
	// a root-owned ledger would break it for all of them.
	if os.Geteuid() == 0 {
		fmt.Fprintln(stderr, "weeelab: refusing to run as root")
		return exitRootRefused
	}

	selected, err := parseOptions(arguments, stderr)
	if err != nil {
		if errors.Is(err, errHelpRequested) {
			return exitOK
		}
		fmt.Fprintf(stderr, "weeelab: %v\n", err)
		return exitUnknownAction
	}
	if selected.version {
		fmt.Fprintln(stdout, "weeelab", version)
		return exitOK
	}
	action, err := selected.action()
	if err != nil {
		fmt.Fprintf(stderr, "weeelab: %v\n", err)
		return exitUnknownAction
	}

	configuration, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "weeelab: %v\n", err)
		return exitOperationFailed
	}
	if selected.debug {
		configuration.LedgerDir = "./debug"
		fmt.Fprintln(stdout, "Debug mode: using ./debug as the ledger directory")
	}
	if err := ensureLedgerFile(configuration, stdout); err != nil {
		fmt.Fprintf(stderr, "weeelab: %v\n", err)
		return exitOperationFailed
	}
	if archive, err := rotation.MaybeRotate(configuration.LedgerPath(), rotation.Options{}); err != nil {
		fmt.Fprintf(stderr, "weeelab: ledger rotation: %v\n", err)
		return exitOperationFailed
	} else if archive != nil {
		fmt.Fprintf(stdout, "Backed up the ledger to %s and started a fresh one\n",
			filepath.Base(archive.Path))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	startedAt := time.Now()
	writeOpsEvent(configuration, stderr,
		ops.NewStartEvent(action.name, version, startedAt.UTC()))

	application := newApp(configuration, selected, stdin, stdout, stderr)
	runErr := application.dispatch(ctx, action, selected)
	exitCode := exitCodeForError(runErr)
	reportError(stderr, runErr)

	writeOpsEvent(configuration, stderr, ops.NewEndEvent(
		action.name, version, exitCode,
		opsErrorCategory(runErr), coreerrors.RetryableOf(runErr),
		time.Since(startedAt), time.Now().UTC()))
	return exitCode
}

// ensureLedgerFile creates an empty ledger when the file is missing. A
// missing directory is an operator problem, not something to paper over.
func ensureLedgerFile(configuration config.Config, stdout io.Writer) error {
	info, err := os.Stat(configuration.LedgerDir)
	if err != nil {
		return coreerrors.Wrap(
			fmt.Errorf("ledger directory %s is not reachable: %w", configuration.LedgerDir, err),
			coreerrors.CategoryIOFailure, "ledger_directory_missing",
			"check LOG_PATH in the environment or .env", false)
	}
	if !info.IsDir() {
		return coreerrors.Wrap(
			fmt.Errorf("%s is not a directory", configuration.LedgerDir),
			coreerrors.CategoryIOFailure, "ledger_directory_missing",
			"check LOG_PATH in the environment or .env", false)
	}
	path := configuration.LedgerPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	fmt.Fprintf(stdout, "Creating empty %s\n", filepath.Base(path))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return coreerrors.Wrap(fmt.Errorf("create ledger: %w", err),
			coreerrors.CategoryIOFailure, "ledger_create_failed", "", false)
	}
	return file.Close()
}

func exitCodeForError(err error) int {
	if err == nil {
		return exitOK
	}
	if errors.Is(err, errInterrupted) {
		return exitInterrupted
	}
	return exitOperationFailed
}

func reportError(stderr io.Writer, err error) {
	if err == nil || errors.Is(err, errInterrupted) {
		return
	}
	fmt.Fprintf(stderr, "weeelab: %v\n", err)
	if hint := coreerrors.HintOf(err); hint != "" {
		fmt.Fprintf(stderr, "weeelab: hint: %s\n", hint)
	}
}

func opsErrorCategory(err error) string {
	if err == nil {
		return "none"
	}
	if errors.Is(err, errInterrupted) {
		// A cancelled prompt is the operator changing their mind, not a fault.
		return "none"
	}
	if category := coreerrors.CategoryOf(err); category != "" {
		return string(category)
	}
	return string(coreerrors.CategoryInternalFailure)
}

// writeOpsEvent is best-effort: a broken ops log must never change the
// outcome of the invocation that tried to record it.
func writeOpsEvent(configuration config.Config, stderr io.Writer, event ops.Event) {
	path := strings.TrimSpace(configuration.OpsLogPath())
	if path == "" {
		return
	}
	if err := ops.AppendEvent(path, event); err != nil {
		fmt.Fprintf(stderr, "weeelab: warning: ops log write failed: %v\n", err)
	}
}
