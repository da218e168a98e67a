package main

import (
	"fmt"
	"os"

	coreerrors "github.com/DoubleTroublePy/weeelab/core/errors"
)

// runInlab lists who currently has an open session, in ledger order.
func (a *app) runInlab() error {
	records, err := a.store.OpenSessions()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Reading the ledger...\n\n")
	for _, record := range records {
		fmt.Fprintf(a.stdout, "> %s\n", record.Username)
	}
	switch len(records) {
	case 0:
		fmt.Fprintln(a.stdout, "Nobody is in the lab right now.")
	case 1:
		fmt.Fprintln(a.stdout, "There is one person in the lab right now.")
	default:
		fmt.Fprintf(a.stdout, "There are %d people in the lab right now.\n", len(records))
	}
	return nil
}

// runShowLog prints the ledger verbatim. The file is the interface; no
// reformatting.
func (a *app) runShowLog() error {
	content, err := os.ReadFile(a.store.Path())
	if err != nil {
		return coreerrors.Wrap(fmt.Errorf("read ledger: %w", err),
			coreerrors.CategoryIOFailure, "ledger_read_failed", "", false)
	}
	_, err = a.stdout.Write(content)
	return err
}
