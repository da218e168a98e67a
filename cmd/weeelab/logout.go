package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/DoubleTroublePy/weeelab/core/directory"
	coreerrors "github.com/DoubleTroublePy/weeelab/core/errors"
	"github.com/DoubleTroublePy/weeelab/core/ledger"
)

func (a *app) runLogout(ctx context.Context, query, note string) error {
	query = strings.TrimSpace(query)

	// The ledger stores canonical usernames, so try the literal query
	// before paying for a directory round trip. Aliases and IDs only
	// work through the lookup.
	identity := directory.Identity{Username: query, FullName: query, SignedPolicy: true}
	open, err := a.store.IsOpenSession(query)
	if err != nil {
		return err
	}
	if !open {
		if !a.useDirectory {
			return coreerrors.Wrap(
				fmt.Errorf("you aren't in the lab; aliases and IDs do not work without the directory"),
				coreerrors.CategoryNoOpenSession, "no_open_session",
				"did you forget to log in?", false)
		}
		identity, err = a.resolve(ctx, query)
		if err != nil {
			return err
		}
	}

	if note == "" {
		note, err = a.askNote(ctx)
		if err != nil {
			return err
		}
	} else if err := a.validNote(note); err != nil {
		return coreerrors.Wrap(err, coreerrors.CategoryInvalidInput, "invalid_note", "", false)
	}

	result, err := a.store.Logout(ctx, identity.Username, a.clock.Now(), strings.TrimSpace(note))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Logout successful! Bye %s!\n", identity.FullName)
	if !identity.SignedPolicy {
		a.printPolicyBanner()
	}
	if result.WasLastOut {
		if a.hooks.LastOutScript != "" {
			fmt.Fprintln(a.stdout, "You closed the lab, launching the \"last out\" script")
		}
		a.hooks.LastOut(identity.Username)
	}
	return nil
}

// askNote collects the what-did-you-do line, insisting until it gets a
// usable one.
func (a *app) askNote(ctx context.Context) (string, error) {
	for {
		note, err := a.prompt.Ask(ctx, "What have you done?\n:: ")
		if err != nil {
			return "", err
		}
		note = strings.TrimSpace(note)
		if validationErr := a.validNote(note); validationErr != nil {
			fmt.Fprintln(a.stdout, validationErr.Error())
			continue
		}
		return note, nil
	}
}

// runAdmin closes a session at an explicit, possibly past, date and time.
// Used when someone forgot to log out and an administrator fixes the ledger
// after the fact.
func (a *app) runAdmin(ctx context.Context) error {
	username, err := a.prompt.Ask(ctx, "ADMIN--> insert username: ")
	if err != nil {
		return err
	}
	username = strings.TrimSpace(username)

	date, err := a.prompt.Ask(ctx, "ADMIN--> insert date (dd/mm/yyyy): ")
	if err != nil {
		return err
	}
	hour, err := a.prompt.Ask(ctx, "ADMIN--> insert time (hh:mm): ")
	if err != nil {
		return err
	}
	logoutTime, err := parseManualTimestamp(strings.TrimSpace(date), strings.TrimSpace(hour))
	if err != nil {
		return err
	}

	note, err := a.askNote(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "ADMIN--> the ledger will be updated with:\n    %s %s %s\n",
		username, strings.TrimSpace(date), strings.TrimSpace(hour))
	answer, err := a.prompt.Ask(ctx, "ADMIN--> are you sure? (y/n) ")
	if err != nil {
		return err
	}
	if strings.ToLower(strings.TrimSpace(answer)) != "y" {
		fmt.Fprintln(a.stdout, "ADMIN--> aborted, ledger untouched")
		return nil
	}

	closed, err := a.store.CloseOpenSession(ctx, username, logoutTime, note)
	if err != nil {
		return err
	}
	if !closed {
		return coreerrors.Wrap(
			fmt.Errorf("update failed: %s has no open session", username),
			coreerrors.CategoryNoOpenSession, "no_open_session", "", false)
	}
	fmt.Fprintln(a.stdout, "ADMIN--> update succeeded")
	return nil
}

// parseManualTimestamp validates the admin-typed date and time in the exact
// shape the ledger uses. Local validation happens before any ledger access.
func parseManualTimestamp(date, hour string) (time.Time, error) {
	parsed, err := time.ParseInLocation(ledger.TimeLayout, date+" "+hour, time.Local)
	if err != nil {
		return time.Time{}, coreerrors.Wrap(
			fmt.Errorf("invalid date or time: want dd/mm/yyyy and hh:mm, got %q %q", date, hour),
			coreerrors.CategoryInvalidInput, "malformed_timestamp", "", false)
	}
	return parsed, nil
}
