package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/DoubleTroublePy/weeelab/core/cardreader"
	coreerrors "github.com/DoubleTroublePy/weeelab/core/errors"
)

func (a *app) runLogin(ctx context.Context, query string) error {
	identity, err := a.resolve(ctx, query)
	if err != nil {
		return err
	}
	result, err := a.store.Login(identity.Username, a.clock.Now())
	if err != nil {
		return err
	}
	if result.Mutated {
		fmt.Fprintf(a.stdout, "Login successful! Hello %s!\n", identity.FullName)
	} else {
		fmt.Fprintf(a.stdout, "%s, you're already logged in.\n", identity.FullName)
	}
	if !identity.SignedPolicy {
		a.printPolicyBanner()
	}
	if result.WasFirstIn {
		if a.hooks.FirstInScript != "" {
			fmt.Fprintln(a.stdout, "You opened the lab, launching the \"first in\" script")
		}
		a.hooks.FirstIn(identity.Username)
	}
	return nil
}

// runInteractive drives the question-based login/logout loop: the operator
// types a name, an ID, a nickname, or swipes a badge, and keeps getting
// another chance until something works or they give up.
func (a *app) runInteractive(ctx context.Context, loggingIn bool) error {
	verb := "login"
	if !loggingIn {
		verb = "logout"
	}

	pending := ""
	for {
		query := pending
		pending = ""
		if query == "" {
			line, err := a.prompt.Ask(ctx,
				"Type your name.surname OR id OR nickname OR swipe the card on the reader:\n")
			if err != nil {
				fmt.Fprintf(a.stdout, "Interactive %s cancelled\n", verb)
				return err
			}
			query = strings.TrimSpace(line)
			if query == "" {
				continue
			}
			if badge, ok := cardreader.DecodeBadge(query); ok {
				if badge.Direction != "" {
					fmt.Fprintf(a.stdout, "Detected card swipe (%s) with ID %s\n", badge.Direction, badge.ID)
				} else {
					fmt.Fprintf(a.stdout, "Detected card swipe with ID %s\n", badge.ID)
				}
				query = badge.ID
			}
		}

		var err error
		if loggingIn {
			err = a.runLogin(ctx, query)
		} else {
			err = a.runLogout(ctx, query, "")
		}
		if err == nil {
			a.interactiveGoodbye(ctx)
			return nil
		}
		if errors.Is(err, errInterrupted) {
			fmt.Fprintf(a.stdout, "Interactive %s cancelled\n", verb)
			return err
		}

		switch coreerrors.CategoryOf(err) {
		case coreerrors.CategoryDirectoryUnavailable:
			retryQuery, askErr := a.askDirectoryFallback(ctx, query)
			if askErr != nil {
				fmt.Fprintf(a.stdout, "Interactive %s cancelled\n", verb)
				return askErr
			}
			pending = retryQuery
		case coreerrors.CategoryIdentityNotFound, coreerrors.CategoryIdentityAmbiguous,
			coreerrors.CategoryNoOpenSession:
			fmt.Fprintln(a.stdout, a.styles.warn.Render(err.Error()))
			if hint := coreerrors.HintOf(err); hint != "" {
				fmt.Fprintln(a.stdout, hint)
			}
		default:
			return err
		}
	}
}

// askDirectoryFallback handles an unreachable directory mid-loop: retry the
// same query, or flip the lookup off and trust the typed name.
func (a *app) askDirectoryFallback(ctx context.Context, query string) (string, error) {
	fmt.Fprintln(a.stdout, "Hmmm... the network or the directory server has some problems.")
	for {
		choice, err := a.prompt.Ask(ctx, "Type R to retry or D to disable the directory lookup: [R/D] ")
		if err != nil {
			return "", err
		}
		switch strings.ToUpper(strings.TrimSpace(choice)) {
		case "R":
			return query, nil
		case "D":
			a.useDirectory = false
			return query, nil
		}
	}
}

// interactiveGoodbye keeps the window readable on the lab terminal, where
// the shell closes as soon as the program exits.
func (a *app) interactiveGoodbye(ctx context.Context) {
	if !stdinIsTerminal() {
		return
	}
	_, _ = a.prompt.Ask(ctx, "Press enter to exit\n")
}
