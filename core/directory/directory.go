// Package directory resolves free-form user queries (bare numeric IDs,
// prefixed IDs, usernames, or nicknames) into canonical identities through
// a remote directory service. The ledger never stores anything but the
// canonical username; everything else here is presentation and policy.
package directory

import (
	"context"
	"errors"
	"strings"
)

// Identity is the canonical result of a successful lookup.
type Identity struct {
	Username  string
	FullName  string
	FirstName string

	// SignedPolicy reports whether the person has signed the lab safety
	// policy form; a false value triggers a reminder at login.
	SignedPolicy bool
}

var (
	// ErrNotFound means no directory entry matched the query.
	ErrNotFound = errors.New("identity not found")

	// ErrAmbiguous means more than one entry matched.
	ErrAmbiguous = errors.New("identity ambiguous")

	// ErrUnavailable means the directory service could not be reached.
	// Callers may retry or fall back to unauthenticated operation.
	ErrUnavailable = errors.New("directory unavailable")
)

// Resolver turns a free-form query into an Identity, or one of the sentinel
// errors above.
type Resolver interface {
	Resolve(ctx context.Context, query string) (Identity, error)
}

// Matricolize normalizes an ID-style query: bare digits gain the student
// prefix ("123456" becomes "s123456"), an existing s/S/d/D prefix with
// digits passes through, and anything else is not an ID at all.
func Matricolize(query string) (string, bool) {
	if query == "" {
		return "", false
	}
	if isDigits(query) {
		return "s" + query, true
	}
	if len(query) > 1 && strings.ContainsRune("sSdD", rune(query[0])) && isDigits(query[1:]) {
		return query, true
	}
	return "", false
}

func isDigits(text string) bool {
	if text == "" {
		return false
	}
	for _, character := range text {
		if character < '0' || character > '9' {
			return false
		}
	}
	return true
}

// Passthrough is the no-lookup resolver: the query is trusted as the
// canonical username. Used when the directory is disabled or unreachable
// and the operator chose to continue without it.
type Passthrough struct{}

func (Passthrough) Resolve(_ context.Context, query string) (Identity, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return Identity{}, ErrNotFound
	}
	return Identity{
		Username:     trimmed,
		FullName:     trimmed,
		FirstName:    trimmed,
		SignedPolicy: true,
	}, nil
}
