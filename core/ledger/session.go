package ledger

import (
	"context"
	"fmt"
	"time"

	coreerrors "github.com/DoubleTroublePy/weeelab/core/errors"
)

// LoginResult is returned by Login instead of process-wide flags: callers
// decide what to do about a first arrival (hook scripts, messages) from the
// value itself.
type LoginResult struct {
	// Mutated is false when username already had an open session and the
	// ledger was left untouched.
	Mutated bool

	// WasFirstIn is true when the lab was empty before this login.
	WasFirstIn bool
}

// LogoutResult mirrors LoginResult for the closing side.
type LogoutResult struct {
	Mutated bool

	// WasLastOut is true when this logout closed the only open session.
	WasLastOut bool
}

// Login appends an open session for username unless one already exists.
// Uniqueness of open sessions is enforced here, not by the storage layer.
func (s *Store) Login(username string, loginTime time.Time) (LoginResult, error) {
	openCount, err := s.OpenSessionCount()
	if err != nil {
		return LoginResult{}, err
	}
	alreadyIn, err := s.IsOpenSession(username)
	if err != nil {
		return LoginResult{}, err
	}
	if alreadyIn {
		return LoginResult{}, nil
	}
	if err := s.AppendOpenSession(username, loginTime); err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Mutated: true, WasFirstIn: openCount == 0}, nil
}

// Logout closes username's open session. A username with no open session is
// an operation failure, reported as a no_open_session error with the ledger
// left byte-identical.
func (s *Store) Logout(ctx context.Context, username string, logoutTime time.Time, note string) (LogoutResult, error) {
	openCount, err := s.OpenSessionCount()
	if err != nil {
		return LogoutResult{}, err
	}
	closed, err := s.CloseOpenSession(ctx, username, logoutTime, note)
	if err != nil {
		return LogoutResult{}, err
	}
	if !closed {
		return LogoutResult{}, coreerrors.Wrap(
			fmt.Errorf("no open session for %s", username),
			coreerrors.CategoryNoOpenSession, "no_open_session",
			"the user is not in the lab; check for a forgotten login", false)
	}
	return LogoutResult{Mutated: true, WasLastOut: openCount == 1}, nil
}
