package ledger

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/DoubleTroublePy/weeelab/core/clock"
	coreerrors "github.com/DoubleTroublePy/weeelab/core/errors"
	"github.com/DoubleTroublePy/weeelab/core/fsx"
	"github.com/DoubleTroublePy/weeelab/core/lockfile"
)

const ledgerFileMode = 0o644

type StoreOptions struct {
	// LockRetryInterval overrides the rewrite lock's retry interval.
	LockRetryInterval time.Duration

	// Clock drives the lock retry sleep. Nil means the real clock.
	Clock clock.Clock
}

// Store owns one ledger file. Appends and scans are lock-free; rewrites are
// serialized across processes through a sibling ".lock" marker. A scan that
// races a rewrite may observe the pre-rewrite state; that weak consistency
// is an accepted property of the ledger, not something the Store hides.
type Store struct {
	path string
	lock *lockfile.Lock
}

func NewStore(path string, options StoreOptions) *Store {
	return &Store{
		path: path,
		lock: lockfile.ForFile(path, lockfile.Options{
			RetryInterval: options.LockRetryInterval,
			Clock:         options.Clock,
		}),
	}
}

// Path returns the ledger file path.
func (s *Store) Path() string {
	return s.path
}

// LockPath returns the rewrite lock marker path.
func (s *Store) LockPath() string {
	return s.lock.Path()
}

// Entry pairs a raw ledger line with its decoded record. OK is false for
// non-conforming lines, which carry only Raw.
type Entry struct {
	Raw    string
	Record Record
	OK     bool
}

// AppendOpenSession appends one open record for username. It never checks
// for an existing open session; callers enforce uniqueness through
// IsOpenSession before appending.
func (s *Store) AppendOpenSession(username string, loginTime time.Time) error {
	if err := validateUsername(username); err != nil {
		return err
	}
	record := Record{Login: loginTime, Username: username}
	if err := fsx.AppendLine(s.path, []byte(record.Line()), ledgerFileMode); err != nil {
		return coreerrors.Wrap(err, coreerrors.CategoryIOFailure, "ledger_append_failed",
			"check the ledger directory and its permissions", false)
	}
	return nil
}

// ScanAll reads every ledger line in file order. It takes no lock and can
// be restarted at any time; each call rereads the file.
func (s *Store) ScanAll() ([]Entry, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CategoryIOFailure, "ledger_read_failed",
			"check that the ledger file exists and is readable", false)
	}
	rawLines := splitKeepingLineEnds(string(content))
	entries := make([]Entry, 0, len(rawLines))
	for _, rawLine := range rawLines {
		text := strings.TrimSuffix(rawLine, "\n")
		record, ok := ParseLine(text)
		entries = append(entries, Entry{Raw: text, Record: record, OK: ok})
	}
	return entries, nil
}

// CloseOpenSession closes the first open record for username in file order,
// replacing its sentinel fields with logoutTime, the computed duration, and
// the note, then rewrites the whole file atomically with every other line
// byte-identical. It returns false, with no mutation, when no open record
// for username exists.
//
// The read and the rewrite both happen under the cross-process lock, so two
// concurrent closes cannot lose each other's update. The call blocks without
// bound while another process holds the lock; cancel ctx to give up.
func (s *Store) CloseOpenSession(ctx context.Context, username string, logoutTime time.Time, note string) (bool, error) {
	if err := validateUsername(username); err != nil {
		return false, err
	}
	if strings.ContainsRune(note, '\n') {
		return false, coreerrors.Wrap(fmt.Errorf("note must be a single line"),
			coreerrors.CategoryInvalidInput, "note_multiline", "remove line breaks from the note", false)
	}

	found := false
	err := s.lock.WithLock(ctx, func() error {
		content, err := os.ReadFile(s.path)
		if err != nil {
			return coreerrors.Wrap(err, coreerrors.CategoryIOFailure, "ledger_read_failed",
				"check that the ledger file exists and is readable", false)
		}
		rawLines := splitKeepingLineEnds(string(content))

		var rewritten strings.Builder
		rewritten.Grow(len(content) + len(note) + len(noteSeparator))
		for _, rawLine := range rawLines {
			if found {
				rewritten.WriteString(rawLine)
				continue
			}
			text := strings.TrimSuffix(rawLine, "\n")
			record, ok := ParseLine(text)
			if !ok || !record.Open() || record.Username != username {
				rewritten.WriteString(rawLine)
				continue
			}
			found = true
			record.Logout = logoutTime
			record.Minutes = DurationMinutes(record.Login, logoutTime)
			record.Note = note
			rewritten.WriteString(record.Line())
			if strings.HasSuffix(rawLine, "\n") {
				rewritten.WriteByte('\n')
			}
		}
		if !found {
			// No mutation: leave the file untouched and release the lock.
			return nil
		}
		if err := fsx.WriteFileAtomic(s.path, []byte(rewritten.String()), ledgerFileMode); err != nil {
			return coreerrors.Wrap(err, coreerrors.CategoryIOFailure, "ledger_rewrite_failed",
				"check the ledger directory and its permissions", false)
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return false, coreerrors.Wrap(err, coreerrors.CategoryStateContention, "lock_wait_cancelled",
				"another process holds the ledger lock; remove a stale .lock marker if none is running", true)
		}
		return false, err
	}
	return found, nil
}

func validateUsername(username string) error {
	if username == "" || strings.ContainsAny(username, ">\n") {
		return coreerrors.Wrap(fmt.Errorf("invalid username %q", username),
			coreerrors.CategoryInvalidInput, "username_invalid",
			"usernames must be non-empty and free of '>' and line breaks", false)
	}
	return nil
}

// splitKeepingLineEnds splits content into lines that keep their trailing
// newline, so a rewrite can reproduce the file byte for byte, including a
// possibly missing final newline.
func splitKeepingLineEnds(content string) []string {
	if content == "" {
		return nil
	}
	var lines []string
	for len(content) > 0 {
		newline := strings.IndexByte(content, '\n')
		if newline < 0 {
			lines = append(lines, content)
			break
		}
		lines = append(lines, content[:newline+1])
		content = content[newline+1:]
	}
	return lines
}
