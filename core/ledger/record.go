// Package ledger implements the shared lab-attendance ledger: the session
// record line codec, the append/scan/rewrite store, and the read-only
// queries derived from it.
//
// The ledger is a single UTF-8 text file, one record per line:
//
//	[DD/MM/YYYY HH:MM] [DD/MM/YYYY HH:MM|----------------] [HH:MM|INLAB] <username>[ :: note]
//
// An open session carries the 16-dash logout sentinel and the INLAB status
// sentinel. Lines that do not match the grammar are not records: every
// query ignores them and every rewrite copies them through byte for byte.
package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// TimeLayout is the timestamp layout used for both login and logout
	// fields, always 16 bytes wide.
	TimeLayout = "02/01/2006 15:04"

	// LogoutSentinel fills the logout field while the session is open.
	LogoutSentinel = "----------------"

	// StatusSentinel fills the duration field while the session is open.
	StatusSentinel = "INLAB"

	timestampWidth = 16
	noteSeparator  = " :: "
)

// Record is one ledger entry. Logout is the zero time while the session is
// open; Minutes and Note are meaningful only once it is closed.
type Record struct {
	Login    time.Time
	Logout   time.Time
	Minutes  int
	Username string
	Note     string
}

// Open reports whether the session has not been closed yet.
func (r Record) Open() bool {
	return r.Logout.IsZero()
}

// Line encodes the record into its exact ledger line, without a trailing
// newline. Encoding a record that was produced by ParseLine reproduces the
// original line byte for byte.
func (r Record) Line() string {
	if r.Open() {
		return fmt.Sprintf("[%s] [%s] [%s] <%s>",
			r.Login.Format(TimeLayout), LogoutSentinel, StatusSentinel, r.Username)
	}
	line := fmt.Sprintf("[%s] [%s] [%s] <%s>",
		r.Login.Format(TimeLayout), r.Logout.Format(TimeLayout),
		FormatDuration(r.Minutes), r.Username)
	if r.Note != "" {
		line += noteSeparator + r.Note
	}
	return line
}

// FormatDuration renders minutes as zero-padded HH:MM. Durations beyond 99
// hours widen the hour field and negative durations carry a leading sign;
// both are encoded as computed, never clamped.
func FormatDuration(minutes int) string {
	sign := ""
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	return fmt.Sprintf("%s%02d:%02d", sign, minutes/60, minutes%60)
}

// DurationMinutes returns the whole minutes between login and logout,
// truncated toward zero. A logout earlier than its login yields a negative
// count; the codec passes it through unchanged.
func DurationMinutes(login, logout time.Time) int {
	return int(logout.Sub(login) / time.Minute)
}

// ParseLine decodes one ledger line. ok is false for any line that does not
// match the record grammar exactly; such lines must be preserved verbatim by
// rewrites and skipped by queries.
func ParseLine(line string) (Record, bool) {
	rest := line

	loginField, rest, ok := takeBracketed(rest)
	if !ok {
		return Record{}, false
	}
	login, ok := parseTimestamp(loginField)
	if !ok {
		return Record{}, false
	}

	rest, ok = takeLiteral(rest, " ")
	if !ok {
		return Record{}, false
	}
	logoutField, rest, ok := takeBracketed(rest)
	if !ok {
		return Record{}, false
	}

	rest, ok = takeLiteral(rest, " ")
	if !ok {
		return Record{}, false
	}
	statusField, rest, ok := takeBracketed(rest)
	if !ok {
		return Record{}, false
	}

	rest, ok = takeLiteral(rest, " <")
	if !ok {
		return Record{}, false
	}
	closeAngle := strings.IndexByte(rest, '>')
	if closeAngle < 0 {
		return Record{}, false
	}
	username := rest[:closeAngle]
	if username == "" {
		return Record{}, false
	}
	rest = rest[closeAngle+1:]

	note := ""
	switch {
	case rest == "":
	case strings.HasPrefix(rest, noteSeparator):
		note = rest[len(noteSeparator):]
		if note == "" {
			// A bare separator cannot survive a round trip: the encoder
			// writes it only in front of a non-empty note.
			return Record{}, false
		}
	default:
		return Record{}, false
	}

	if logoutField == LogoutSentinel {
		// Open record: the status sentinel must agree and the note slot
		// only exists on closed records.
		if statusField != StatusSentinel || note != "" {
			return Record{}, false
		}
		return Record{Login: login, Username: username}, true
	}

	logout, ok := parseTimestamp(logoutField)
	if !ok {
		return Record{}, false
	}
	minutes, ok := parseDuration(statusField)
	if !ok {
		return Record{}, false
	}
	return Record{
		Login:    login,
		Logout:   logout,
		Minutes:  minutes,
		Username: username,
		Note:     note,
	}, true
}

// takeBracketed consumes a leading "[field]" and returns the field body and
// the remaining input.
func takeBracketed(input string) (field, rest string, ok bool) {
	if len(input) == 0 || input[0] != '[' {
		return "", "", false
	}
	end := strings.IndexByte(input, ']')
	if end < 0 {
		return "", "", false
	}
	return input[1:end], input[end+1:], true
}

func takeLiteral(input, literal string) (string, bool) {
	if !strings.HasPrefix(input, literal) {
		return "", false
	}
	return input[len(literal):], true
}

// parseTimestamp accepts exactly the 16-byte DD/MM/YYYY HH:MM layout. The
// width and separator checks reject unpadded fields that time.Parse would
// otherwise tolerate, which would break byte-exact round-trips.
func parseTimestamp(field string) (time.Time, bool) {
	if len(field) != timestampWidth {
		return time.Time{}, false
	}
	if field[2] != '/' || field[5] != '/' || field[10] != ' ' || field[13] != ':' {
		return time.Time{}, false
	}
	parsed, err := time.ParseInLocation(TimeLayout, field, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// parseDuration accepts [-]HH:MM with a zero-padded hour field of at least
// two digits and a two-digit minute field below 60.
func parseDuration(field string) (int, bool) {
	negative := strings.HasPrefix(field, "-")
	if negative {
		field = field[1:]
	}
	colon := strings.IndexByte(field, ':')
	if colon < 2 || colon != len(field)-3 {
		return 0, false
	}
	hourField, minuteField := field[:colon], field[colon+1:]
	hours, err := strconv.Atoi(hourField)
	if err != nil || hours < 0 {
		return 0, false
	}
	if hours < 10 && (len(hourField) != 2 || hourField[0] != '0') {
		return 0, false
	}
	if hours >= 10 && hourField[0] == '0' {
		return 0, false
	}
	minutesPart, err := strconv.Atoi(minuteField)
	if err != nil || minutesPart < 0 || minutesPart > 59 {
		return 0, false
	}
	total := hours*60 + minutesPart
	if negative {
		// Negative zero would not survive a round trip.
		if total == 0 {
			return 0, false
		}
		total = -total
	}
	return total, true
}
