package ledger

import (
	"testing"
	"time"
)

func TestParseLineRoundTripsWellFormedLines(t *testing.T) {
	lines := []string{
		"[01/05/2023 09:00] [----------------] [INLAB] <alice>",
		"[01/05/2023 09:00] [01/05/2023 11:30] [02:30] <alice> :: built stuff",
		"[31/12/2022 23:50] [01/01/2023 00:10] [00:20] <bob.builder>",
		"[01/05/2023 09:00] [05/05/2023 13:45] [100:45] <carol> :: marathon",
		"[01/05/2023 11:30] [01/05/2023 09:00] [-02:30] <dave> :: admin fixup",
		"[01/05/2023 09:00] [01/05/2023 09:00] [00:00] <eve>",
	}
	for _, line := range lines {
		record, ok := ParseLine(line)
		if !ok {
			t.Fatalf("expected %q to decode", line)
		}
		if got := record.Line(); got != line {
			t.Fatalf("round trip mismatch:\n in: %q\nout: %q", line, got)
		}
	}
}

func TestParseLineRejectsNonConformingLines(t *testing.T) {
	lines := []string{
		"",
		"# maintenance note left by hand",
		"[01/05/2023 09:00] [----------------] [INLAB] alice",
		"[01/05/2023 09:00] [----------------] [INLAB] <>",
		"[1/05/2023 09:00] [----------------] [INLAB] <alice>",
		"[01/05/2023 09:00] [---------------] [INLAB] <alice>",
		"[01/05/2023 09:00] [----------------] [02:30] <alice>",
		"[01/05/2023 09:00] [01/05/2023 11:30] [INLAB] <alice>",
		"[01/05/2023 09:00] [----------------] [INLAB] <alice> :: note on open record",
		"[01/05/2023 09:00] [01/05/2023 11:30] [02:60] <alice>",
		"[01/05/2023 09:00] [01/05/2023 11:30] [2:30] <alice>",
		"[01/05/2023 09:00] [01/05/2023 11:30] [012:30] <alice>",
		"[29/02/2023 09:00] [----------------] [INLAB] <alice>",
		"[01/05/2023 09:00] [01/05/2023 11:30] [02:30] <alice> ::missing space",
		"[01/05/2023 09:00] [01/05/2023 11:30] [02:30] <alice> extra",
		"[01/05/2023 09:00] [01/05/2023 11:30] [02:30] <alice> :: ",
		"[01/05/2023 09:00] [01/05/2023 09:00] [-00:00] <alice>",
	}
	for _, line := range lines {
		if record, ok := ParseLine(line); ok {
			t.Fatalf("expected %q to be rejected, decoded %+v", line, record)
		}
	}
}

func TestParseLineFields(t *testing.T) {
	record, ok := ParseLine("[01/05/2023 09:00] [01/05/2023 11:30] [02:30] <alice> :: built stuff")
	if !ok {
		t.Fatal("expected line to decode")
	}
	wantLogin := time.Date(2023, time.May, 1, 9, 0, 0, 0, time.Local)
	wantLogout := time.Date(2023, time.May, 1, 11, 30, 0, 0, time.Local)
	if !record.Login.Equal(wantLogin) {
		t.Fatalf("login = %v, want %v", record.Login, wantLogin)
	}
	if !record.Logout.Equal(wantLogout) {
		t.Fatalf("logout = %v, want %v", record.Logout, wantLogout)
	}
	if record.Minutes != 150 {
		t.Fatalf("minutes = %d, want 150", record.Minutes)
	}
	if record.Username != "alice" {
		t.Fatalf("username = %q, want alice", record.Username)
	}
	if record.Note != "built stuff" {
		t.Fatalf("note = %q, want %q", record.Note, "built stuff")
	}
	if record.Open() {
		t.Fatal("closed record reported open")
	}
}

func TestOpenRecordEncoding(t *testing.T) {
	record := Record{
		Login:    time.Date(2023, time.May, 1, 9, 0, 0, 0, time.Local),
		Username: "alice",
	}
	if !record.Open() {
		t.Fatal("record with zero logout should be open")
	}
	want := "[01/05/2023 09:00] [----------------] [INLAB] <alice>"
	if got := record.Line(); got != want {
		t.Fatalf("open line = %q, want %q", got, want)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		minutes int
		want    string
	}{
		{0, "00:00"},
		{1, "00:01"},
		{150, "02:30"},
		{599, "09:59"},
		{600, "10:00"},
		{6045, "100:45"},
		{-150, "-02:30"},
	}
	for _, testCase := range cases {
		if got := FormatDuration(testCase.minutes); got != testCase.want {
			t.Fatalf("FormatDuration(%d) = %q, want %q", testCase.minutes, got, testCase.want)
		}
	}
}

func TestDurationMinutesTruncates(t *testing.T) {
	login := time.Date(2023, time.May, 1, 9, 0, 0, 0, time.Local)
	if got := DurationMinutes(login, login.Add(2*time.Hour+30*time.Minute)); got != 150 {
		t.Fatalf("got %d, want 150", got)
	}
	if got := DurationMinutes(login, login.Add(90*time.Second)); got != 1 {
		t.Fatalf("sub-minute remainder should truncate, got %d", got)
	}
	if got := DurationMinutes(login, login.Add(-2*time.Hour-30*time.Minute)); got != -150 {
		t.Fatalf("negative duration got %d, want -150", got)
	}
}
