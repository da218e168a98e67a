package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadRequiresLedgerDir(t *testing.T) {
	t.Setenv("LOG_PATH", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected missing LOG_PATH to fail")
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LOG_PATH", dir)
	t.Setenv("LDAP_SERVER", "ldaps://directory.example.org")
	t.Setenv("LDAP_BIND_DN", "cn=reader,dc=example,dc=org")
	t.Setenv("LDAP_PASSWORD", "hunter2")
	t.Setenv("LDAP_TREE", "ou=people,dc=example,dc=org")
	t.Setenv("FIRST_IN_SCRIPT_PATH", "")
	t.Setenv("LAST_OUT_SCRIPT_PATH", "")

	configuration, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if configuration.LedgerPath() != filepath.Join(dir, "log.txt") {
		t.Fatalf("ledger path = %q", configuration.LedgerPath())
	}
	if !configuration.DirectoryConfigured() {
		t.Fatal("directory should be configured")
	}
	if configuration.Tunables.MaxNoteLength != 2000 {
		t.Fatalf("max note length default = %d", configuration.Tunables.MaxNoteLength)
	}
	if configuration.LockRetryInterval() != 500*time.Millisecond {
		t.Fatalf("lock retry default = %v", configuration.LockRetryInterval())
	}
	if configuration.OpsLogPath() != filepath.Join(dir, "weeelab-ops.jsonl") {
		t.Fatalf("ops log path = %q", configuration.OpsLogPath())
	}
}

func TestLoadReadsTunablesFile(t *testing.T) {
	dir := t.TempDir()
	tunables := "lock_retry_seconds: 0.05\nmax_note_length: 120\nops_log: events.jsonl\n"
	if err := os.WriteFile(filepath.Join(dir, TunablesFileName), []byte(tunables), 0o644); err != nil {
		t.Fatalf("write tunables: %v", err)
	}
	t.Setenv("LOG_PATH", dir)
	t.Setenv("LDAP_SERVER", "")

	configuration, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if configuration.DirectoryConfigured() {
		t.Fatal("directory should not be configured")
	}
	if configuration.LockRetryInterval() != 50*time.Millisecond {
		t.Fatalf("lock retry = %v", configuration.LockRetryInterval())
	}
	if configuration.Tunables.MaxNoteLength != 120 {
		t.Fatalf("max note length = %d", configuration.Tunables.MaxNoteLength)
	}
	if filepath.Base(configuration.OpsLogPath()) != "events.jsonl" {
		t.Fatalf("ops log path = %q", configuration.OpsLogPath())
	}
}

func TestLoadRejectsMalformedTunables(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, TunablesFileName), []byte("max_note_length: [nope"), 0o644); err != nil {
		t.Fatalf("write tunables: %v", err)
	}
	t.Setenv("LOG_PATH", dir)
	if _, err := Load(); err == nil {
		t.Fatal("expected malformed tunables to fail")
	}
}
