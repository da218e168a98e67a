package rotation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DoubleTroublePy/weeelab/core/clock"
)

func rotateOnce(t *testing.T) (manifestPath string) {
	t.Helper()
	ledgerPath := seedLedger(t, "[15/01/2023 10:00] [15/01/2023 12:00] [02:00] <alice>\n")
	fake := clock.Fake(time.Date(2023, time.February, 1, 8, 0, 0, 0, time.Local))
	if _, err := MaybeRotate(ledgerPath, Options{Clock: fake}); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	return filepath.Join(filepath.Dir(ledgerPath), DefaultManifestName)
}

func TestRotationAppendsVerifiableManifestEntry(t *testing.T) {
	manifestPath := rotateOnce(t)

	entries, err := ReadManifest(manifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 manifest entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Archive != "log202301.txt" || entry.Month != "2023-01" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if len(entry.ContentSHA256) != 64 || len(entry.EntryDigest) != 64 {
		t.Fatalf("digests malformed: %+v", entry)
	}

	problems, err := VerifyManifest(manifestPath)
	if err != nil {
		t.Fatalf("verify manifest: %v", err)
	}
	if len(problems) != 0 {
		t.Fatalf("fresh manifest should verify cleanly: %v", problems)
	}
}

func TestVerifyManifestDetectsTampering(t *testing.T) {
	manifestPath := rotateOnce(t)

	content, err := os.ReadFile(manifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	tampered := strings.Replace(string(content), "2023-01", "2023-02", 1)
	if tampered == string(content) {
		t.Fatal("tampering replacement did not apply")
	}
	if err := os.WriteFile(manifestPath, []byte(tampered), 0o644); err != nil {
		t.Fatalf("write tampered manifest: %v", err)
	}

	problems, err := VerifyManifest(manifestPath)
	if err != nil {
		t.Fatalf("verify manifest: %v", err)
	}
	if len(problems) != 1 || !strings.Contains(problems[0], "digest mismatch") {
		t.Fatalf("expected one digest mismatch, got %v", problems)
	}
}

func TestValidateManifestAgainstSchema(t *testing.T) {
	manifestPath := rotateOnce(t)
	if err := ValidateManifest(manifestPath); err != nil {
		t.Fatalf("fresh manifest should be schema-valid: %v", err)
	}

	if err := os.WriteFile(manifestPath, []byte(`{"schema_id":"weeelab.rotation.archive_entry"}`+"\n"), 0o644); err != nil {
		t.Fatalf("write invalid manifest: %v", err)
	}
	if err := ValidateManifest(manifestPath); err == nil {
		t.Fatal("expected schema validation to fail for truncated entry")
	}
}

func TestReadManifestMissingFileIsEmpty(t *testing.T) {
	entries, err := ReadManifest(filepath.Join(t.TempDir(), "absent.jsonl"))
	if err != nil {
		t.Fatalf("read missing manifest: %v", err)
	}
	if entries != nil {
		t.Fatalf("expected empty manifest, got %v", entries)
	}
}

func TestDigestEntryIsStableAcrossExistingDigest(t *testing.T) {
	entry := ManifestEntry{
		SchemaID:      manifestSchemaID,
		SchemaVersion: manifestSchemaVersion,
		ArchivedAt:    "2023-02-01T08:00:00Z",
		Ledger:        "log.txt",
		Archive:       "log202301.txt",
		Month:         "2023-01",
		ContentSHA256: strings.Repeat("a", 64),
	}
	bare, err := DigestEntry(entry)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	entry.EntryDigest = bare
	again, err := DigestEntry(entry)
	if err != nil {
		t.Fatalf("digest with existing value: %v", err)
	}
	if bare != again {
		t.Fatalf("digest must ignore the stored digest field: %s vs %s", bare, again)
	}
}
