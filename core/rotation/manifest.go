package rotation

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gowebpki/jcs"
	"github.com/kaptinlin/jsonschema"

	coreerrors "github.com/DoubleTroublePy/weeelab/core/errors"
	"github.com/DoubleTroublePy/weeelab/core/fsx"
)

const (
	manifestSchemaID      = "weeelab.rotation.archive_entry"
	manifestSchemaVersion = "1.0.0"
	maxManifestLineBytes  = 64 * 1024
)

//go:embed manifest_schema.json
var manifestSchemaJSON []byte

// ManifestEntry is one line of the archive manifest JSONL file. EntryDigest
// is the sha256 of the entry's RFC 8785 canonical JSON with the digest field
// itself empty, making each line independently tamper-evident.
type ManifestEntry struct {
	SchemaID      string `json:"schema_id"`
	SchemaVersion string `json:"schema_version"`
	ArchivedAt    string `json:"archived_at"`
	Ledger        string `json:"ledger"`
	Archive       string `json:"archive"`
	Month         string `json:"month"`
	ContentSHA256 string `json:"content_sha256"`
	EntryDigest   string `json:"entry_digest,omitempty"`
}

func newManifestEntry(ledgerPath string, archive *Archive, now time.Time) ManifestEntry {
	return ManifestEntry{
		SchemaID:      manifestSchemaID,
		SchemaVersion: manifestSchemaVersion,
		ArchivedAt:    now.UTC().Format(time.RFC3339),
		Ledger:        filepath.Base(ledgerPath),
		Archive:       filepath.Base(archive.Path),
		Month:         fmt.Sprintf("%04d-%02d", archive.Year, int(archive.Month)),
		ContentSHA256: archive.ContentSHA256,
	}
}

// DigestEntry computes the canonical digest for entry, ignoring whatever
// EntryDigest it already carries.
func DigestEntry(entry ManifestEntry) (string, error) {
	entry.EntryDigest = ""
	encoded, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("marshal manifest entry: %w", err)
	}
	canonical, err := jcs.Transform(encoded)
	if err != nil {
		return "", fmt.Errorf("canonicalize manifest entry: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

func appendManifestEntry(path string, entry ManifestEntry) error {
	digest, err := DigestEntry(entry)
	if err != nil {
		return coreerrors.Wrap(err, coreerrors.CategoryInternalFailure, "manifest_digest_failed",
			"report this; the archive itself is intact", false)
	}
	entry.EntryDigest = digest
	encoded, err := json.Marshal(entry)
	if err != nil {
		return coreerrors.Wrap(err, coreerrors.CategoryInternalFailure, "manifest_encode_failed",
			"report this; the archive itself is intact", false)
	}
	if err := fsx.AppendLine(path, encoded, 0o644); err != nil {
		return coreerrors.Wrap(err, coreerrors.CategoryIOFailure, "manifest_append_failed",
			"check the ledger directory permissions", false)
	}
	return nil
}

// ReadManifest parses every entry of the manifest file. A missing file is
// an empty manifest, not an error.
func ReadManifest(path string) ([]ManifestEntry, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, coreerrors.Wrap(err, coreerrors.CategoryIOFailure, "manifest_read_failed",
			"check the manifest file permissions", false)
	}
	var entries []ManifestEntry
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 4096), maxManifestLineBytes)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry ManifestEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("manifest line %d: %w", lineNumber, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan manifest: %w", err)
	}
	return entries, nil
}

// VerifyManifest recomputes every entry digest and returns a problem
// description per entry that fails, in file order. An empty slice means the
// manifest is intact.
func VerifyManifest(path string) ([]string, error) {
	entries, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}
	var problems []string
	for index, entry := range entries {
		expected, err := DigestEntry(entry)
		if err != nil {
			return nil, err
		}
		if entry.EntryDigest == "" {
			problems = append(problems, fmt.Sprintf("entry %d (%s): missing entry_digest", index+1, entry.Archive))
			continue
		}
		if entry.EntryDigest != expected {
			problems = append(problems, fmt.Sprintf("entry %d (%s): digest mismatch", index+1, entry.Archive))
		}
	}
	return problems, nil
}

// ValidateManifest checks every manifest line against the embedded JSON
// schema. A missing file validates trivially.
func ValidateManifest(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read manifest: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(manifestSchemaJSON)
	if err != nil {
		return fmt.Errorf("compile manifest schema: %w", err)
	}
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 4096), maxManifestLineBytes)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		result := schema.ValidateJSON(line)
		if !result.IsValid() {
			return fmt.Errorf("manifest line %d: schema validation failed: %v", lineNumber, result.Errors)
		}
	}
	return scanner.Err()
}
