// Package rotation archives the active ledger at month boundaries. The
// check runs once per process start: if the first record in the ledger was
// logged in a month strictly before the current one, the whole file is
// renamed to an archival name carrying that month and a fresh empty ledger
// takes its place. There is no continuous monitor; a month boundary nobody
// crosses with a process start simply waits for the next start.
package rotation

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/DoubleTroublePy/weeelab/core/clock"
	coreerrors "github.com/DoubleTroublePy/weeelab/core/errors"
	"github.com/DoubleTroublePy/weeelab/core/fsx"
	"github.com/DoubleTroublePy/weeelab/core/ledger"
)

// DefaultManifestName is the archive manifest kept next to the ledger.
const DefaultManifestName = "log-archives.jsonl"

type Options struct {
	// Clock supplies the current month. Nil means the real clock.
	Clock clock.Clock

	// ManifestPath overrides where the archive manifest is appended.
	// Empty means DefaultManifestName in the ledger's directory.
	ManifestPath string
}

// Archive describes one completed rotation.
type Archive struct {
	Path          string
	Year          int
	Month         time.Month
	ContentSHA256 string
}

// ArchivePath derives the archival filename from the active ledger's by
// inserting the archived YYYYMM before the final extension:
// log.txt becomes log202301.txt.
func ArchivePath(ledgerPath string, year int, month time.Month) string {
	stamp := fmt.Sprintf("%04d%02d", year, int(month))
	extension := filepath.Ext(ledgerPath)
	return strings.TrimSuffix(ledgerPath, extension) + stamp + extension
}

// MaybeRotate inspects the ledger and rotates it when the current month is
// strictly later than the month of the first record's login. It returns nil
// when nothing was rotated: empty ledger, no decodable record, same month,
// or a clock running behind the ledger (skew).
//
// It must run at process start, before any other ledger operation.
func MaybeRotate(ledgerPath string, options Options) (*Archive, error) {
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}

	content, err := os.ReadFile(ledgerPath)
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CategoryIOFailure, "ledger_read_failed",
			"check that the ledger file exists and is readable", false)
	}
	first, ok := firstRecord(string(content))
	if !ok {
		return nil, nil
	}

	now := clk.Now()
	if !monthStrictlyAfter(now.Year(), now.Month(), first.Login.Year(), first.Login.Month()) {
		return nil, nil
	}

	archivePath := ArchivePath(ledgerPath, first.Login.Year(), first.Login.Month())
	digest := sha256.Sum256(content)
	archive := &Archive{
		Path:          archivePath,
		Year:          first.Login.Year(),
		Month:         first.Login.Month(),
		ContentSHA256: hex.EncodeToString(digest[:]),
	}

	if err := os.Rename(ledgerPath, archivePath); err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CategoryIOFailure, "ledger_archive_failed",
			"check ledger directory permissions", false)
	}
	if err := os.WriteFile(ledgerPath, nil, 0o644); err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CategoryIOFailure, "ledger_create_failed",
			"recreate an empty ledger file by hand", false)
	}
	fsx.SyncDirectory(filepath.Dir(ledgerPath))

	manifestPath := options.ManifestPath
	if manifestPath == "" {
		manifestPath = filepath.Join(filepath.Dir(ledgerPath), DefaultManifestName)
	}
	if err := appendManifestEntry(manifestPath, newManifestEntry(ledgerPath, archive, now)); err != nil {
		// The rotation itself succeeded; a manifest append failure must not
		// undo it, so it is reported alongside the archive.
		return archive, err
	}
	return archive, nil
}

// firstRecord returns the first decodable record in the ledger, skipping
// leading non-conforming lines.
func firstRecord(content string) (ledger.Record, bool) {
	for _, line := range strings.Split(content, "\n") {
		if record, ok := ledger.ParseLine(line); ok {
			return record, true
		}
	}
	return ledger.Record{}, false
}

func monthStrictlyAfter(year int, month time.Month, thanYear int, thanMonth time.Month) bool {
	if year != thanYear {
		return year > thanYear
	}
	return month > thanMonth
}
