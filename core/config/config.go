// Package config assembles runtime configuration from two sources: the
// environment (optionally seeded from a .env file) for paths, directory
// service endpoint, and credentials; and an optional weeelab.yaml next to
// the ledger for behavioral tunables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

const (
	// LedgerFileName is the active ledger inside the configured directory.
	LedgerFileName = "log.txt"

	// TunablesFileName is the optional per-deployment tunables file,
	// looked up in the ledger directory.
	TunablesFileName = "weeelab.yaml"

	// OpsLogFileName receives the operational JSONL events.
	OpsLogFileName = "weeelab-ops.jsonl"

	defaultMaxNoteLength    = 2000
	defaultLockRetrySeconds = 0.5
)

// Config is everything the CLI needs to run. Zero-value fields mean the
// corresponding feature is disabled (hooks) or unavailable (directory).
type Config struct {
	// LedgerDir holds the active ledger, the lock marker, the archive
	// manifest, and the ops log. From LOG_PATH.
	LedgerDir string

	// Directory service (LDAP) endpoint and credentials.
	DirectoryServer   string
	DirectoryBindDN   string
	DirectoryPassword string
	DirectorySearch   string

	// Hook executables, spawned on first arrival / last departure.
	FirstInScript string
	LastOutScript string

	Tunables Tunables
}

// Tunables are the optional weeelab.yaml knobs.
type Tunables struct {
	// LockRetrySeconds is the rewrite-lock retry interval in seconds.
	LockRetrySeconds float64 `yaml:"lock_retry_seconds"`

	// MaxNoteLength bounds the logout note.
	MaxNoteLength int `yaml:"max_note_length"`

	// OpsLog can rename the operational event log file.
	OpsLog string `yaml:"ops_log"`
}

// Load reads .env (when present) into the environment and builds the
// Config. The ledger directory is required; everything else degrades: no
// directory endpoint means lookups are unavailable, no hook paths means no
// hooks.
func Load() (Config, error) {
	// A missing .env is fine; the environment may be set by other means.
	_ = godotenv.Load()

	ledgerDir := strings.TrimSpace(os.Getenv("LOG_PATH"))
	if ledgerDir == "" {
		return Config{}, fmt.Errorf("LOG_PATH is not set")
	}

	configuration := Config{
		LedgerDir:         ledgerDir,
		DirectoryServer:   strings.TrimSpace(os.Getenv("LDAP_SERVER")),
		DirectoryBindDN:   strings.TrimSpace(os.Getenv("LDAP_BIND_DN")),
		DirectoryPassword: os.Getenv("LDAP_PASSWORD"),
		DirectorySearch:   strings.TrimSpace(os.Getenv("LDAP_TREE")),
		FirstInScript:     strings.TrimSpace(os.Getenv("FIRST_IN_SCRIPT_PATH")),
		LastOutScript:     strings.TrimSpace(os.Getenv("LAST_OUT_SCRIPT_PATH")),
		Tunables:          defaultTunables(),
	}

	tunables, err := loadTunables(filepath.Join(ledgerDir, TunablesFileName))
	if err != nil {
		return Config{}, err
	}
	configuration.Tunables = tunables
	return configuration, nil
}

func defaultTunables() Tunables {
	return Tunables{
		LockRetrySeconds: defaultLockRetrySeconds,
		MaxNoteLength:    defaultMaxNoteLength,
		OpsLog:           OpsLogFileName,
	}
}

func loadTunables(path string) (Tunables, error) {
	tunables := defaultTunables()
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return tunables, nil
		}
		return Tunables{}, fmt.Errorf("read tunables: %w", err)
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return tunables, nil
	}
	if err := yaml.Unmarshal(content, &tunables); err != nil {
		return Tunables{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if tunables.LockRetrySeconds <= 0 {
		tunables.LockRetrySeconds = defaultLockRetrySeconds
	}
	if tunables.MaxNoteLength <= 0 {
		tunables.MaxNoteLength = defaultMaxNoteLength
	}
	tunables.OpsLog = strings.TrimSpace(tunables.OpsLog)
	if tunables.OpsLog == "" {
		tunables.OpsLog = OpsLogFileName
	}
	return tunables, nil
}

// LedgerPath returns the active ledger file path.
func (c Config) LedgerPath() string {
	return filepath.Join(c.LedgerDir, LedgerFileName)
}

// OpsLogPath returns the operational event log path.
func (c Config) OpsLogPath() string {
	return filepath.Join(c.LedgerDir, c.Tunables.OpsLog)
}

// LockRetryInterval converts the tunable into a duration.
func (c Config) LockRetryInterval() time.Duration {
	return time.Duration(c.Tunables.LockRetrySeconds * float64(time.Second))
}

// DirectoryConfigured reports whether an LDAP endpoint is available.
func (c Config) DirectoryConfigured() bool {
	return c.DirectoryServer != ""
}
