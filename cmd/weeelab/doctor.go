package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	coreerrors "github.com/DoubleTroublePy/weeelab/core/errors"
	"github.com/DoubleTroublePy/weeelab/core/rotation"
)

// staleLockAge is how old a lock marker may be before doctor flags it.
// Rewrites hold the lock for milliseconds; anything older is a crashed
// process that needs an administrator to remove the marker by hand.
const staleLockAge = 10 * time.Minute

type checkStatus string

const (
	checkPass checkStatus = "PASS"
	checkWarn checkStatus = "WARN"
	checkFail checkStatus = "FAIL"
)

type checkResult struct {
	status checkStatus
	label  string
	detail string
}

// runDoctor inspects the deployment and prints one line per check. Any
// failing check makes the whole run fail; warnings do not.
func (a *app) runDoctor() error {
	results := []checkResult{
		a.checkDirectoryService(),
		a.checkHooks(),
		a.checkLedger(),
		a.checkLockMarker(),
		a.checkArchiveManifest(),
	}

	failed := 0
	for _, result := range results {
		style := a.styles.pass
		switch result.status {
		case checkWarn:
			style = a.styles.warn
		case checkFail:
			style = a.styles.fail
			failed++
		}
		fmt.Fprintf(a.stdout, "%s  %-18s %s\n", style.Render(string(result.status)), result.label, result.detail)
	}
	if failed > 0 {
		return coreerrors.Wrap(fmt.Errorf("%d check(s) failed", failed),
			coreerrors.CategoryInternalFailure, "doctor_failed", "", false)
	}
	return nil
}

func (a *app) checkDirectoryService() checkResult {
	if !a.config.DirectoryConfigured() {
		return checkResult{checkWarn, "directory", "no LDAP_SERVER configured; logins trust typed usernames"}
	}
	return checkResult{checkPass, "directory", a.config.DirectoryServer}
}

func (a *app) checkHooks() checkResult {
	missing := ""
	for _, script := range []string{a.config.FirstInScript, a.config.LastOutScript} {
		if script == "" {
			continue
		}
		if _, err := os.Stat(script); err != nil {
			missing = script
		}
	}
	if missing != "" {
		return checkResult{checkWarn, "hooks", fmt.Sprintf("configured script %s does not exist", missing)}
	}
	return checkResult{checkPass, "hooks", "configured scripts are present"}
}

func (a *app) checkLedger() checkResult {
	entries, err := a.store.ScanAll()
	if err != nil {
		return checkResult{checkFail, "ledger", err.Error()}
	}
	foreign := 0
	open := 0
	for _, entry := range entries {
		if !entry.OK {
			foreign++
			continue
		}
		if entry.Record.Open() {
			open++
		}
	}
	detail := fmt.Sprintf("%d line(s), %d open session(s)", len(entries), open)
	if foreign > 0 {
		return checkResult{checkWarn, "ledger",
			detail + fmt.Sprintf(", %d line(s) not in ledger format", foreign)}
	}
	return checkResult{checkPass, "ledger", detail}
}

func (a *app) checkLockMarker() checkResult {
	info, err := os.Stat(a.store.LockPath())
	if os.IsNotExist(err) {
		return checkResult{checkPass, "lock marker", "absent"}
	}
	if err != nil {
		return checkResult{checkFail, "lock marker", err.Error()}
	}
	age := a.clock.Now().Sub(info.ModTime())
	if age > staleLockAge {
		return checkResult{checkFail, "lock marker",
			fmt.Sprintf("%s is %s old; remove it if no rewrite is running",
				filepath.Base(a.store.LockPath()), age.Round(time.Second))}
	}
	return checkResult{checkWarn, "lock marker", "present; a rewrite may be in flight"}
}

func (a *app) checkArchiveManifest() checkResult {
	manifestPath := filepath.Join(a.config.LedgerDir, rotation.DefaultManifestName)
	if _, err := os.Stat(manifestPath); os.IsNotExist(err) {
		return checkResult{checkPass, "archive manifest", "no rotations recorded yet"}
	}
	if err := rotation.ValidateManifest(manifestPath); err != nil {
		return checkResult{checkFail, "archive manifest", err.Error()}
	}
	problems, err := rotation.VerifyManifest(manifestPath)
	if err != nil {
		return checkResult{checkFail, "archive manifest", err.Error()}
	}
	if len(problems) > 0 {
		return checkResult{checkFail, "archive manifest", problems[0]}
	}
	return checkResult{checkPass, "archive manifest", "entries validate and digests match"}
}
