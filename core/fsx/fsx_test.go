package fsx

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestWriteFileAtomicCreatesAndOverwrites(t *testing.T) {
	target := filepath.Join(t.TempDir(), "log.txt")

	if err := WriteFileAtomic(target, []byte("[01/05/2023 09:00] [----------------] [INLAB] <alice>\n"), 0o644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	first, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read first write: %v", err)
	}
	if string(first) != "[01/05/2023 09:00] [----------------] [INLAB] <alice>\n" {
		t.Fatalf("unexpected first content: %q", string(first))
	}

	if err := WriteFileAtomic(target, []byte("[01/05/2023 09:00] [01/05/2023 11:30] [02:30] <alice> :: built stuff\n"), 0o644); err != nil {
		t.Fatalf("second write: %v", err)
	}
	second, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read second write: %v", err)
	}
	if string(second) != "[01/05/2023 09:00] [01/05/2023 11:30] [02:30] <alice> :: built stuff\n" {
		t.Fatalf("unexpected second content: %q", string(second))
	}
}

func TestWriteFileAtomicMode(t *testing.T) {
	target := filepath.Join(t.TempDir(), "log.txt")

	if err := WriteFileAtomic(target, []byte(""), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	info, err := os.Stat(target)
	if err != nil {
		t.Fatalf("stat file: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected mode 0600 got %#o", info.Mode().Perm())
	}
}

func TestAppendLineWritesOneLinePerCall(t *testing.T) {
	target := filepath.Join(t.TempDir(), "log.txt")
	if err := AppendLine(target, []byte("line one"), 0o644); err != nil {
		t.Fatalf("append first line: %v", err)
	}
	if err := AppendLine(target, []byte("line two"), 0o644); err != nil {
		t.Fatalf("append second line: %v", err)
	}
	raw, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read target: %v", err)
	}
	if string(raw) != "line one\nline two\n" {
		t.Fatalf("unexpected append output:\n%s", string(raw))
	}
}

func TestAppendLineConcurrentLineIntegrity(t *testing.T) {
	target := filepath.Join(t.TempDir(), "log.txt")
	const writers = 50
	var group sync.WaitGroup
	group.Add(writers)
	for index := 0; index < writers; index++ {
		line := []byte(fmt.Sprintf("record %02d", index))
		go func(payload []byte) {
			defer group.Done()
			if err := AppendLine(target, payload, 0o644); err != nil {
				t.Errorf("append line: %v", err)
			}
		}(line)
	}
	group.Wait()

	raw, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read target: %v", err)
	}
	lines := 0
	for _, b := range raw {
		if b == '\n' {
			lines++
		}
	}
	if lines != writers {
		t.Fatalf("expected %d lines, got %d", writers, lines)
	}
}
