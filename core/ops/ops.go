// Package ops records one start and one end event per invocation in a local
// JSONL file, so administrators can see what the terminal has been doing and
// how each run ended. Recording is best-effort: a broken ops log never
// changes the outcome of the command that tried to write it.
package ops

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	coreerrors "github.com/DoubleTroublePy/weeelab/core/errors"
)

const (
	eventSchemaID = "weeelab.ops.operational_event"
	eventSchemaV1 = "1.0.0"
	maxLineBytes  = 1024 * 1024
)

// EnvContext pins the platform an event was produced on.
type EnvContext struct {
	OS   string `json:"os"`
	Arch string `json:"arch"`
}

// Event is one line of the ops log.
type Event struct {
	SchemaID        string     `json:"schema_id"`
	SchemaVersion   string     `json:"schema_version"`
	CreatedAt       time.Time  `json:"created_at"`
	ProducerVersion string     `json:"producer_version"`
	Command         string     `json:"command"`
	Phase           string     `json:"phase"`
	ExitCode        int        `json:"exit_code"`
	ErrorCategory   string     `json:"error_category"`
	Retryable       bool       `json:"retryable"`
	ElapsedMS       int64      `json:"elapsed_ms"`
	Environment     EnvContext `json:"environment"`
}

// NewStartEvent marks the beginning of an invocation.
func NewStartEvent(command, producerVersion string, now time.Time) Event {
	return newEvent(command, producerVersion, "start", 0, "none", false, 0, now)
}

// NewEndEvent marks how an invocation finished.
func NewEndEvent(
	command string,
	producerVersion string,
	exitCode int,
	errorCategory string,
	retryable bool,
	elapsed time.Duration,
	now time.Time,
) Event {
	elapsedMS := elapsed.Milliseconds()
	if elapsedMS < 0 {
		elapsedMS = 0
	}
	return newEvent(command, producerVersion, "end", exitCode, errorCategory, retryable, elapsedMS, now)
}

func newEvent(
	command string,
	producerVersion string,
	phase string,
	exitCode int,
	errorCategory string,
	retryable bool,
	elapsedMS int64,
	now time.Time,
) Event {
	return Event{
		SchemaID:        eventSchemaID,
		SchemaVersion:   eventSchemaV1,
		CreatedAt:       now.UTC(),
		ProducerVersion: producerVersion,
		Command:         command,
		Phase:           phase,
		ExitCode:        exitCode,
		ErrorCategory:   errorCategory,
		Retryable:       retryable,
		ElapsedMS:       elapsedMS,
		Environment: EnvContext{
			OS:   runtime.GOOS,
			Arch: runtime.GOARCH,
		},
	}
}

// AppendEvent validates, encodes, and appends one event line.
func AppendEvent(path string, event Event) error {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return fmt.Errorf("ops log path is required")
	}
	normalized, err := normalizeEvent(event)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("marshal ops event: %w", err)
	}
	directory := filepath.Dir(trimmedPath)
	if directory != "." && directory != "" {
		if err := os.MkdirAll(directory, 0o750); err != nil {
			return fmt.Errorf("create ops log directory: %w", err)
		}
	}
	file, err := os.OpenFile(trimmedPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open ops log: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()
	if _, err := file.Write(append(encoded, '\n')); err != nil {
		return fmt.Errorf("write ops log: %w", err)
	}
	return nil
}

// LoadEvents reads and validates the whole ops log.
func LoadEvents(path string) ([]Event, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return nil, fmt.Errorf("ops log path is required")
	}
	file, err := os.Open(trimmedPath)
	if err != nil {
		return nil, fmt.Errorf("open ops log: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	events := make([]Event, 0)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var event Event
		if err := json.Unmarshal([]byte(raw), &event); err != nil {
			return nil, fmt.Errorf("parse ops log line %d: %w", line, err)
		}
		normalized, err := normalizeEvent(event)
		if err != nil {
			return nil, fmt.Errorf("validate ops log line %d: %w", line, err)
		}
		events = append(events, normalized)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan ops log: %w", err)
	}
	return events, nil
}

func normalizeEvent(event Event) (Event, error) {
	if strings.TrimSpace(event.SchemaID) != eventSchemaID {
		return Event{}, fmt.Errorf("invalid schema_id %q", event.SchemaID)
	}
	if strings.TrimSpace(event.SchemaVersion) != eventSchemaV1 {
		return Event{}, fmt.Errorf("invalid schema_version %q", event.SchemaVersion)
	}
	if event.CreatedAt.IsZero() {
		return Event{}, fmt.Errorf("created_at is required")
	}
	if strings.TrimSpace(event.ProducerVersion) == "" {
		return Event{}, fmt.Errorf("producer_version is required")
	}
	if strings.TrimSpace(event.Command) == "" {
		return Event{}, fmt.Errorf("command is required")
	}
	phase := strings.ToLower(strings.TrimSpace(event.Phase))
	if phase != "start" && phase != "end" {
		return Event{}, fmt.Errorf("phase must be start or end")
	}
	if event.ExitCode < 0 || event.ExitCode > 255 {
		return Event{}, fmt.Errorf("exit_code out of range")
	}
	if event.ElapsedMS < 0 {
		return Event{}, fmt.Errorf("elapsed_ms out of range")
	}
	category := strings.ToLower(strings.TrimSpace(event.ErrorCategory))
	if category == "" {
		return Event{}, fmt.Errorf("error_category is required")
	}
	if category != "none" {
		switch coreerrors.Category(category) {
		case coreerrors.CategoryInvalidInput,
			coreerrors.CategoryNoOpenSession,
			coreerrors.CategoryDirectoryUnavailable,
			coreerrors.CategoryIdentityNotFound,
			coreerrors.CategoryIdentityAmbiguous,
			coreerrors.CategoryIOFailure,
			coreerrors.CategoryStateContention,
			coreerrors.CategoryInternalFailure:
		default:
			return Event{}, fmt.Errorf("unsupported error_category %q", event.ErrorCategory)
		}
	}
	if strings.TrimSpace(event.Environment.OS) == "" || strings.TrimSpace(event.Environment.Arch) == "" {
		return Event{}, fmt.Errorf("environment os/arch are required")
	}

	return Event{
		SchemaID:        eventSchemaID,
		SchemaVersion:   eventSchemaV1,
		CreatedAt:       event.CreatedAt.UTC(),
		ProducerVersion: strings.TrimSpace(event.ProducerVersion),
		Command:         strings.TrimSpace(event.Command),
		Phase:           phase,
		ExitCode:        event.ExitCode,
		ErrorCategory:   category,
		Retryable:       event.Retryable,
		ElapsedMS:       event.ElapsedMS,
		Environment: EnvContext{
			OS:   strings.TrimSpace(event.Environment.OS),
			Arch: strings.TrimSpace(event.Environment.Arch),
		},
	}, nil
}
