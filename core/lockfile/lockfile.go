// Package lockfile implements cross-process mutual exclusion around ledger
// rewrites. Ownership is represented by the existence of a zero-length
// marker file created with O_EXCL; content is irrelevant.
//
// Acquisition has no timeout and no fairness guarantee. A process that
// crashes while holding the marker leaves a stale lock that blocks every
// future rewrite until it is removed externally; that failure mode is
// documented and deliberately not auto-recovered. Context cancellation is
// the only way out of the retry loop.
package lockfile

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/DoubleTroublePy/weeelab/core/clock"
)

// DefaultRetryInterval is how long Acquire sleeps between attempts when the
// marker already exists. It is explicit configuration, not a hidden default:
// callers can override it through Options.
const DefaultRetryInterval = 500 * time.Millisecond

type Options struct {
	// RetryInterval overrides DefaultRetryInterval when > 0.
	RetryInterval time.Duration

	// Clock drives the retry sleep. Nil means the real clock.
	Clock clock.Clock
}

// Lock guards a shared file by a sibling marker path. It is not reentrant
// and must not be shared across goroutines of one process; it models
// cross-process exclusion only.
type Lock struct {
	markerPath string
	interval   time.Duration
	clock      clock.Clock
	held       bool
}

// New returns a Lock for the marker path. By convention the marker is the
// guarded file's path plus a ".lock" suffix; see ForFile.
func New(markerPath string, options Options) *Lock {
	interval := options.RetryInterval
	if interval <= 0 {
		interval = DefaultRetryInterval
	}
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &Lock{
		markerPath: markerPath,
		interval:   interval,
		clock:      clk,
	}
}

// ForFile returns a Lock whose marker sits next to the guarded file.
func ForFile(path string, options Options) *Lock {
	return New(path+".lock", options)
}

// Path returns the marker path.
func (l *Lock) Path() string {
	return l.markerPath
}

// Acquire blocks until the marker is created exclusively. It retries every
// RetryInterval for as long as the marker exists, without bound, and returns
// early only on context cancellation or an unexpected filesystem error.
func (l *Lock) Acquire(ctx context.Context) error {
	if l.held {
		return fmt.Errorf("lock %s is not reentrant", l.markerPath)
	}
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("acquire lock %s: %w", l.markerPath, err)
		}
		markerFile, err := os.OpenFile(l.markerPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_ = markerFile.Close()
			l.held = true
			return nil
		}
		if !os.IsExist(err) {
			return fmt.Errorf("create lock marker: %w", err)
		}
		l.clock.Sleep(l.interval)
	}
}

// Release removes the marker. Releasing a lock that is not held is an error.
func (l *Lock) Release() error {
	if !l.held {
		return fmt.Errorf("release lock %s: not held", l.markerPath)
	}
	l.held = false
	if err := os.Remove(l.markerPath); err != nil {
		return fmt.Errorf("remove lock marker: %w", err)
	}
	return nil
}

// WithLock runs fn while holding the lock, releasing it on every exit path.
func (l *Lock) WithLock(ctx context.Context, fn func() error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer func() {
		_ = l.Release()
	}()
	return fn()
}
