package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another crawl holds the results table or the workspace root
var ErrLocked = errors.New("locked by another run")

const lockRetryDelay = 100 * time.Millisecond

// LockPath returns the lock file guarding path: a sibling named <path>.lock
func LockPath(path string) string {
	return filepath.Clean(path) + ".lock"
}

// WithLock holds an exclusive lock on LockPath(path) while fn runs. It waits up
// to timeout for a lock held by another process, then fails with ErrLocked.
func WithLock(path string, timeout time.Duration, fn func() error) error {
	lockPath := LockPath(path)
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}
	fileLock := flock.New(lockPath)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("acquiring lock on %s: %w", lockPath, err)
	}
	if !locked {
		return fmt.Errorf("%w: timed out acquiring %s", ErrLocked, lockPath)
	}
	defer fileLock.Unlock()

	return fn()
}
