// Package workspace owns the local clones that repositories are crawled in.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"prcrawl/git"
	"prcrawl/logger"
)

// ErrRepoNotAccessible is returned when a repository can be neither cloned nor fetched
var ErrRepoNotAccessible = errors.New("repository not accessible")

// Manager clones repositories into workspaces and removes them afterwards
type Manager struct {
	runner git.Runner
}

// NewManager creates a Manager that drives git through runner
func NewManager(runner git.Runner) *Manager {
	return &Manager{runner: runner}
}

// Acquire makes path a usable clone of repoURL. A missing path is cloned;
// an existing one is refreshed with a fetch of origin, leaving the work tree alone.
func (m *Manager) Acquire(ctx context.Context, repoURL, path string) error {
	_, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return m.clone(ctx, repoURL, path)
	case err != nil:
		return fmt.Errorf("%w: %s: %v", ErrRepoNotAccessible, path, err)
	default:
		return m.fetch(ctx, repoURL, path)
	}
}

func (m *Manager) clone(ctx context.Context, repoURL, path string) error {
	logger.Info("Cloning repository", logger.Repo(repoURL), zap.String("path", path))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: failed to create workspace root: %v", ErrRepoNotAccessible, err)
	}

	if _, err := m.runner.Run(ctx, "", "clone", repoURL, path); err != nil {
		logger.Error("Failed to clone repository",
			logger.Repo(repoURL),
			zap.String("stderr", git.Stderr(err)),
			zap.Error(err))
		return fmt.Errorf("%w: clone %s: %w", ErrRepoNotAccessible, repoURL, err)
	}
	return nil
}

func (m *Manager) fetch(ctx context.Context, repoURL, path string) error {
	logger.Info("Repository already exists, fetching updates", logger.Repo(repoURL), zap.String("path", path))

	if _, err := m.runner.Run(ctx, path, "fetch", "origin"); err != nil {
		logger.Error("Failed to fetch repository",
			logger.Repo(repoURL),
			zap.String("path", path),
			zap.String("stderr", git.Stderr(err)),
			zap.Error(err))
		return fmt.Errorf("%w: fetch in %s: %w", ErrRepoNotAccessible, path, err)
	}
	return nil
}

// Release removes path and everything below it. Failures are logged and otherwise ignored.
func (m *Manager) Release(path string) {
	if _, err := os.Lstat(path); err != nil {
		return
	}

	logger.Info("Deleting workspace", zap.String("path", path))
	if err := os.RemoveAll(path); err != nil {
		logger.Warn("Failed to delete workspace", zap.String("path", path), zap.Error(err))
	}
}
