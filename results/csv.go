// Package results persists commit rows to a CSV table that grows one repository at a time.
package results

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"prcrawl/logger"
	"prcrawl/models"
)

// Header is the first line of every results table
var Header = []string{"repo_url", "pr_number", "short_sha", "message", "status"}

// CSVTable appends commit rows to a CSV file
type CSVTable struct {
	path string
}

// NewCSVTable creates a table backed by the file at path
func NewCSVTable(path string) *CSVTable {
	return &CSVTable{path: path}
}

// Path returns the location of the table
func (t *CSVTable) Path() string {
	return t.path
}

// Reset deletes the table left behind by a previous run
func (t *CSVTable) Reset(_ context.Context) error {
	err := os.Remove(t.path)
	switch {
	case err == nil:
		logger.Info("Removed previous results table", zap.String("path", t.path))
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("failed to remove results table %s: %w", t.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}
	return nil
}

// Append writes rows as one batch, preceded by the header when the file is new.
// The batch is encoded up front and handed to a single write call.
// The file is opened and closed on every call.
func (t *CSVTable) Append(_ context.Context, rows []models.CommitRow) (err error) {
	if len(rows) == 0 {
		return nil
	}

	_, statErr := os.Stat(t.path)
	batch, err := encode(rows, errors.Is(statErr, fs.ErrNotExist))
	if err != nil {
		return err
	}

	f, err := os.OpenFile(t.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open results table: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close results table: %w", closeErr)
		}
	}()

	if _, err := f.Write(batch); err != nil {
		return fmt.Errorf("failed to write results table: %w", err)
	}

	logger.Info("Appended rows to results table",
		zap.String("path", t.path),
		zap.Int("count", len(rows)))
	return nil
}

func encode(rows []models.CommitRow, withHeader bool) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if withHeader {
		if err := w.Write(Header); err != nil {
			return nil, fmt.Errorf("failed to encode header: %w", err)
		}
	}
	for _, row := range rows {
		if err := w.Write(record(row)); err != nil {
			return nil, fmt.Errorf("failed to encode row for PR %d: %w", row.PRNumber, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to encode rows: %w", err)
	}
	return buf.Bytes(), nil
}

func record(row models.CommitRow) []string {
	return []string{
		row.RepoURL,
		strconv.Itoa(row.PRNumber),
		deref(row.ShortSHA),
		deref(row.Message),
		string(row.Status),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
