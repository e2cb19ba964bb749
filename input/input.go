// Package input loads the pull request dataset the crawler works through.
package input

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"prcrawl/logger"
	"prcrawl/models"
)

// Common errors
var (
	ErrInvalidRecord = errors.New("invalid pull request record")
	ErrMissingColumn = errors.New("missing column")
)

const (
	columnHTMLURL = "html_url"
	columnNumber  = "number"
)

// Load reads pull request records from path. Files ending in .jsonl or .ndjson
// hold one JSON object per line; anything else is read as CSV with a header row.
func Load(path string) ([]models.PullRequestRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input %s: %w", path, err)
	}
	defer f.Close()

	var records []models.PullRequestRecord
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		records, err = ReadJSONLines(f)
	default:
		records, err = ReadCSV(f)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read input %s: %w", path, err)
	}

	logger.Info("Loaded pull request records", zap.String("path", path), zap.Int("count", len(records)))
	return records, nil
}

// ReadCSV reads records from a CSV stream whose header names at least
// html_url and number. Other columns are ignored.
func ReadCSV(r io.Reader) ([]models.PullRequestRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	urlIdx, numberIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case columnHTMLURL:
			urlIdx = i
		case columnNumber:
			numberIdx = i
		}
	}
	if urlIdx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, columnHTMLURL)
	}
	if numberIdx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, columnNumber)
	}

	var records []models.PullRequestRecord
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		line, _ := reader.FieldPos(0)
		if urlIdx >= len(fields) || numberIdx >= len(fields) {
			return nil, fmt.Errorf("%w: line %d has %d fields", ErrInvalidRecord, line, len(fields))
		}

		record, err := newRecord(fields[urlIdx], fields[numberIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, record)
	}

	return records, nil
}

// ReadJSONLines reads one {"html_url": ..., "number": ...} object per line
func ReadJSONLines(r io.Reader) ([]models.PullRequestRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var records []models.PullRequestRecord
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var raw struct {
			HTMLURL string      `json:"html_url"`
			Number  json.Number `json:"number"`
		}
		if err := json.Unmarshal([]byte(text), &raw); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidRecord, line, err)
		}

		record, err := newRecord(raw.HTMLURL, raw.Number.String())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan input: %w", err)
	}

	return records, nil
}

func newRecord(htmlURL, number string) (models.PullRequestRecord, error) {
	htmlURL = strings.TrimSpace(htmlURL)
	if htmlURL == "" {
		return models.PullRequestRecord{}, fmt.Errorf("%w: empty %s", ErrInvalidRecord, columnHTMLURL)
	}

	n, err := parseNumber(strings.TrimSpace(number))
	if err != nil {
		return models.PullRequestRecord{}, fmt.Errorf("%w: %s %q: %v", ErrInvalidRecord, columnNumber, number, err)
	}
	if n <= 0 {
		return models.PullRequestRecord{}, fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidRecord, columnNumber, n)
	}

	return models.PullRequestRecord{HTMLURL: htmlURL, Number: n}, nil
}

// parseNumber accepts integers and integral floats ("42.0"), which dataframe
// exports produce for integer columns that once held nulls.
func parseNumber(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("not an integer")
	}
	return int(f), nil
}
