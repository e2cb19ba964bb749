package results

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prcrawl/models"
)

const repoURL = "https://github.com/octo/hello.git"

func readTable(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.csv")
	table := NewCSVTable(path)
	ctx := context.Background()

	require.NoError(t, table.Reset(ctx))
	require.NoError(t, table.Append(ctx, []models.CommitRow{
		models.NewCommitRow(repoURL, 7, "a1b2c3d", "Fix bug, again"),
		models.NewCommitRow(repoURL, 7, "d4e5f6a", ""),
	}))
	require.NoError(t, table.Append(ctx, []models.CommitRow{
		models.NewStatusRow("https://github.com/octo/other.git", 3, models.StatusNotAccessible),
	}))

	assert.Equal(t, [][]string{
		Header,
		{repoURL, "7", "a1b2c3d", "Fix bug, again", "ok"},
		{repoURL, "7", "d4e5f6a", "", "ok"},
		{"https://github.com/octo/other.git", "3", "", "", "not_accessible"},
	}, readTable(t, path))
}

func TestAppendEmptyBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")

	require.NoError(t, NewCSVTable(path).Append(context.Background(), nil))

	assert.NoFileExists(t, path)
}

func TestResetRemovesPreviousRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	require.NoError(t, os.WriteFile(path, []byte("repo_url,pr_number,short_sha,message,status\nstale,1,,,no_commits\n"), 0o644))
	table := NewCSVTable(path)
	ctx := context.Background()

	require.NoError(t, table.Reset(ctx))
	assert.NoFileExists(t, path)

	require.NoError(t, table.Append(ctx, []models.CommitRow{
		models.NewStatusRow(repoURL, 9, models.StatusNoCommits),
	}))

	assert.Equal(t, [][]string{
		Header,
		{repoURL, "9", "", "", "no_commits"},
	}, readTable(t, path))
}

func TestResetMissingTable(t *testing.T) {
	table := NewCSVTable(filepath.Join(t.TempDir(), "nested", "results.csv"))

	assert.NoError(t, table.Reset(context.Background()))
	assert.DirExists(t, filepath.Dir(table.Path()))
}

func TestEncodeLargeBatch(t *testing.T) {
	message := strings.Repeat("refactor the parser ", 20)
	rows := make([]models.CommitRow, 0, 100)
	for i := 0; i < 100; i++ {
		rows = append(rows, models.NewCommitRow(repoURL, 7, fmt.Sprintf("%07x", i), message))
	}

	testCases := []struct {
		name       string
		withHeader bool
		expected   int
	}{
		{name: "new table", withHeader: true, expected: 101},
		{name: "existing table", withHeader: false, expected: 100},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			batch, err := encode(rows, tc.withHeader)
			require.NoError(t, err)
			assert.Greater(t, len(batch), 4096)

			records, err := csv.NewReader(bytes.NewReader(batch)).ReadAll()
			require.NoError(t, err)
			assert.Len(t, records, tc.expected)
			assert.Equal(t, tc.withHeader, records[0][0] == Header[0])
			assert.Equal(t, []string{repoURL, "7", "0000063", message, "ok"}, records[len(records)-1])
		})
	}
}

func TestAppendLargeBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	message := strings.Repeat("x", 512)
	rows := make([]models.CommitRow, 0, 50)
	for i := 0; i < 50; i++ {
		rows = append(rows, models.NewCommitRow(repoURL, 3, fmt.Sprintf("%07d", i), message))
	}

	require.NoError(t, NewCSVTable(path).Append(context.Background(), rows))

	records := readTable(t, path)
	assert.Len(t, records, 51)
	assert.Equal(t, Header, records[0])
}

func TestAppendUnwritableTable(t *testing.T) {
	path := t.TempDir()

	err := NewCSVTable(path).Append(context.Background(), []models.CommitRow{
		models.NewStatusRow(repoURL, 9, models.StatusNoCommits),
	})

	assert.ErrorContains(t, err, "failed to open results table")
}
