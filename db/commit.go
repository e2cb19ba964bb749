package db

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"prcrawl/logger"
	"prcrawl/models"
)

// Reset removes the rows of a previous run
func (db *DB) Reset(ctx context.Context) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM pr_commits`)
	if err != nil {
		return fmt.Errorf("failed to clear pr_commits: %w", err)
	}

	deleted, _ := res.RowsAffected()
	logger.Info("Cleared previous results", zap.Int64("count", deleted))
	return nil
}

// Append inserts one repository's rows in a single transaction
func (db *DB) Append(ctx context.Context, rows []models.CommitRow) error {
	if len(rows) == 0 {
		return nil
	}
	for _, row := range rows {
		if row.RepoURL == "" || row.Status == "" {
			return fmt.Errorf("%w: repository url and status cannot be empty", ErrInvalidInput)
		}
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO pr_commits (repo_url, pr_number, short_sha, message, status)
		VALUES ($1, $2, $3, $4, $5)
	`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare commit insert statement: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			row.RepoURL,
			row.PRNumber,
			nullString(row.ShortSHA),
			nullString(row.Message),
			string(row.Status),
		); err != nil {
			return fmt.Errorf("failed to insert row for PR %d: %w", row.PRNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %v", ErrTransactionFailed, err)
	}

	logger.Info("Inserted result rows", logger.Repo(rows[0].RepoURL), zap.Int("count", len(rows)))
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
