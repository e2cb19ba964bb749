// Package db mirrors the results table into Postgres.
package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"prcrawl/config"
	"prcrawl/logger"
)

// DB represents a database connection
type DB struct {
	conn *sqlx.DB
}

// New creates a new database connection
func New(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	logger.Info("Connecting to database",
		zap.String("host", cfg.Host),
		zap.String("port", cfg.Port),
		zap.String("dbname", cfg.Name))

	conn, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseConnection, err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	logger.Info("Database connection established",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
		zap.Duration("conn_max_lifetime", cfg.ConnMaxLifetime))

	return &DB{conn: conn}, nil
}

// NewWithConn wraps an existing connection
func NewWithConn(conn *sqlx.DB) *DB {
	return &DB{conn: conn}
}

// EnsureSchema creates the pr_commits table if it is missing
func (db *DB) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS pr_commits (
			id         BIGSERIAL PRIMARY KEY,
			repo_url   TEXT NOT NULL,
			pr_number  INTEGER NOT NULL,
			short_sha  TEXT,
			message    TEXT,
			status     TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := db.conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create pr_commits table: %w", err)
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}
