package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"prcrawl/commits"
	"prcrawl/config"
	"prcrawl/db"
	"prcrawl/git"
	"prcrawl/input"
	"prcrawl/logger"
	"prcrawl/models"
	"prcrawl/results"
	"prcrawl/workspace"
)

// Service errors
var (
	ErrServiceInit     = errors.New("service initialization error")
	ErrServiceShutdown = errors.New("service shutdown error")
)

// Service represents the main application service
type Service struct {
	config   *config.Config
	crawler  *Crawler
	database *db.DB
}

// NewService wires the crawler from cfg. The Postgres sink is connected only when enabled.
func NewService(ctx context.Context, cfg *config.Config) (*Service, error) {
	runner := git.NewCLI(cfg.GitBinary, cfg.GitTimeout)
	recorders := []Recorder{results.NewCSVTable(cfg.ResultsPath)}

	var database *db.DB
	if cfg.Database.Enabled {
		var err error
		database, err = db.New(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to initialize database: %v", ErrServiceInit, err)
		}
		if err := database.EnsureSchema(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("%w: %v", ErrServiceInit, err)
		}
		recorders = append(recorders, database)
	}

	crawler := NewCrawler(
		workspace.NewManager(runner),
		commits.NewResolver(runner, cfg.BaseBranches),
		cfg.WorkspaceDir,
		recorders...,
	)

	logger.Info("Service initialized successfully",
		zap.String("input_path", cfg.InputPath),
		zap.String("results_path", cfg.ResultsPath),
		zap.String("workspace_dir", cfg.WorkspaceDir),
		zap.Strings("base_branches", cfg.BaseBranches),
		zap.Duration("git_timeout", cfg.GitTimeout),
		zap.Bool("database", cfg.Database.Enabled))

	return &Service{
		config:   cfg,
		crawler:  crawler,
		database: database,
	}, nil
}

// Run loads the input dataset and crawls it while holding the locks on the
// results table and the workspace root. Rows go to the recorders as each
// repository finishes; only the Summary is returned.
func (s *Service) Run(ctx context.Context) (*models.Summary, error) {
	records, err := input.Load(s.config.InputPath)
	if err != nil {
		return nil, err
	}

	var summary *models.Summary
	err = WithLock(s.config.ResultsPath, s.config.LockTimeout, func() error {
		return WithLock(s.config.WorkspaceDir, s.config.LockTimeout, func() error {
			var crawlErr error
			summary, crawlErr = s.crawler.Crawl(ctx, records)
			return crawlErr
		})
	})
	return summary, err
}

// Close performs cleanup operations
func (s *Service) Close() error {
	logger.Info("Closing service")
	if s.database == nil {
		return nil
	}
	if err := s.database.Close(); err != nil {
		return fmt.Errorf("%w: failed to close database: %v", ErrServiceShutdown, err)
	}
	return nil
}
