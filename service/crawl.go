package service

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"prcrawl/commits"
	"prcrawl/logger"
	"prcrawl/models"
)

// WorkspaceManager abstracts the clone lifecycle of a repository
// (for testability)
type WorkspaceManager interface {
	Acquire(ctx context.Context, repoURL, path string) error
	Release(path string)
}

// RangeResolver abstracts the per pull request commit lookup
// (for testability)
type RangeResolver interface {
	Resolve(ctx context.Context, dir string, prNumber int) commits.Result
}

// Recorder persists result rows, one repository batch per Append call
type Recorder interface {
	Reset(ctx context.Context) error
	Append(ctx context.Context, rows []models.CommitRow) error
}

// Crawler walks repository groups one at a time
type Crawler struct {
	workspaces   WorkspaceManager
	resolver     RangeResolver
	recorders    []Recorder
	workspaceDir string
}

// NewCrawler creates a Crawler that clones into workspaceDir and writes every batch to each recorder
func NewCrawler(workspaces WorkspaceManager, resolver RangeResolver, workspaceDir string, recorders ...Recorder) *Crawler {
	return &Crawler{
		workspaces:   workspaces,
		resolver:     resolver,
		recorders:    recorders,
		workspaceDir: workspaceDir,
	}
}

// Crawl resets the recorders, then processes every repository group in turn and
// records its rows once the group is done. Git failures become row statuses;
// only recorder failures and cancellation stop the run. A group interrupted by
// cancellation is not recorded.
func (c *Crawler) Crawl(ctx context.Context, records []models.PullRequestRecord) (*models.Summary, error) {
	summary := models.NewSummary()

	if err := c.reset(ctx); err != nil {
		return summary, err
	}

	groups, skipped := GroupByRepository(records, c.workspaceDir)
	summary.Skipped = skipped

	logger.Info("Starting crawl",
		zap.Int("repositories", len(groups)),
		zap.Int("pull_requests", len(records)-skipped),
		zap.Int("skipped", skipped))

	for i, group := range groups {
		if ctx.Err() != nil {
			return summary, fmt.Errorf("crawl cancelled before %s: %w", group.RepoURL, ctx.Err())
		}

		logger.Info("Processing repository",
			logger.Repo(group.RepoURL),
			zap.Int("index", i+1),
			zap.Int("total", len(groups)),
			zap.Int("pull_requests", len(group.PullRequests)))

		rows, statuses := c.processRepository(ctx, group)

		if ctx.Err() != nil {
			return summary, fmt.Errorf("crawl cancelled during %s: %w", group.RepoURL, ctx.Err())
		}

		if err := c.append(ctx, rows); err != nil {
			return summary, fmt.Errorf("failed to record %s: %w", group.RepoURL, err)
		}
		summary.Groups++
		summary.PullRequests += len(group.PullRequests)
		summary.Rows += len(rows)
		for status, n := range statuses {
			summary.Statuses[status] += n
		}
	}

	logger.Info("Crawl finished",
		zap.Int("repositories", summary.Groups),
		zap.Int("pull_requests", summary.PullRequests),
		zap.Int("rows", summary.Rows),
		zap.Int("ok", summary.Statuses[models.StatusOK]),
		zap.Int("no_commits", summary.Statuses[models.StatusNoCommits]),
		zap.Int("not_accessible", summary.Statuses[models.StatusNotAccessible]),
		zap.Int("skipped", summary.Skipped))

	return summary, nil
}

// processRepository acquires the group's workspace, resolves every pull request and
// returns the rows to record with the number of pull requests per status.
// The workspace is released on every exit path, a failed Acquire included: a
// reused workspace whose fetch fails is removed and cloned afresh next run.
func (c *Crawler) processRepository(ctx context.Context, group models.RepositoryGroup) ([]models.CommitRow, map[models.Status]int) {
	defer c.workspaces.Release(group.Path)

	rows := make([]models.CommitRow, 0, len(group.PullRequests))
	statuses := make(map[models.Status]int)

	if err := c.workspaces.Acquire(ctx, group.RepoURL, group.Path); err != nil {
		logger.Warn("Repository not accessible, skipping all its pull requests",
			logger.Repo(group.RepoURL),
			zap.Error(err))
		for _, pr := range group.PullRequests {
			rows = append(rows, models.NewStatusRow(group.RepoURL, pr.Number, models.StatusNotAccessible))
		}
		statuses[models.StatusNotAccessible] = len(group.PullRequests)
		return rows, statuses
	}

	for _, pr := range group.PullRequests {
		result := c.resolver.Resolve(ctx, group.Path, pr.Number)
		prRows := rowsFor(group.RepoURL, pr.Number, result)
		rows = append(rows, prRows...)
		statuses[prRows[0].Status]++

		logger.Info("Resolved pull request",
			logger.Repo(group.RepoURL),
			logger.PR(pr.Number),
			zap.Stringer("result", result.Kind),
			zap.String("base", result.Base),
			zap.Int("commits", len(result.Commits)))
	}
	return rows, statuses
}

// rowsFor turns a resolver result into the rows recorded for one pull request
func rowsFor(repoURL string, prNumber int, result commits.Result) []models.CommitRow {
	switch {
	case result.Kind == commits.KindCommits && len(result.Commits) > 0:
		rows := make([]models.CommitRow, 0, len(result.Commits))
		for _, commit := range result.Commits {
			rows = append(rows, models.NewCommitRow(repoURL, prNumber, commit.ShortSHA, commit.Message))
		}
		return rows
	case result.Kind != commits.KindNotAccessible:
		return []models.CommitRow{models.NewStatusRow(repoURL, prNumber, models.StatusNoCommits)}
	default:
		return []models.CommitRow{models.NewStatusRow(repoURL, prNumber, models.StatusNotAccessible)}
	}
}

func (c *Crawler) reset(ctx context.Context) error {
	var err error
	for _, recorder := range c.recorders {
		err = multierr.Append(err, recorder.Reset(ctx))
	}
	if err != nil {
		return fmt.Errorf("failed to reset results: %w", err)
	}
	return nil
}

func (c *Crawler) append(ctx context.Context, rows []models.CommitRow) error {
	var err error
	for _, recorder := range c.recorders {
		err = multierr.Append(err, recorder.Append(ctx, rows))
	}
	return err
}
