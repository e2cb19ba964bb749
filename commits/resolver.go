// Package commits resolves the commits a pull request adds on top of its base branch.
package commits

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"prcrawl/git"
	"prcrawl/logger"
)

// Kind tells which outcome a Result carries
type Kind int

const (
	// KindCommits means the range query succeeded and listed at least one commit.
	KindCommits Kind = iota
	// KindEmpty means the range query succeeded without output.
	KindEmpty
	// KindNotAccessible means the pull request ref could not be fetched or no base branch worked.
	KindNotAccessible
)

func (k Kind) String() string {
	switch k {
	case KindCommits:
		return "commits"
	case KindEmpty:
		return "empty"
	case KindNotAccessible:
		return "not_accessible"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Commit is one line of `git log --oneline`
type Commit struct {
	ShortSHA string
	Message  string
}

// Result is the outcome of resolving one pull request.
// Base is the branch the range was computed against; Commits is only set for KindCommits.
type Result struct {
	Kind    Kind
	Base    string
	Commits []Commit
}

// DefaultBaseBranches are tried in order until one yields a log
var DefaultBaseBranches = []string{"main", "master"}

// Resolver fetches pull request heads and lists the commits unique to them
type Resolver struct {
	runner git.Runner
	bases  []string
}

// NewResolver creates a Resolver. An empty bases slice selects DefaultBaseBranches.
func NewResolver(runner git.Runner, bases []string) *Resolver {
	if len(bases) == 0 {
		bases = DefaultBaseBranches
	}
	return &Resolver{
		runner: runner,
		bases:  bases,
	}
}

// BranchName is the local branch a pull request head is fetched into
func BranchName(prNumber int) string {
	return fmt.Sprintf("pr-%d", prNumber)
}

// Resolve fetches the head of pull request prNumber into the clone at dir and
// lists the commits reachable from it but not from the first base branch whose
// log query exits successfully. Failures are reported through the Result kind.
func (r *Resolver) Resolve(ctx context.Context, dir string, prNumber int) Result {
	branch := BranchName(prNumber)
	refspec := fmt.Sprintf("pull/%d/head:%s", prNumber, branch)

	logger.Info("Fetching pull request", logger.PR(prNumber), zap.String("branch", branch))
	if _, err := r.runner.Run(ctx, dir, "fetch", "origin", refspec); err != nil {
		logger.Error("Failed to fetch pull request",
			logger.PR(prNumber),
			zap.String("dir", dir),
			zap.String("stderr", git.Stderr(err)))
		return Result{Kind: KindNotAccessible}
	}

	for _, base := range r.bases {
		rangeSpec := base + ".." + branch
		logger.Debug("Listing commits", logger.PR(prNumber), zap.String("range", rangeSpec))

		out, err := r.runner.Run(ctx, dir, "log", "--oneline", rangeSpec)
		if err != nil {
			logger.Warn("git log failed for base branch",
				logger.PR(prNumber),
				zap.String("base", base),
				zap.String("stderr", git.Stderr(err)))
			continue
		}

		commits := parseLog(out)
		if len(commits) == 0 {
			return Result{Kind: KindEmpty, Base: base}
		}
		return Result{Kind: KindCommits, Base: base, Commits: commits}
	}

	logger.Error("Could not list commits against any base branch",
		logger.PR(prNumber),
		zap.Strings("bases", r.bases))
	return Result{Kind: KindNotAccessible}
}

// ParseLogLine splits a `--oneline` entry on its first space.
// A line without a message yields an empty Message.
func ParseLogLine(line string) Commit {
	sha, message, _ := strings.Cut(line, " ")
	return Commit{ShortSHA: sha, Message: message}
}

func parseLog(out string) []Commit {
	var commits []Commit
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		commits = append(commits, ParseLogLine(line))
	}
	return commits
}
