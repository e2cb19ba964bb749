// Package models defines the core data structures used throughout the application.
package models

// Status classifies the outcome recorded for a pull request.
type Status string

const (
	StatusOK            Status = "ok"
	StatusNoCommits     Status = "no_commits"
	StatusNotAccessible Status = "not_accessible"
)

// PullRequestRecord is one input row of the dataset
type PullRequestRecord struct {
	HTMLURL string `json:"html_url"`
	Number  int    `json:"number"`
}

// RepositoryGroup holds every pull request that belongs to one repository,
// in input order, together with the workspace the repository is cloned into.
type RepositoryGroup struct {
	RepoURL      string
	Path         string
	PullRequests []PullRequestRecord
}

// CommitRow is one row of the results table.
// ShortSHA and Message are nil unless Status is StatusOK.
type CommitRow struct {
	RepoURL  string  `db:"repo_url" json:"repo_url"`
	PRNumber int     `db:"pr_number" json:"pr_number"`
	ShortSHA *string `db:"short_sha" json:"short_sha"`
	Message  *string `db:"message" json:"message"`
	Status   Status  `db:"status" json:"status"`
}

// NewCommitRow creates an ok row for a single commit
func NewCommitRow(repoURL string, prNumber int, shortSHA, message string) CommitRow {
	return CommitRow{
		RepoURL:  repoURL,
		PRNumber: prNumber,
		ShortSHA: &shortSHA,
		Message:  &message,
		Status:   StatusOK,
	}
}

// NewStatusRow creates the single row recorded for a pull request without commits
func NewStatusRow(repoURL string, prNumber int, status Status) CommitRow {
	return CommitRow{
		RepoURL:  repoURL,
		PRNumber: prNumber,
		Status:   status,
	}
}

// Summary counts what a crawl run produced.
type Summary struct {
	Groups       int            `json:"groups"`
	PullRequests int            `json:"pull_requests"`
	Rows         int            `json:"rows"`
	Skipped      int            `json:"skipped"`
	Statuses     map[Status]int `json:"statuses"`
}

// NewSummary creates an empty Summary
func NewSummary() *Summary {
	return &Summary{Statuses: make(map[Status]int)}
}
