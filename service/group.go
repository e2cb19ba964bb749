package service

import (
	"sort"

	"go.uber.org/zap"

	"prcrawl/logger"
	"prcrawl/models"
	"prcrawl/repourl"
)

// GroupByRepository buckets records by repository, ordered by repository URL,
// keeping input order inside each bucket. Records whose URL does not name a
// repository are logged and left out; their count is returned as skipped.
func GroupByRepository(records []models.PullRequestRecord, workspaceDir string) (groups []models.RepositoryGroup, skipped int) {
	index := make(map[string]int)

	for _, record := range records {
		repoURL, path, err := locate(record, workspaceDir)
		if err != nil {
			logger.Error("Skipping pull request with malformed URL",
				zap.String("html_url", record.HTMLURL),
				logger.PR(record.Number),
				zap.Error(err))
			skipped++
			continue
		}

		i, ok := index[repoURL]
		if !ok {
			i = len(groups)
			index[repoURL] = i
			groups = append(groups, models.RepositoryGroup{RepoURL: repoURL, Path: path})
		}
		groups[i].PullRequests = append(groups[i].PullRequests, record)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].RepoURL < groups[j].RepoURL
	})
	return groups, skipped
}

func locate(record models.PullRequestRecord, workspaceDir string) (repoURL, path string, err error) {
	if repoURL, err = repourl.RepoURL(record.HTMLURL); err != nil {
		return "", "", err
	}
	if path, err = repourl.WorkspacePath(workspaceDir, repoURL); err != nil {
		return "", "", err
	}
	return repoURL, path, nil
}
