// Package repourl derives repository identities from pull request URLs.
package repourl

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrMalformedURL is returned when a URL does not name an owner/repo pair
var ErrMalformedURL = errors.New("malformed repository url")

const pullSegment = "/pull/"

// RepoURL returns the clone URL of the repository a pull request belongs to:
// everything before the "/pull/<n>" path segment, suffixed with ".git".
// https://github.com/django/django/pull/42 -> https://github.com/django/django.git
// The prefix must still name an owner and a repository.
func RepoURL(prURL string) (string, error) {
	i := strings.LastIndex(prURL, pullSegment)
	if i < 0 {
		return "", fmt.Errorf("%w: %q has no %s segment", ErrMalformedURL, prURL, pullSegment)
	}

	rest := prURL[i+len(pullSegment):]
	digits := strings.IndexFunc(rest, func(r rune) bool { return r < '0' || r > '9' })
	if digits < 0 {
		digits = len(rest)
	}
	if digits < len(rest) && !strings.ContainsRune("/?#", rune(rest[digits])) {
		return "", fmt.Errorf("%w: %q has no pull request number", ErrMalformedURL, prURL)
	}
	if n, err := strconv.Atoi(rest[:digits]); err != nil || n <= 0 {
		return "", fmt.Errorf("%w: %q has no pull request number", ErrMalformedURL, prURL)
	}

	base := prURL[:i]
	if _, err := LocalName(base); err != nil {
		return "", fmt.Errorf("%w: %q does not name an owner and repository", ErrMalformedURL, prURL)
	}
	return base + ".git", nil
}

// LocalName returns the workspace directory name for a repository URL.
// https://github.com/django/django.git -> django-django
func LocalName(repoURL string) (string, error) {
	trimmed := strings.TrimSuffix(strings.TrimRight(repoURL, "/"), ".git")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 {
		return "", fmt.Errorf("%w: %q", ErrMalformedURL, repoURL)
	}

	owner, name := parts[len(parts)-2], parts[len(parts)-1]
	if owner == "" || name == "" {
		return "", fmt.Errorf("%w: %q has an empty owner or name", ErrMalformedURL, repoURL)
	}
	return owner + "-" + name, nil
}

// WorkspacePath returns the directory under root that repoURL is cloned into
func WorkspacePath(root, repoURL string) (string, error) {
	name, err := LocalName(repoURL)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, name), nil
}
