package commits

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"prcrawl/git"
)

// MockRunner is a mock implementation of git.Runner
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	called := m.Called(ctx, dir, args)
	return called.String(0), called.Error(1)
}

const dir = "/work/octo-hello"

var (
	fetchPR7   = []string{"fetch", "origin", "pull/7/head:pr-7"}
	logMain    = []string{"log", "--oneline", "main..pr-7"}
	logMaster  = []string{"log", "--oneline", "master..pr-7"}
	errGitExit = &git.CommandError{ExitCode: 128, Stderr: "fatal: ambiguous argument"}
)

func TestResolve(t *testing.T) {
	testCases := []struct {
		name       string
		setupMocks func(*MockRunner)
		expected   Result
	}{
		{
			name: "commits against main",
			setupMocks: func(runner *MockRunner) {
				runner.On("Run", mock.Anything, dir, fetchPR7).Return("", nil)
				runner.On("Run", mock.Anything, dir, logMain).
					Return("a1b2c3d Fix bug in parser\nd4e5f6a Add tests", nil)
			},
			expected: Result{
				Kind: KindCommits,
				Base: "main",
				Commits: []Commit{
					{ShortSHA: "a1b2c3d", Message: "Fix bug in parser"},
					{ShortSHA: "d4e5f6a", Message: "Add tests"},
				},
			},
		},
		{
			name: "falls back to master",
			setupMocks: func(runner *MockRunner) {
				runner.On("Run", mock.Anything, dir, fetchPR7).Return("", nil)
				runner.On("Run", mock.Anything, dir, logMain).Return("", errGitExit)
				runner.On("Run", mock.Anything, dir, logMaster).Return("a1b2c3d Fix bug", nil)
			},
			expected: Result{
				Kind:    KindCommits,
				Base:    "master",
				Commits: []Commit{{ShortSHA: "a1b2c3d", Message: "Fix bug"}},
			},
		},
		{
			name: "empty log means no unique commits",
			setupMocks: func(runner *MockRunner) {
				runner.On("Run", mock.Anything, dir, fetchPR7).Return("", nil)
				runner.On("Run", mock.Anything, dir, logMain).Return("", nil)
			},
			expected: Result{Kind: KindEmpty, Base: "main"},
		},
		{
			name: "pull request fetch failure",
			setupMocks: func(runner *MockRunner) {
				runner.On("Run", mock.Anything, dir, fetchPR7).Return("", errGitExit)
			},
			expected: Result{Kind: KindNotAccessible},
		},
		{
			name: "every base branch fails",
			setupMocks: func(runner *MockRunner) {
				runner.On("Run", mock.Anything, dir, fetchPR7).Return("", nil)
				runner.On("Run", mock.Anything, dir, logMain).Return("", errGitExit)
				runner.On("Run", mock.Anything, dir, logMaster).Return("", errGitExit)
			},
			expected: Result{Kind: KindNotAccessible},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			runner := &MockRunner{}
			tc.setupMocks(runner)

			result := NewResolver(runner, nil).Resolve(context.Background(), dir, 7)

			assert.Equal(t, tc.expected, result)
			runner.AssertExpectations(t)
		})
	}
}

func TestResolveStopsAfterFailedFetch(t *testing.T) {
	runner := &MockRunner{}
	runner.On("Run", mock.Anything, dir, fetchPR7).Return("", errGitExit)

	result := NewResolver(runner, nil).Resolve(context.Background(), dir, 7)

	assert.Equal(t, KindNotAccessible, result.Kind)
	runner.AssertNumberOfCalls(t, "Run", 1)
}

func TestResolveCustomBases(t *testing.T) {
	runner := &MockRunner{}
	runner.On("Run", mock.Anything, dir, fetchPR7).Return("", nil)
	runner.On("Run", mock.Anything, dir, []string{"log", "--oneline", "develop..pr-7"}).Return("abc1234", nil)

	result := NewResolver(runner, []string{"develop"}).Resolve(context.Background(), dir, 7)

	assert.Equal(t, Result{Kind: KindCommits, Base: "develop", Commits: []Commit{{ShortSHA: "abc1234"}}}, result)
	runner.AssertExpectations(t)
}

func TestParseLogLine(t *testing.T) {
	testCases := []struct {
		name     string
		line     string
		expected Commit
	}{
		{name: "sha and message", line: "a1b2c3d Fix bug in parser", expected: Commit{ShortSHA: "a1b2c3d", Message: "Fix bug in parser"}},
		{name: "sha only", line: "a1b2c3d", expected: Commit{ShortSHA: "a1b2c3d", Message: ""}},
		{name: "message keeps inner spaces", line: "a1b2c3d  two  spaces", expected: Commit{ShortSHA: "a1b2c3d", Message: " two  spaces"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseLogLine(tc.line))
		})
	}
}

func TestBranchName(t *testing.T) {
	assert.Equal(t, "pr-42", BranchName(42))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "commits", KindCommits.String())
	assert.Equal(t, "empty", KindEmpty.String())
	assert.Equal(t, "not_accessible", KindNotAccessible.String())
}
