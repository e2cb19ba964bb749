// Package git runs git subprocesses and reports their outcome.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"prcrawl/logger"
)

// ErrCommandFailed matches every error returned by CLI.Run
var ErrCommandFailed = errors.New("git command failed")

// Runner runs a git command in dir and returns its trimmed standard output.
// Any non-zero exit is reported as an error.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// CommandError describes a git invocation that could not complete successfully
type CommandError struct {
	Args     []string
	Dir      string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s: exit code %d", strings.Join(e.Args, " "), e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Is reports ErrCommandFailed for every CommandError
func (e *CommandError) Is(target error) bool {
	return target == ErrCommandFailed
}

// Stderr returns the captured error stream of err, if it came from a git command
func Stderr(err error) string {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Stderr
	}
	return ""
}

// waitDelay bounds how long Run waits for helper processes (git-remote-https and
// friends) to release the output pipes after git itself was killed.
const waitDelay = 10 * time.Second

// CLI runs the git binary found on PATH (or at an explicit location)
type CLI struct {
	binary  string
	timeout time.Duration
}

// NewCLI creates a CLI. A zero timeout leaves invocations unbounded.
func NewCLI(binary string, timeout time.Duration) *CLI {
	if binary == "" {
		binary = "git"
	}
	return &CLI{
		binary:  binary,
		timeout: timeout,
	}
}

// Run executes the command and blocks until it exits or the timeout expires
func (c *CLI) Run(ctx context.Context, dir string, args ...string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Dir = dir
	// Never block on a credential prompt for private or deleted repositories.
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()

	logger.Debug("Ran git command",
		zap.Strings("args", args),
		zap.String("dir", dir),
		zap.Duration("duration", time.Since(start)),
		zap.Bool("success", err == nil))

	out := strings.TrimSpace(stdout.String())
	if err == nil {
		return out, nil
	}

	cmdErr := &CommandError{
		Args:     args,
		Dir:      dir,
		ExitCode: -1,
		Stderr:   strings.TrimSpace(stderr.String()),
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cmdErr.ExitCode = exitErr.ExitCode()
	} else {
		cmdErr.Err = err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		cmdErr.Err = fmt.Errorf("timed out after %s: %w", c.timeout, ctx.Err())
	}

	return out, cmdErr
}
