package buildtool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"cookbook/internal/config"
)

// missingTargetMarker is the signature GNU make prints when asked for a target
// it has no rule for. Matching it is confined to classify; everything above
// this package sees the structured Outcome instead.
const missingTargetMarker = "No rule to make target"

// Outcome classifies a query against one build script target.
type Outcome int

const (
	// TargetOK means the target ran and its stdout lines are usable.
	TargetOK Outcome = iota
	// TargetUndefined means the build script does not define the target.
	TargetUndefined
	// TargetFailed means the target exists but running it failed.
	TargetFailed
)

// TargetResult is the structured outcome of querying one target.
type TargetResult struct {
	Outcome  Outcome
	Lines    []string
	ExitCode int
	Stderr   string
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, dir, binary string, args []string) (stdout, stderr string, exitCode int, err error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps the external build tool for the requires/provides queries.
// It never runs the transformation itself; that belongs to the user.
type Client struct {
	binary         string
	requiresTarget string
	providesTarget string
	timeout        time.Duration
	exec           Executor
}

// New constructs a build tool client from the build configuration section.
func New(cfg config.Build, opts ...Option) (*Client, error) {
	binary := strings.TrimSpace(cfg.Binary)
	if binary == "" {
		return nil, errors.New("build binary required")
	}
	if strings.TrimSpace(cfg.RequiresTarget) == "" || strings.TrimSpace(cfg.ProvidesTarget) == "" {
		return nil, errors.New("requires and provides targets required")
	}
	client := &Client{
		binary:         binary,
		requiresTarget: cfg.RequiresTarget,
		providesTarget: cfg.ProvidesTarget,
		timeout:        time.Duration(cfg.TimeoutSeconds) * time.Second,
		exec:           commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Requires queries the requirements target in dir: the auxiliary files the
// recipe needs staged next to its input, one per line on stdout.
func (c *Client) Requires(ctx context.Context, dir string) (TargetResult, error) {
	return c.query(ctx, dir, c.requiresTarget)
}

// Provides queries the outputs target in dir: the files the recipe produced,
// one per line on stdout.
func (c *Client) Provides(ctx context.Context, dir string) (TargetResult, error) {
	return c.query(ctx, dir, c.providesTarget)
}

func (c *Client) query(ctx context.Context, dir, target string) (TargetResult, error) {
	if strings.TrimSpace(dir) == "" {
		return TargetResult{}, errors.New("query directory required")
	}

	queryCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	stdout, stderr, exitCode, err := c.exec.Run(queryCtx, dir, c.binary, []string{"-s", target})
	if err != nil {
		return TargetResult{}, fmt.Errorf("run %s %s: %w", c.binary, target, err)
	}

	return classify(stdout, stderr, exitCode), nil
}

func classify(stdout, stderr string, exitCode int) TargetResult {
	result := TargetResult{ExitCode: exitCode, Stderr: stderr}
	switch {
	case exitCode == 0:
		result.Outcome = TargetOK
		result.Lines = splitLines(stdout)
	case strings.Contains(stderr, missingTargetMarker):
		result.Outcome = TargetUndefined
	default:
		result.Outcome = TargetFailed
	}
	return result
}

func splitLines(output string) []string {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, dir, binary string, args []string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), stderr.String(), exitErr.ExitCode(), nil
		}
		return "", "", -1, err
	}
	return stdout.String(), stderr.String(), 0, nil
}
