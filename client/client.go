package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"pkt.systems/dotlock"
	"pkt.systems/dotlock/internal/svcfields"
	"pkt.systems/pslog"
)

// Client invokes the dotlock helper.
type Client struct {
	binary     string
	retries    int
	retriesSet bool
	force      bool
	logger     pslog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRetries passes -r to lock invocations.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
			c.retriesSet = true
		}
	}
}

// WithForce passes -f to lock invocations so stale locks are removed.
func WithForce(force bool) Option {
	return func(c *Client) {
		c.force = force
	}
}

// WithLogger attaches a logger.
func WithLogger(logger pslog.Logger) Option {
	return func(c *Client) {
		if logger == nil {
			c.logger = pslog.NoopLogger()
			return
		}
		c.logger = svcfields.WithSubsystem(logger, "client.helper")
	}
}

// New returns a client for the helper at binary. An empty binary means
// "dotlock" looked up in PATH.
func New(binary string, opts ...Option) *Client {
	c := &Client{
		binary: strings.TrimSpace(binary),
		logger: pslog.NoopLogger(),
	}
	if c.binary == "" {
		c.binary = "dotlock"
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Try asks the helper whether path could be locked.
//
// Every invocation ends its flags with "--" so mailbox names such as
// "version" or "-inbox" reach the helper as paths.
func (c *Client) Try(ctx context.Context, path string) (dotlock.TryResult, error) {
	code, err := c.run(ctx, "-t", "--", path)
	if err != nil {
		return dotlock.Impossible, err
	}
	switch code {
	case dotlock.ExitOK:
		return dotlock.Lockable, nil
	case dotlock.ExitNeedPrivs:
		return dotlock.LockableWithPrivilege, nil
	case dotlock.ExitImpossible:
		return dotlock.Impossible, nil
	default:
		return dotlock.Impossible, fmt.Errorf("client: try %s: %w", path, dotlock.ErrorForExitCode(code))
	}
}

// Lock acquires path.lock through the helper.
func (c *Client) Lock(ctx context.Context, path string) error {
	args, err := c.modeArgs(ctx, path)
	if err != nil {
		return err
	}
	if c.retriesSet {
		args = append(args, "-r", strconv.Itoa(c.retries))
	}
	if c.force {
		args = append(args, "-f")
	}
	return c.exec(ctx, "lock", path, append(args, "--", path)...)
}

// Unlock removes path.lock through the helper.
func (c *Client) Unlock(ctx context.Context, path string) error {
	args, err := c.modeArgs(ctx, path)
	if err != nil {
		return err
	}
	args = append(args, "-u", "--", path)
	return c.exec(ctx, "unlock", path, args...)
}

// modeArgs runs -t on path and returns the privilege flags the real invocation
// needs.
func (c *Client) modeArgs(ctx context.Context, path string) ([]string, error) {
	result, err := c.Try(ctx, path)
	if err != nil {
		return nil, err
	}
	switch result {
	case dotlock.Lockable:
		return nil, nil
	case dotlock.LockableWithPrivilege:
		c.logger.Debug("escalating to privileged mode", "path", path)
		return []string{"-p"}, nil
	default:
		return nil, fmt.Errorf("client: %s: %w", path, dotlock.ErrImpossible)
	}
}

func (c *Client) exec(ctx context.Context, op, path string, args ...string) error {
	code, err := c.run(ctx, args...)
	if err != nil {
		return err
	}
	if err := dotlock.ErrorForExitCode(code); err != nil {
		return fmt.Errorf("client: %s %s: %w", op, path, err)
	}
	return nil
}

// run executes the helper and returns its exit status. Only failures to run
// the helper at all are returned as errors.
func (c *Client) run(ctx context.Context, args ...string) (int, error) {
	cmd := exec.CommandContext(ctx, c.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err == nil {
		c.logger.Trace("helper finished", "args", args, "exit", 0)
		return dotlock.ExitOK, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return dotlock.ExitError, fmt.Errorf("client: %s: %w", c.binary, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		code := exitErr.ExitCode()
		c.logger.Debug("helper finished", "args", args, "exit", code, "stderr", strings.TrimSpace(stderr.String()))
		return code, nil
	}
	return dotlock.ExitError, fmt.Errorf("client: run %s: %w: %w", c.binary, dotlock.ErrIO, err)
}
