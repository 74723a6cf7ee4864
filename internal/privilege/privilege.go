// Package privilege confines the helper's setgid identity to short, strictly
// nested brackets around the filesystem mutations that need it.
//
// A setgid installation starts with the mail group as its effective group.
// Drop switches to the caller's real group immediately; Enter and Leave flip
// back and forth only when privileged mode was requested. Any failure to
// switch is fatal: the helper must never keep running with an identity it
// cannot account for.
package privilege

import (
	"errors"
	"fmt"
	"os"

	"pkt.systems/pslog"
)

var (
	// ErrSwitch reports a failed effective group change.
	ErrSwitch = errors.New("privilege switch failed")
	// ErrNested reports an Enter while the bracket is already active.
	ErrNested = errors.New("privilege bracket already active")
)

// Snapshot holds the group identities captured at process start.
type Snapshot struct {
	UserGID int
	PrivGID int
}

// Setter changes the effective group ID of the process.
type Setter func(gid int) error

// FatalFunc is called when an identity switch fails. The default terminates
// the process with exit status 1; it does not return.
type FatalFunc func(err error)

// ExitFatal is the default FatalFunc.
func ExitFatal(error) {
	os.Exit(1)
}

// Bracket scopes privileged group access.
type Bracket struct {
	snap    Snapshot
	enabled bool
	active  bool
	setegid Setter
	fatal   FatalFunc
	logger  pslog.Logger
}

// Option configures a Bracket.
type Option func(*Bracket)

// WithSetter replaces the effective-gid setter (tests).
func WithSetter(fn Setter) Option {
	return func(b *Bracket) {
		if fn != nil {
			b.setegid = fn
		}
	}
}

// WithFatal replaces the fatal handler (tests).
func WithFatal(fn FatalFunc) Option {
	return func(b *Bracket) {
		if fn != nil {
			b.fatal = fn
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l pslog.Logger) Option {
	return func(b *Bracket) {
		if l != nil {
			b.logger = l
		}
	}
}

// New returns a bracket over snap. When enabled is false, Enter and Leave are
// no-ops.
func New(snap Snapshot, enabled bool, opts ...Option) *Bracket {
	b := &Bracket{
		snap:    snap,
		enabled: enabled && supported,
		setegid: defaultSetter,
		fatal:   ExitFatal,
		logger:  pslog.NoopLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Snapshot returns the captured identities.
func (b *Bracket) Snapshot() Snapshot { return b.snap }

// Enabled reports whether privileged mode is in effect.
func (b *Bracket) Enabled() bool { return b.enabled }

// Drop switches the effective group to the caller's real group. It runs once
// at start-up regardless of whether privileged mode was requested.
func (b *Bracket) Drop() error {
	if !supported {
		return nil
	}
	return b.switchTo(b.snap.UserGID, "drop")
}

// Enter switches to the privileged group.
func (b *Bracket) Enter() error {
	if !b.enabled {
		return nil
	}
	if b.active {
		return ErrNested
	}
	if err := b.switchTo(b.snap.PrivGID, "enter"); err != nil {
		return err
	}
	b.active = true
	return nil
}

// Leave restores the unprivileged group.
func (b *Bracket) Leave() error {
	if !b.enabled || !b.active {
		return nil
	}
	if err := b.switchTo(b.snap.UserGID, "leave"); err != nil {
		return err
	}
	b.active = false
	return nil
}

// Do runs fn inside the bracket. Leave runs on every return path of fn.
func (b *Bracket) Do(fn func() error) (err error) {
	if err := b.Enter(); err != nil {
		return err
	}
	defer func() {
		if leaveErr := b.Leave(); leaveErr != nil && err == nil {
			err = leaveErr
		}
	}()
	return fn()
}

func (b *Bracket) switchTo(gid int, op string) error {
	if err := b.setegid(gid); err != nil {
		wrapped := fmt.Errorf("privilege: %s setegid(%d): %w: %w", op, gid, ErrSwitch, err)
		b.logger.Error("identity switch failed", "op", op, "gid", gid, "error", err)
		b.fatal(wrapped)
		return wrapped
	}
	b.logger.Trace("identity switched", "op", op, "gid", gid)
	return nil
}
