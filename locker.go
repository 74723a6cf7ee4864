package dotlock

import (
	"fmt"

	"pkt.systems/dotlock/internal/clock"
	"pkt.systems/dotlock/internal/fsinfo"
	"pkt.systems/dotlock/internal/pathutil"
	"pkt.systems/dotlock/internal/privilege"
	"pkt.systems/dotlock/internal/svcfields"
	"pkt.systems/pslog"
)

// Locker implements the dot-lock protocol for one invocation. It is not safe
// for concurrent use; concurrent lockers must differ in Config.PID.
type Locker struct {
	cfg     Config
	logger  pslog.Logger
	clock   clock.Clock
	bracket *privilege.Bracket

	link  func(oldname, newname string) error
	isNFS func(dir string) bool
}

// Option configures a Locker.
type Option func(*options)

type options struct {
	logger      pslog.Logger
	clock       clock.Clock
	bracketOpts []privilege.Option
	snapshot    *privilege.Snapshot
}

// WithLogger supplies a logger. The default discards everything.
func WithLogger(l pslog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithClock injects the clock driving the retry loop.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithPrivilegeOptions passes options through to the privilege bracket.
func WithPrivilegeOptions(opts ...privilege.Option) Option {
	return func(o *options) {
		o.bracketOpts = append(o.bracketOpts, opts...)
	}
}

// WithSnapshot replaces the group identities captured from the process.
func WithSnapshot(s privilege.Snapshot) Option {
	return func(o *options) {
		o.snapshot = &s
	}
}

// New validates cfg and builds a Locker.
func New(cfg Config, opts ...Option) (*Locker, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if o.logger == nil {
		o.logger = pslog.NoopLogger()
	}
	if o.clock == nil {
		o.clock = clock.Real{}
	}
	snap := privilege.Capture()
	if o.snapshot != nil {
		snap = *o.snapshot
	}
	// A setgid helper keeps the group it was installed with; the override
	// only applies to helpers started without a setgid bit.
	if cfg.PrivilegedGroup != "" {
		if snap.UserGID != snap.PrivGID {
			o.logger.Warn("ignoring privileged group override in setgid helper",
				"group", cfg.PrivilegedGroup, "setgid", snap.PrivGID)
		} else {
			gid, err := LookupGroupID(cfg.PrivilegedGroup)
			if err != nil {
				return nil, fmt.Errorf("config: privileged group %q: %w", cfg.PrivilegedGroup, err)
			}
			snap.PrivGID = gid
		}
	}
	bracketOpts := append([]privilege.Option{privilege.WithLogger(svcfields.WithSubsystem(o.logger, "privilege"))}, o.bracketOpts...)
	return &Locker{
		cfg:     cfg,
		logger:  o.logger,
		clock:   o.clock,
		bracket: privilege.New(snap, cfg.Privileged, bracketOpts...),
		link:    defaultLink,
		isNFS:   fsinfo.IsNFS,
	}, nil
}

// DropPrivileges switches to the caller's real group. The helper calls it
// once before doing anything else.
func (l *Locker) DropPrivileges() error {
	return l.bracket.Drop()
}

// Canonical resolves target the way Lock, Unlock and Try do.
func (l *Locker) Canonical(target string) (string, error) {
	canonical, err := pathutil.Resolve(target)
	if err != nil {
		return "", fmt.Errorf("dotlock: resolve %s: %w: %w", target, ErrResolution, err)
	}
	return canonical, nil
}
