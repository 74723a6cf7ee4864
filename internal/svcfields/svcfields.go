// Package svcfields keeps the structured log keys of the helper consistent.
package svcfields

import (
	"strings"

	"github.com/rs/xid"
	"pkt.systems/pslog"
)

const (
	// SubsystemKey tags the component that emitted an entry.
	SubsystemKey = pslog.TrustedString("sys")
	// InvocationKey ties every entry of one helper run together.
	InvocationKey = pslog.TrustedString("invocation")
)

// Subsystem builds a dot-delimited subsystem path, skipping empty parts.
func Subsystem(parts ...string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.Trim(part, ". ")
		if part == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, ".")
}

// WithSubsystem attaches a subsystem tag to every log entry.
func WithSubsystem(logger pslog.Logger, subsystem string) pslog.Logger {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	subsystem = Subsystem(strings.Split(subsystem, ".")...)
	if subsystem == "" {
		return logger
	}
	return logger.With(SubsystemKey, subsystem)
}

// WithInvocation tags logger with a fresh invocation id and returns both.
// Several helper processes racing for the same mailbox log to the same
// stderr stream of their callers; the id keeps their lines apart.
func WithInvocation(logger pslog.Logger) (pslog.Logger, string) {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	id := xid.New().String()
	return logger.With(InvocationKey, id), id
}
