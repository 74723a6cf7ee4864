//go:build !unix

package dotlock

import "context"

// Lock is unsupported without hard links and setegid.
func (l *Locker) Lock(context.Context, string) error { return ErrUnsupported }

// Unlock is unsupported without hard links and setegid.
func (l *Locker) Unlock(context.Context, string) error { return ErrUnsupported }

// Try is unsupported without hard links and setegid.
func (l *Locker) Try(context.Context, string) (TryResult, error) {
	return Impossible, ErrUnsupported
}

func defaultLink(string, string) error { return ErrUnsupported }
