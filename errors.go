package dotlock

import (
	"errors"
	"fmt"

	"pkt.systems/dotlock/internal/privilege"
)

// Exit codes of the helper binary. They are its only output channel.
const (
	ExitOK         = 0
	ExitError      = 1
	ExitExist      = 2
	ExitImpossible = 3
	ExitNeedPrivs  = 4
)

var (
	// ErrResolution reports a broken or cyclic symlink chain.
	ErrResolution = errors.New("dotlock: cannot resolve path")
	// ErrPermissionDenied reports that the caller may not read and write the mailbox.
	ErrPermissionDenied = errors.New("dotlock: permission denied")
	// ErrAlreadyLocked reports a lock held by someone else that is not stale.
	ErrAlreadyLocked = errors.New("dotlock: already locked")
	// ErrIO reports an unexpected filesystem failure.
	ErrIO = errors.New("dotlock: i/o error")
	// ErrPrivilege reports a failed identity switch.
	ErrPrivilege = privilege.ErrSwitch
	// ErrImpossible reports that locking can never succeed for this path.
	ErrImpossible = errors.New("dotlock: locking is impossible")
	// ErrNeedPrivileges reports that locking needs privileged mode.
	ErrNeedPrivileges = errors.New("dotlock: locking requires privileged mode")
	// ErrUsage reports invalid helper arguments.
	ErrUsage = errors.New("dotlock: usage")
	// ErrUnsupported reports a platform without hard links and setegid.
	ErrUnsupported = errors.New("dotlock: unsupported platform")
)

// ExitCode maps an error returned by this package to the helper exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrAlreadyLocked):
		return ExitExist
	case errors.Is(err, ErrImpossible):
		return ExitImpossible
	case errors.Is(err, ErrNeedPrivileges):
		return ExitNeedPrivs
	default:
		return ExitError
	}
}

// ErrorForExitCode is the inverse of ExitCode for callers that only see the
// helper's exit status.
func ErrorForExitCode(code int) error {
	switch code {
	case ExitOK:
		return nil
	case ExitExist:
		return ErrAlreadyLocked
	case ExitImpossible:
		return ErrImpossible
	case ExitNeedPrivs:
		return ErrNeedPrivileges
	default:
		return fmt.Errorf("%w: helper exited with status %d", ErrIO, code)
	}
}

func ioError(op, path string, err error) error {
	return fmt.Errorf("dotlock: %s %s: %w: %w", op, path, ErrIO, err)
}
