package dotlock

// TryResult is the prediction made by Locker.Try.
type TryResult int

const (
	// Lockable means an unprivileged lock attempt can succeed.
	Lockable TryResult = iota
	// LockableWithPrivilege means only a privileged (-p) attempt can succeed.
	LockableWithPrivilege
	// Impossible means no lock attempt can succeed.
	Impossible
)

func (r TryResult) String() string {
	switch r {
	case Lockable:
		return "lockable"
	case LockableWithPrivilege:
		return "lockable-with-privilege"
	case Impossible:
		return "impossible"
	default:
		return "unknown"
	}
}

// Err returns nil for Lockable and the matching sentinel otherwise.
func (r TryResult) Err() error {
	switch r {
	case Lockable:
		return nil
	case LockableWithPrivilege:
		return ErrNeedPrivileges
	default:
		return ErrImpossible
	}
}

// ExitCode returns the try-mode exit code for r.
func (r TryResult) ExitCode() int {
	return ExitCode(r.Err())
}
