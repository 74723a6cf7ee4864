//go:build unix

package dotlock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"pkt.systems/dotlock/internal/access"
	"pkt.systems/dotlock/internal/pathutil"
	"pkt.systems/dotlock/internal/privilege"
	"pkt.systems/dotlock/internal/svcfields"
	"pkt.systems/pslog"
)

// Lock acquires <target>.lock. It creates a marker unique to this host and
// process, hard-links it to the lock name and decides ownership from the
// marker's link count rather than from the link call, because link(2) over
// NFS may report failure for a link that was in fact created. While the lock
// is held by someone else the lock file is polled once per second; after
// more than Config.Retries polls without a size change the lock is stale and
// is either removed (Config.Force) or reported as ErrAlreadyLocked.
//
// The marker is removed on every return path except a failed identity
// switch, which terminates the process.
func (l *Locker) Lock(ctx context.Context, target string) error {
	logger := svcfields.WithSubsystem(l.logger, "lock.acquire")
	canonical, err := l.Canonical(target)
	if err != nil {
		return err
	}
	if !access.Allowed(canonical) {
		return fmt.Errorf("dotlock: lock %s: %w", canonical, ErrPermissionDenied)
	}
	marker := MarkerPath(canonical, l.cfg.Hostname, l.cfg.PID)
	lockfile := LockPath(canonical)
	logger = logger.With("path", canonical, "lockfile", lockfile)
	logger.Debug("acquiring lock",
		"marker", marker,
		"retries", l.cfg.Retries,
		"force", l.cfg.Force,
		"privileged", l.bracket.Enabled(),
	)

	if err := l.createMarker(marker); err != nil {
		return err
	}
	defer l.removeMarker(marker, logger)
	return l.acquire(ctx, marker, lockfile, logger)
}

func (l *Locker) createMarker(marker string) error {
	err := l.bracket.Do(func() error {
		if err := unix.Unlink(marker); err != nil && !errors.Is(err, unix.ENOENT) {
			return err
		}
		for {
			f, err := os.OpenFile(marker, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0)
			if err == nil {
				return f.Close()
			}
			if !errors.Is(err, unix.EAGAIN) {
				return err
			}
		}
	})
	if err == nil || errors.Is(err, privilege.ErrSwitch) {
		return err
	}
	return ioError("create marker", marker, err)
}

func (l *Locker) removeMarker(marker string, logger pslog.Logger) {
	err := l.bracket.Do(func() error {
		return unix.Unlink(marker)
	})
	if err != nil && !errors.Is(err, unix.ENOENT) {
		logger.Warn("marker cleanup failed", "marker", marker, "error", err)
	}
}

func (l *Locker) acquire(ctx context.Context, marker, lockfile string, logger pslog.Logger) error {
	var (
		attempts int
		prevSize int64
	)
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("dotlock: lock %s: %w", lockfile, err)
		}

		var linkErr error
		if err := l.bracket.Do(func() error {
			linkErr = l.link(marker, lockfile)
			return nil
		}); err != nil {
			return err
		}

		var st unix.Stat_t
		if err := unix.Stat(marker, &st); err != nil {
			return ioError("stat marker", marker, err)
		}
		if uint64(st.Nlink) == 2 {
			logger.Debug("lock acquired", "polls", attempts)
			return nil
		}

		size, err := lockSize(lockfile)
		if err != nil {
			return ioError("stat lock", lockfile, err)
		}
		if size < 0 && linkErr != nil && !errors.Is(linkErr, unix.EEXIST) {
			return ioError("link", lockfile, linkErr)
		}
		if attempts == 0 || size != prevSize {
			prevSize = size
			attempts = 0
		}
		attempts++

		if attempts > l.cfg.Retries {
			if !l.cfg.Force {
				logger.Debug("lock held", "polls", attempts, "size", humanSize(size))
				return fmt.Errorf("dotlock: lock %s: %w", lockfile, ErrAlreadyLocked)
			}
			logger.Info("removing stale lock",
				"polls", attempts,
				"size", humanSize(size),
				"nfs", l.isNFS(pathutil.Dir(lockfile)),
			)
			if err := l.removeLockFile(lockfile); err != nil && !errors.Is(err, unix.ENOENT) {
				if errors.Is(err, privilege.ErrSwitch) {
					return err
				}
				return ioError("remove stale lock", lockfile, err)
			}
			attempts = 0
			continue
		}

		logger.Trace("lock busy", "poll", attempts, "size", humanSize(size))
		l.waitNextSecond()
	}
}

func defaultLink(oldname, newname string) error {
	return unix.Link(oldname, newname)
}

// waitNextSecond sleeps until the wall-clock second changes. A sleep cut
// short by a signal is simply repeated.
func (l *Locker) waitNextSecond() {
	start := l.clock.Now().Unix()
	for {
		l.clock.Sleep(time.Second)
		if l.clock.Now().Unix() != start {
			return
		}
	}
}

func (l *Locker) removeLockFile(lockfile string) error {
	return l.bracket.Do(func() error {
		return unix.Unlink(lockfile)
	})
}

// lockSize returns the lock file size, or -1 when it does not exist.
func lockSize(lockfile string) (int64, error) {
	var st unix.Stat_t
	if err := unix.Stat(lockfile, &st); err != nil {
		if errors.Is(err, unix.ENOENT) {
			return -1, nil
		}
		return 0, err
	}
	return st.Size, nil
}

func humanSize(size int64) string {
	if size < 0 {
		return "absent"
	}
	return humanize.Bytes(uint64(size))
}

// Unlock removes <target>.lock. It makes a single attempt; a missing lock
// file is an error.
func (l *Locker) Unlock(ctx context.Context, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger := svcfields.WithSubsystem(l.logger, "lock.release")
	canonical, err := l.Canonical(target)
	if err != nil {
		return err
	}
	if !access.Allowed(canonical) {
		return fmt.Errorf("dotlock: unlock %s: %w", canonical, ErrPermissionDenied)
	}
	lockfile := LockPath(canonical)
	if err := l.removeLockFile(lockfile); err != nil {
		if errors.Is(err, privilege.ErrSwitch) {
			return err
		}
		return ioError("unlock", lockfile, err)
	}
	logger.Debug("lock released", "lockfile", lockfile)
	return nil
}

// Try predicts the outcome of Lock without touching the filesystem.
func (l *Locker) Try(ctx context.Context, target string) (TryResult, error) {
	if err := ctx.Err(); err != nil {
		return Impossible, err
	}
	logger := svcfields.WithSubsystem(l.logger, "lock.try")
	canonical, err := l.Canonical(target)
	if err != nil {
		return Impossible, err
	}
	result := l.predict(canonical)
	logger.Debug("try", "path", canonical, "result", result.String())
	return result, nil
}

func (l *Locker) predict(canonical string) TryResult {
	if !access.Allowed(canonical) {
		return Impossible
	}
	dir := pathutil.Dir(canonical)
	if access.Writable(dir) {
		return Lockable
	}
	info, err := access.StatDir(dir)
	if err == nil && info.GroupWritable && info.GID == l.bracket.Snapshot().PrivGID {
		return LockableWithPrivilege
	}
	return Impossible
}
