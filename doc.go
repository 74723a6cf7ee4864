// Package dotlock implements the dot-lock protocol used by mail programs to
// serialize access to mailbox files, including mailboxes on NFS.
//
// Copyright (C) 2025 Michel Blomgren <https://pkt.systems>
//
// A lock on a mailbox is the existence of a sibling file named
// `<mailbox>.lock`. To acquire it, the locker writes an empty marker file
// `<mailbox>.<host>.<pid>`, hard-links the marker to the lock name and then
// checks the marker's link count. A count of two means the link took effect,
// even if link(2) itself reported an error, which happens on NFS when the
// reply to a successful request is lost.
//
// Symbolic links are followed before anything else, so the lock always lives
// next to the real mailbox file.
//
// # Locking
//
//	l, err := dotlock.New(dotlock.Config{Retries: 5})
//	if err != nil { log.Fatal(err) }
//	if err := l.Lock(ctx, "/var/mail/alice"); err != nil {
//	    os.Exit(dotlock.ExitCode(err))
//	}
//	defer l.Unlock(ctx, "/var/mail/alice")
//
// A lock file held by someone else is polled once per second. When its size
// stays the same for more than Config.Retries polls the lock is stale; with
// Config.Force it is removed and acquisition continues, otherwise Lock fails
// with ErrAlreadyLocked.
//
// # Probing
//
// Locker.Try predicts whether Lock could succeed without touching the
// filesystem. It answers Lockable, LockableWithPrivilege (the mailbox
// directory is writable only by the helper's setgid group) or Impossible.
//
// # Privileges
//
// The cmd/dotlock helper is meant to be installed setgid to the mail group.
// It drops to the caller's real group on start-up and, only in privileged
// mode, re-enters the mail group around the individual create, link and
// unlink calls. See package internal/privilege.
//
// # Exit codes
//
// The helper reports outcomes only through its exit status:
//
//	0  success
//	1  error (resolution, permission, i/o, usage)
//	2  lock held and not stale
//	3  locking is impossible
//	4  locking requires privileged mode
//
// ExitCode and ErrorForExitCode translate between errors and exit codes. The
// client package wraps the helper for callers that cannot run setgid
// themselves.
package dotlock
