// Package client drives the dotlock helper binary from Go programs that
// cannot lock a mail spool themselves, typically because the spool directory
// is only writable by the group the helper is installed setgid to.
//
// Copyright (C) 2025 Michel Blomgren <https://pkt.systems>
//
// Every call runs the helper once per step and translates its exit status
// back into the errors of package dotlock:
//
//	cli := client.New("/usr/libexec/dotlock", client.WithRetries(5))
//	if err := cli.Lock(ctx, "/var/mail/alice"); err != nil {
//	    if errors.Is(err, dotlock.ErrAlreadyLocked) {
//	        // busy, try again later
//	    }
//	    return err
//	}
//	defer cli.Unlock(ctx, "/var/mail/alice")
//
// Lock and Unlock run -t first and only pass -p when its answer says
// privileged mode is required, so the helper never holds its group identity
// for a mailbox the caller could lock on its own.
package client
