//go:build unix

package privilege

import "golang.org/x/sys/unix"

const supported = true

func defaultSetter(gid int) error {
	return unix.Setegid(gid)
}

// Capture records the real group as the unprivileged identity and the
// effective group (the setgid group of an installed helper) as the
// privileged one.
func Capture() Snapshot {
	return Snapshot{UserGID: unix.Getgid(), PrivGID: unix.Getegid()}
}
