// Package access answers the permission questions the lock helper asks before
// touching the filesystem. All checks use the real user and group IDs of the
// process, i.e. the caller's unprivileged identity, never the setgid one.
package access

// DirInfo is the subset of a directory's metadata the -t check needs.
type DirInfo struct {
	GroupWritable bool
	GID           int
}
