//go:build unix

package access

import "golang.org/x/sys/unix"

// Allowed reports whether the real identity may both read and write path.
func Allowed(path string) bool {
	if unix.Access(path, unix.R_OK) != nil {
		return false
	}
	return unix.Access(path, unix.W_OK) == nil
}

// Writable reports whether the real identity may create entries in dir.
func Writable(dir string) bool {
	return unix.Access(dir, unix.W_OK) == nil
}

// StatDir returns the group ownership and group-write bit of dir.
func StatDir(dir string) (DirInfo, error) {
	var st unix.Stat_t
	if err := unix.Stat(dir, &st); err != nil {
		return DirInfo{}, err
	}
	return DirInfo{
		GroupWritable: uint32(st.Mode)&unix.S_IWGRP != 0,
		GID:           int(st.Gid),
	}, nil
}
