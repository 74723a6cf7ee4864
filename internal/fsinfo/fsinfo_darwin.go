//go:build darwin

package fsinfo

import "golang.org/x/sys/unix"

func isNFS(dir string) bool {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return false
	}
	return isFSTypeNFS(unix.ByteSliceToString(st.Fstypename[:]))
}
