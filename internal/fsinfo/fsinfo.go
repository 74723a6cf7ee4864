// Package fsinfo reports properties of the filesystem holding a mailbox. The
// helper only uses it for diagnostics; the locking protocol is identical on
// local and network filesystems.
package fsinfo

import "strings"

// IsNFS reports whether dir lives on an NFS mount. Errors are treated as
// "not NFS".
func IsNFS(dir string) bool {
	return isNFS(dir)
}

func isFSTypeNFS(fsType string) bool {
	fsType = strings.ToLower(strings.TrimSpace(fsType))
	return strings.HasPrefix(fsType, "nfs")
}
