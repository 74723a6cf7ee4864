package pathutil

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// MaxLinks bounds the number of symbolic links Resolve follows.
const MaxLinks = 1024

// ErrTooManyLinks reports a symlink chain longer than MaxLinks, which in
// practice means a cycle.
var ErrTooManyLinks = errors.New("too many levels of symbolic links")

// Resolve dereferences p until it no longer names a symbolic link. Relative
// link targets are interpreted against the directory holding the link. The
// path is not cleaned, so ".." components in link targets are preserved and
// left to the kernel.
//
// The result is only valid at the time of the call; nothing prevents the
// filesystem from changing underneath the caller afterwards.
func Resolve(p string) (string, error) {
	current := p
	for hops := 0; hops < MaxLinks; hops++ {
		info, err := os.Lstat(current)
		if err != nil {
			return "", err
		}
		if info.Mode()&os.ModeSymlink == 0 {
			return current, nil
		}
		target, err := os.Readlink(current)
		if err != nil {
			return "", err
		}
		current = expandLink(current, target)
	}
	return "", fmt.Errorf("%s: %w", p, ErrTooManyLinks)
}

func expandLink(linkPath, target string) string {
	if strings.HasPrefix(target, "/") {
		return target
	}
	idx := strings.LastIndexByte(linkPath, '/')
	if idx < 0 {
		return target
	}
	return linkPath[:idx+1] + target
}

// Dir returns the directory portion of p the way the lock checks need it:
// everything before the last slash, "/" for entries directly under root and
// "." when p has no directory component.
func Dir(p string) string {
	idx := strings.LastIndexByte(p, '/')
	switch {
	case idx < 0:
		return "."
	case idx == 0:
		return "/"
	default:
		return p[:idx]
	}
}
