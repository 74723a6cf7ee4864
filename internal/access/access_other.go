//go:build !unix

package access

import "errors"

var errUnsupported = errors.New("access checks require a unix platform")

// Allowed always denies on platforms without access(2).
func Allowed(string) bool { return false }

// Writable always denies on platforms without access(2).
func Writable(string) bool { return false }

// StatDir is unsupported on this platform.
func StatDir(string) (DirInfo, error) { return DirInfo{}, errUnsupported }
