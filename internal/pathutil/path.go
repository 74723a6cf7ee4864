// Package pathutil holds the path handling shared by the dotlock helper:
// symlink dereferencing for lock targets and shell-style expansion for
// configuration paths.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandUserAndEnv expands $VAR/${VAR} tokens and a leading "~/" in p.
// Relative results stay relative.
func ExpandUserAndEnv(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", nil
	}
	p = os.ExpandEnv(p)
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	switch {
	case len(p) == 1:
		return home, nil
	case p[1] == '/':
		return filepath.Join(home, p[2:]), nil
	}
	return p, nil
}

// ExpandAbs is ExpandUserAndEnv followed by filepath.Abs.
func ExpandAbs(p string) (string, error) {
	expanded, err := ExpandUserAndEnv(p)
	if err != nil || expanded == "" {
		return expanded, err
	}
	return filepath.Abs(expanded)
}
