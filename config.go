package dotlock

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// DefaultRetries is the number of unchanged polls tolerated before a lock
	// is considered stale.
	DefaultRetries = 5
	// DefaultConfigFileName is the config file looked up in DefaultConfigDir.
	DefaultConfigFileName = "config.yaml"
	// DefaultLogLevel keeps the helper silent unless something failed.
	DefaultLogLevel = "error"
	// LockSuffix is appended to the canonical mailbox path to name the lock file.
	LockSuffix = ".lock"
)

// Config controls one helper invocation.
type Config struct {
	// Retries is the number of polls a lock file may stay unchanged before
	// it is considered stale. Zero is valid; set RetriesSet when the value
	// was provided explicitly.
	Retries    int
	RetriesSet bool
	// Force removes stale lock files instead of failing with ErrAlreadyLocked.
	Force bool
	// Privileged enables the setgid bracket around lock file mutations.
	Privileged bool
	// PrivilegedGroup overrides the privileged group (name or numeric gid).
	// By default it is the effective group the helper was started with.
	PrivilegedGroup string
	// Hostname and PID name the per-process marker file. They default to
	// the short node name and os.Getpid().
	Hostname string
	PID      int
}

// Validate applies defaults and checks the configuration.
func (c *Config) Validate() error {
	if !c.RetriesSet && c.Retries == 0 {
		c.Retries = DefaultRetries
	}
	if c.Retries < 0 {
		return fmt.Errorf("config: retries must be >= 0")
	}
	if c.Hostname == "" {
		host, err := ShortHostname()
		if err != nil {
			return fmt.Errorf("config: hostname: %w", err)
		}
		c.Hostname = host
	}
	if strings.ContainsRune(c.Hostname, '/') {
		return fmt.Errorf("config: hostname %q contains a path separator", c.Hostname)
	}
	if c.PID == 0 {
		c.PID = os.Getpid()
	}
	if c.PID < 0 {
		return fmt.Errorf("config: pid must be > 0")
	}
	c.PrivilegedGroup = strings.TrimSpace(c.PrivilegedGroup)
	return nil
}

// ShortHostname returns the node name up to the first dot.
func ShortHostname() (string, error) {
	host, err := os.Hostname()
	if err != nil {
		return "", err
	}
	if idx := strings.IndexByte(host, '.'); idx >= 0 {
		host = host[:idx]
	}
	if host == "" {
		return "", fmt.Errorf("empty hostname")
	}
	return host, nil
}

// LookupGroupID resolves a group name or numeric gid.
func LookupGroupID(group string) (int, error) {
	group = strings.TrimSpace(group)
	if gid, err := strconv.Atoi(group); err == nil {
		if gid < 0 {
			return 0, fmt.Errorf("invalid gid %d", gid)
		}
		return gid, nil
	}
	g, err := user.LookupGroup(group)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(g.Gid)
}

// DefaultConfigDir returns $DOTLOCK_CONFIG_DIR or $HOME/.dotlock.
func DefaultConfigDir() (string, error) {
	if override := strings.TrimSpace(os.Getenv("DOTLOCK_CONFIG_DIR")); override != "" {
		return filepath.Abs(override)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".dotlock"), nil
}

// LockPath names the shared lock file of a canonical mailbox path.
func LockPath(canonical string) string {
	return canonical + LockSuffix
}

// MarkerPath names the per-process marker used while acquiring the lock.
func MarkerPath(canonical, hostname string, pid int) string {
	return canonical + "." + hostname + "." + strconv.Itoa(pid)
}
