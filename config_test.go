package dotlock

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"pkt.systems/dotlock/internal/privilege"
)

func TestConfigValidateDefaults(t *testing.T) {
	cfg := Config{Hostname: "mx1"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Retries != DefaultRetries {
		t.Fatalf("expected retries default %d, got %d", DefaultRetries, cfg.Retries)
	}
	if cfg.PID != os.Getpid() {
		t.Fatalf("expected pid default %d, got %d", os.Getpid(), cfg.PID)
	}
	if cfg.Force || cfg.Privileged {
		t.Fatal("expected force and privileged to default off")
	}
}

func TestConfigValidateExplicitZeroRetries(t *testing.T) {
	cfg := Config{Hostname: "mx1", RetriesSet: true}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Retries != 0 {
		t.Fatalf("expected explicit zero retries to survive, got %d", cfg.Retries)
	}
}

func TestConfigValidateRejectsInvalid(t *testing.T) {
	cases := map[string]Config{
		"negative retries": {Hostname: "mx1", Retries: -1, RetriesSet: true},
		"slash in host":    {Hostname: "a/b"},
		"negative pid":     {Hostname: "mx1", PID: -4},
	}
	for name, cfg := range cases {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestConfigValidateHostnameDefault(t *testing.T) {
	want, err := ShortHostname()
	if err != nil {
		t.Skipf("hostname unavailable: %v", err)
	}
	cfg := Config{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Hostname != want {
		t.Fatalf("expected hostname %q, got %q", want, cfg.Hostname)
	}
	for _, r := range cfg.Hostname {
		if r == '.' {
			t.Fatalf("hostname %q is not short", cfg.Hostname)
		}
	}
}

func TestLockAndMarkerPaths(t *testing.T) {
	if got := LockPath("/var/mail/alice"); got != "/var/mail/alice.lock" {
		t.Fatalf("lock path = %q", got)
	}
	if got := MarkerPath("/var/mail/alice", "mx1", 4711); got != "/var/mail/alice.mx1.4711" {
		t.Fatalf("marker path = %q", got)
	}
}

func TestLookupGroupIDNumeric(t *testing.T) {
	gid, err := LookupGroupID(" 12 ")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if gid != 12 {
		t.Fatalf("gid = %d", gid)
	}
	if _, err := LookupGroupID("-3"); err == nil {
		t.Fatal("expected negative gid to fail")
	}
	if _, err := LookupGroupID("no-such-group-dotlock-test"); err == nil {
		t.Fatal("expected unknown group to fail")
	}
}

func TestNewAppliesPrivilegedGroup(t *testing.T) {
	snap := privilege.Snapshot{UserGID: 100, PrivGID: 100}
	l, err := New(Config{Hostname: "mx1", PrivilegedGroup: strconv.Itoa(4321)}, WithSnapshot(snap))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got := l.bracket.Snapshot().PrivGID; got != 4321 {
		t.Fatalf("priv gid = %d want 4321", got)
	}
}

func TestSetgidHelperIgnoresPrivilegedGroup(t *testing.T) {
	snap := privilege.Snapshot{UserGID: 100, PrivGID: 8}
	l, err := New(Config{Hostname: "mx1", PrivilegedGroup: "4321"}, WithSnapshot(snap))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got := l.bracket.Snapshot().PrivGID; got != 8 {
		t.Fatalf("priv gid = %d want the setgid group 8", got)
	}
}

func TestDefaultConfigDirOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DOTLOCK_CONFIG_DIR", dir)
	got, err := DefaultConfigDir()
	if err != nil {
		t.Fatalf("config dir: %v", err)
	}
	if got != dir {
		t.Fatalf("config dir = %q want %q", got, dir)
	}

	t.Setenv("DOTLOCK_CONFIG_DIR", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err = DefaultConfigDir()
	if err != nil {
		t.Fatalf("config dir: %v", err)
	}
	if got != filepath.Join(home, ".dotlock") {
		t.Fatalf("config dir = %q", got)
	}
}
