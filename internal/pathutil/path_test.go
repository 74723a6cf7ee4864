package pathutil

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestResolvePlainFileIsUnchanged(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "inbox")
	if err := os.WriteFile(target, nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Resolve(target)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != target {
		t.Fatalf("resolve = %q want %q", got, target)
	}
}

func TestResolveNestedLinksMatchDirectTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "mbox")
	if err := os.WriteFile(target, nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	direct, err := Resolve(target)
	if err != nil {
		t.Fatalf("resolve direct: %v", err)
	}

	prev := "mbox"
	for i := 0; i < 20; i++ {
		name := "link" + strconv.Itoa(i)
		if err := os.Symlink(prev, filepath.Join(dir, name)); err != nil {
			t.Fatalf("symlink: %v", err)
		}
		prev = name
	}
	got, err := Resolve(filepath.Join(dir, prev))
	if err != nil {
		t.Fatalf("resolve chain: %v", err)
	}
	if got != direct {
		t.Fatalf("resolve chain = %q want %q", got, direct)
	}
}

func TestResolveAbsoluteAndRelativeTargets(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "spool")
	if err := os.Mkdir(sub, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	target := filepath.Join(sub, "alice")
	if err := os.WriteFile(target, nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	abs := filepath.Join(dir, "abs")
	if err := os.Symlink(target, abs); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	rel := filepath.Join(dir, "rel")
	if err := os.Symlink("spool/alice", rel); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	for _, link := range []string{abs, rel} {
		got, err := Resolve(link)
		if err != nil {
			t.Fatalf("resolve %s: %v", link, err)
		}
		if got != target {
			t.Fatalf("resolve %s = %q want %q", link, got, target)
		}
	}
}

func TestResolveCycleFails(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	if err := os.Symlink("b", a); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	if err := os.Symlink("a", b); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	_, err := Resolve(a)
	if !errors.Is(err, ErrTooManyLinks) {
		t.Fatalf("expected ErrTooManyLinks, got %v", err)
	}

	self := filepath.Join(dir, "self")
	if err := os.Symlink("self", self); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	if _, err := Resolve(self); !errors.Is(err, ErrTooManyLinks) {
		t.Fatalf("expected ErrTooManyLinks for self link, got %v", err)
	}
}

func TestResolveBrokenChainFails(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(dir, "dangling")
	if err := os.Symlink("missing", link); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	_, err := Resolve(link)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestExpandLink(t *testing.T) {
	cases := []struct {
		link, target, want string
	}{
		{"/var/mail/alice", "/srv/mail/alice", "/srv/mail/alice"},
		{"/var/mail/alice", "shared", "/var/mail/shared"},
		{"alice", "bob", "bob"},
		{"mail/alice", "../bob", "mail/../bob"},
	}
	for _, tc := range cases {
		if got := expandLink(tc.link, tc.target); got != tc.want {
			t.Errorf("expandLink(%q, %q) = %q want %q", tc.link, tc.target, got, tc.want)
		}
	}
}

func TestDir(t *testing.T) {
	cases := map[string]string{
		"/var/mail/alice": "/var/mail",
		"/alice":          "/",
		"alice":           ".",
		"mail/alice":      "mail",
	}
	for in, want := range cases {
		if got := Dir(in); got != want {
			t.Errorf("Dir(%q) = %q want %q", in, got, want)
		}
	}
}

func TestExpandUserAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DOTLOCK_TEST_DIR", "/srv")

	got, err := ExpandUserAndEnv(" ~/.dotlock/config.yaml ")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if want := filepath.Join(home, ".dotlock", "config.yaml"); got != want {
		t.Fatalf("expand = %q want %q", got, want)
	}
	got, err = ExpandUserAndEnv("$DOTLOCK_TEST_DIR/dotlock.yaml")
	if err != nil {
		t.Fatalf("expand env: %v", err)
	}
	if got != "/srv/dotlock.yaml" {
		t.Fatalf("expand env = %q", got)
	}
	if got, _ := ExpandUserAndEnv("   "); got != "" {
		t.Fatalf("blank expand = %q", got)
	}
}
