package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTypedGetters(t *testing.T) {
	o := NewOptions("test")
	o.Set("name", "kestrel")
	o.Set("temp", "1.5")
	o.Set("threads", "4")
	o.Set("verbose", "true")

	if got := o.GetString("name", ""); got != "kestrel" {
		t.Errorf("GetString = %q", got)
	}
	if f, err := o.GetFloat("temp", 0); err != nil || f != 1.5 {
		t.Errorf("GetFloat = %v, %v", f, err)
	}
	if n, err := o.GetInt("threads", 0); err != nil || n != 4 {
		t.Errorf("GetInt = %v, %v", n, err)
	}
	if b, err := o.GetBool("verbose", false); err != nil || !b {
		t.Errorf("GetBool = %v, %v", b, err)
	}
	// Defaults for absent keys.
	if got := o.GetString("missing", "def"); got != "def" {
		t.Errorf("default = %q", got)
	}
	if err := o.CheckAllConsumed(); err != nil {
		t.Errorf("all keys read, got %v", err)
	}
}

func TestGetFloatParseError(t *testing.T) {
	o := NewOptions("test")
	o.Set("temp", "warm")
	if _, err := o.GetFloat("temp", 0); err == nil {
		t.Error("expected parse error")
	}
}

func TestCheckAllConsumed(t *testing.T) {
	o := NewOptions("test")
	o.Set("used", "1")
	o.Set("unused", "2")
	o.Subdict("sub").Set("nested", "3")
	o.GetString("used", "")

	err := o.CheckAllConsumed()
	if err == nil {
		t.Fatal("expected error for unread keys")
	}
	for _, want := range []string{"unused", "sub.nested"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not name %q", err, want)
		}
	}
}

func TestParseSubdict(t *testing.T) {
	o, err := ParseSubdict("backend", "threads=2,cache(size=64,fast),verbose")
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := o.GetInt("threads", 0); n != 2 {
		t.Errorf("threads = %d", n)
	}
	if b, _ := o.GetBool("verbose", false); !b {
		t.Error("verbose flag not set")
	}
	sub := o.Subdict("cache")
	if n, _ := sub.GetInt("size", 0); n != 64 {
		t.Errorf("cache.size = %d", n)
	}
	if b, _ := sub.GetBool("fast", false); !b {
		t.Error("cache.fast flag not set")
	}
	if err := o.CheckAllConsumed(); err != nil {
		t.Errorf("all read, got %v", err)
	}
}

func TestParseSubdictEmpty(t *testing.T) {
	o, err := ParseSubdict("backend", "  ")
	if err != nil {
		t.Fatal(err)
	}
	if err := o.CheckAllConsumed(); err != nil {
		t.Errorf("empty dict should be fully consumed: %v", err)
	}
}

func TestParseSubdictUnbalanced(t *testing.T) {
	if _, err := ParseSubdict("backend", "cache(size=64"); err == nil {
		t.Error("expected error for unbalanced parentheses")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "backend: godeep\nweights: /tmp/net.json\npolicy_softmax_temp: 1.36\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if f.Backend != "godeep" || f.Weights != "/tmp/net.json" || f.PolicySoftmaxTemp != 1.36 {
		t.Errorf("unexpected config: %+v", f)
	}
	// Unset fields keep their defaults.
	if f.Search != "policyhead" || f.HistoryFill != "fen_only" {
		t.Errorf("defaults not preserved: %+v", f)
	}

	// Missing file falls back to defaults.
	f, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if f.Backend != "random" {
		t.Errorf("missing file should yield defaults, got %+v", f)
	}

	// Malformed file errors.
	if err := os.WriteFile(path, []byte("backend: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}
