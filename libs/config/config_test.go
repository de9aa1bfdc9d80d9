package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStringFallback(t *testing.T) {
	t.Setenv("SLOTDESK_TEST_STRING", "")
	if got := String("SLOTDESK_TEST_STRING", "dflt"); got != "dflt" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv("SLOTDESK_TEST_STRING", "value")
	if got := String("SLOTDESK_TEST_STRING", "dflt"); got != "value" {
		t.Fatalf("expected value, got %q", got)
	}
}

func TestRequiredString(t *testing.T) {
	t.Setenv("SLOTDESK_TEST_REQUIRED", "  ")
	if _, err := RequiredString("SLOTDESK_TEST_REQUIRED"); err == nil {
		t.Fatalf("expected error for blank value")
	}
}

func TestPort(t *testing.T) {
	t.Setenv("SLOTDESK_TEST_PORT", "70000")
	if _, err := Port("SLOTDESK_TEST_PORT", "8080"); err == nil {
		t.Fatalf("expected error for out of range port")
	}
	t.Setenv("SLOTDESK_TEST_PORT", "")
	p, err := Port("SLOTDESK_TEST_PORT", "8080")
	if err != nil || p != "8080" {
		t.Fatalf("expected fallback port, got %q err=%v", p, err)
	}
}

func TestTypedGetters(t *testing.T) {
	t.Setenv("SLOTDESK_TEST_INT", "42")
	t.Setenv("SLOTDESK_TEST_BOOL", "yes")
	t.Setenv("SLOTDESK_TEST_DUR", "90s")
	t.Setenv("SLOTDESK_TEST_LIST", " a, ,b ,c")

	if n, err := Int("SLOTDESK_TEST_INT", 1); err != nil || n != 42 {
		t.Fatalf("Int: got %d err=%v", n, err)
	}
	if b, err := Bool("SLOTDESK_TEST_BOOL", false); err != nil || !b {
		t.Fatalf("Bool: got %v err=%v", b, err)
	}
	if d, err := Duration("SLOTDESK_TEST_DUR", time.Second); err != nil || d != 90*time.Second {
		t.Fatalf("Duration: got %v err=%v", d, err)
	}
	list := List("SLOTDESK_TEST_LIST")
	if len(list) != 3 || list[0] != "a" || list[1] != "b" || list[2] != "c" {
		t.Fatalf("List: got %v", list)
	}

	t.Setenv("SLOTDESK_TEST_INT", "x")
	if _, err := Int("SLOTDESK_TEST_INT", 1); err == nil {
		t.Fatalf("expected error for non-integer")
	}
	t.Setenv("SLOTDESK_TEST_BOOL", "maybe")
	if _, err := Bool("SLOTDESK_TEST_BOOL", false); err == nil {
		t.Fatalf("expected error for non-boolean")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("SLOTDESK_TEST_DOTENV=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("SLOTDESK_TEST_DOTENV", "")
	os.Unsetenv("SLOTDESK_TEST_DOTENV")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := String("SLOTDESK_TEST_DOTENV", ""); got != "from-file" {
		t.Fatalf("expected value from file, got %q", got)
	}
}
