package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSafeWriteFileReplacesContent(t *testing.T) {
	p := filepath.Join(t.TempDir(), "r.md")
	if err := SafeWriteFile(p, []byte("one")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := SafeWriteFile(p, []byte("two")); err != nil {
		t.Fatalf("second write: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil || string(b) != "two" {
		t.Fatalf("content = %q, %v", b, err)
	}
	if _, err := os.Stat(p + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestFindSuiteRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "data", "daily")
	if err := EnsureDir(nested); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, SuiteManifest), []byte("name: x\n"), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	got, err := FindSuiteRoot(nested)
	if err != nil || got != root {
		t.Fatalf("FindSuiteRoot = %q, %v; want %q", got, err, root)
	}
	if _, err := FindSuiteRoot(t.TempDir()); err == nil {
		t.Fatalf("expected not found")
	}
}
