package sysinfo

import (
	"path/filepath"
	"runtime"
	"testing"
)

func TestCollectFillsBasicFields(t *testing.T) {
	s := Collect(t.TempDir())

	if s.Arch != runtime.GOARCH {
		t.Fatalf("Arch = %q, want %q", s.Arch, runtime.GOARCH)
	}
	if s.OS == "" {
		t.Fatal("OS is empty")
	}
	if s.OS == "darwin" {
		t.Fatalf("OS = %q, want normalized macos", s.OS)
	}
	if s.CPUCores <= 0 {
		t.Fatalf("CPUCores = %d, want > 0", s.CPUCores)
	}
	if s.MemTotalMB == 0 {
		t.Fatal("MemTotalMB = 0, want > 0")
	}
	if s.DiskTotalGB == 0 {
		t.Fatal("DiskTotalGB = 0, want > 0")
	}
}

func TestCollectToleratesMissingBuildDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "build", "ext")

	s := Collect(dir)
	if s.DiskTotalGB == 0 {
		t.Fatal("DiskTotalGB = 0, want figures from nearest existing ancestor")
	}
}

func TestExistingDirWalksUp(t *testing.T) {
	base := t.TempDir()
	missing := filepath.Join(base, "a", "b", "c")

	if got := existingDir(missing); got != base {
		t.Fatalf("existingDir(%q) = %q, want %q", missing, got, base)
	}
	if got := existingDir(base); got != base {
		t.Fatalf("existingDir(%q) = %q, want unchanged", base, got)
	}
	if got := existingDir(""); got != "." {
		t.Fatalf("existingDir(\"\") = %q, want .", got)
	}
}

func TestNormalizeOS(t *testing.T) {
	if got := normalizeOS("darwin"); got != "macos" {
		t.Fatalf("normalizeOS(darwin) = %q, want macos", got)
	}
	if got := normalizeOS("linux"); got != "linux" {
		t.Fatalf("normalizeOS(linux) = %q, want linux", got)
	}
}
