package pysearch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/joeyballentine/pasteboard/internal/runner"
	"github.com/joeyballentine/pasteboard/pkg/pylocate"
)

// libFileName returns a library file name the host platform's globs match.
func libFileName(version string) string {
	switch runtime.GOOS {
	case "windows":
		return "python" + strings.ReplaceAll(version, ".", "") + ".dll"
	case "darwin":
		return "libpython" + version + ".dylib"
	default:
		return "libpython" + version + ".so"
	}
}

func plantLib(t *testing.T, dir, version string) string {
	t.Helper()
	path := filepath.Join(dir, libFileName(version))
	if err := os.WriteFile(path, []byte("\x7fELF"), 0644); err != nil {
		t.Fatalf("plant library: %v", err)
	}
	return path
}

func noTools() *runner.Runner {
	return runner.NewWithLookPath(func(name string) (string, error) {
		return "", fmt.Errorf("%s not found", name)
	})
}

func pinSystemPatterns(t *testing.T) {
	t.Helper()
	old := systemPatterns
	systemPatterns = nil
	t.Cleanup(func() { systemPatterns = old })
}

func TestSearchFindsLibraryInExtraDirs(t *testing.T) {
	pinSystemPatterns(t)
	dir := t.TempDir()
	want := plantLib(t, dir, "3.11")

	f := &Finder{Runner: noTools(), Version: "3.11", ExtraDirs: []string{dir}}
	got, err := f.Search(context.Background())
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got != want {
		t.Fatalf("Search() = %q, want %q", got, want)
	}
}

func TestSearchVersionedMatchOutranksGeneric(t *testing.T) {
	pinSystemPatterns(t)
	dir := t.TempDir()
	plantLib(t, dir, "3.9")
	want := plantLib(t, dir, "3.8")

	f := &Finder{Runner: noTools(), Version: "3.8", ExtraDirs: []string{dir}}
	got, err := f.Search(context.Background())
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got != want {
		t.Fatalf("Search() = %q, want the requested 3.8 over the newer 3.9", got)
	}
}

func TestSearchPicksHighestVersion(t *testing.T) {
	pinSystemPatterns(t)
	dir := t.TempDir()
	plantLib(t, dir, "3.8")
	want := plantLib(t, dir, "3.9")

	f := &Finder{Runner: noTools(), ExtraDirs: []string{dir}}
	got, err := f.Search(context.Background())
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got != want {
		t.Fatalf("Search() = %q, want newest %q", got, want)
	}
}

func TestSearchMissReturnsSentinel(t *testing.T) {
	pinSystemPatterns(t)

	f := &Finder{Runner: noTools(), ExtraDirs: []string{t.TempDir()}}
	_, err := f.Search(context.Background())
	if !errors.Is(err, pylocate.ErrLibraryNotFound) {
		t.Fatalf("Search() error = %v, want ErrLibraryNotFound", err)
	}
}

func TestSearchUsesPkgConfigLibsFlag(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake pkg-config is a shell script")
	}
	pinSystemPatterns(t)
	libDir := t.TempDir()
	want := plantLib(t, libDir, "3.11")

	binDir := t.TempDir()
	script := filepath.Join(binDir, "pkg-config")
	body := fmt.Sprintf("#!/bin/sh\ncase \"$1\" in\n--libs) echo \"-L%s -lpython3.11\" ;;\n*) exit 1 ;;\nesac\n", libDir)
	if err := os.WriteFile(script, []byte(body), 0755); err != nil {
		t.Fatalf("write pkg-config: %v", err)
	}

	r := runner.NewWithLookPath(func(name string) (string, error) {
		if name == "pkg-config" {
			return script, nil
		}
		return "", fmt.Errorf("%s not found", name)
	})

	f := &Finder{Runner: r, Version: "3.11"}
	got, err := f.Search(context.Background())
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got != want {
		t.Fatalf("Search() = %q, want %q", got, want)
	}
}

func TestSearchFallsBackToPkgConfigLibdirVariable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake pkg-config is a shell script")
	}
	pinSystemPatterns(t)
	libDir := t.TempDir()
	want := plantLib(t, libDir, "3.10")

	binDir := t.TempDir()
	script := filepath.Join(binDir, "pkg-config")
	body := fmt.Sprintf("#!/bin/sh\ncase \"$1\" in\n--libs) echo \"-lpython3.10\" ;;\n--variable=libdir) echo \"%s\" ;;\n*) exit 1 ;;\nesac\n", libDir)
	if err := os.WriteFile(script, []byte(body), 0755); err != nil {
		t.Fatalf("write pkg-config: %v", err)
	}

	r := runner.NewWithLookPath(func(name string) (string, error) {
		if name == "pkg-config" {
			return script, nil
		}
		return "", fmt.Errorf("%s not found", name)
	})

	f := &Finder{Runner: r}
	got, err := f.Search(context.Background())
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got != want {
		t.Fatalf("Search() = %q, want %q", got, want)
	}
}

func TestSearchExtraDirsOutrankPkgConfig(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake pkg-config is a shell script")
	}
	pinSystemPatterns(t)
	pcDir := t.TempDir()
	plantLib(t, pcDir, "3.12")
	extraDir := t.TempDir()
	want := plantLib(t, extraDir, "3.11")

	binDir := t.TempDir()
	script := filepath.Join(binDir, "pkg-config")
	body := fmt.Sprintf("#!/bin/sh\necho \"-L%s\"\n", pcDir)
	if err := os.WriteFile(script, []byte(body), 0755); err != nil {
		t.Fatalf("write pkg-config: %v", err)
	}

	r := runner.NewWithLookPath(func(name string) (string, error) {
		return script, nil
	})

	f := &Finder{Runner: r, ExtraDirs: []string{extraDir}}
	got, err := f.Search(context.Background())
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got != want {
		t.Fatalf("Search() = %q, want explicit dir to win over pkg-config", got)
	}
}

func TestPkgNames(t *testing.T) {
	got := pkgNames("3.11")
	want := []string{"python-3.11-embed", "python-3.11", "python3-embed", "python3"}
	if len(got) != len(want) {
		t.Fatalf("pkgNames(3.11) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pkgNames(3.11)[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	got = pkgNames("")
	if len(got) != 2 || got[0] != "python3-embed" || got[1] != "python3" {
		t.Fatalf("pkgNames(\"\") = %v, want embed first then python3", got)
	}
}

func TestPreferredVersion(t *testing.T) {
	paths := []string{"/lib/libpython3.8.so", "/lib/libpython3.9.so"}
	if got := preferredVersion(paths); got != "/lib/libpython3.9.so" {
		t.Fatalf("preferredVersion = %q, want the 3.9 build", got)
	}

	single := []string{"/lib/libpython3.8.so"}
	if got := preferredVersion(single); got != single[0] {
		t.Fatalf("preferredVersion single = %q, want %q", got, single[0])
	}
}
