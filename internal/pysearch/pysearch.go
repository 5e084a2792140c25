// Package pysearch finds a Python runtime library without help from the
// interpreter's build configuration. It is the opt-in fallback for hosts
// whose sysconfig data is incomplete, probing pkg-config first and then
// the conventional install locations for the platform.
package pysearch

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joeyballentine/pasteboard/internal/logging"
	"github.com/joeyballentine/pasteboard/internal/runner"
	"github.com/joeyballentine/pasteboard/pkg/pylocate"
)

var log = logging.L("pysearch")

// systemPatterns holds the conventional library locations for the host,
// as directory glob patterns. Overridable in tests.
var systemPatterns = searchPatterns()

// Finder searches the host for a Python runtime library.
type Finder struct {
	Runner *runner.Runner

	// Version narrows the search to one dotted release, e.g. "3.11".
	// Empty matches any Python.
	Version string
	// ExtraDirs are searched before pkg-config and the conventional
	// locations.
	ExtraDirs []string
}

// Search returns the best matching library path, or
// pylocate.ErrLibraryNotFound when the host has none.
func (f *Finder) Search(ctx context.Context) (string, error) {
	if path, ok := searchDirs(f.ExtraDirs, f.Version); ok {
		return path, nil
	}

	if dir, ok := f.pkgConfigLibDir(ctx); ok {
		if path, ok := searchDirs([]string{dir}, f.Version); ok {
			return path, nil
		}
		log.Debug("pkg-config libdir has no python library", "dir", dir)
	}

	for _, pattern := range systemPatterns {
		dirs, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		if path, ok := searchDirs(dirs, f.Version); ok {
			return path, nil
		}
	}

	return "", pylocate.ErrLibraryNotFound
}

// searchDirs scans directories in order and returns the best library in
// the first directory that has one. Versioned matches outrank generic
// ones within a directory.
func searchDirs(dirs []string, version string) (string, bool) {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		for _, glob := range libGlobs(version) {
			matches, err := filepath.Glob(filepath.Join(dir, glob))
			if err != nil || len(matches) == 0 {
				continue
			}
			return preferredVersion(matches), true
		}
	}
	return "", false
}

// pkgConfigLibDir asks pkg-config where Python's libraries live. The
// --libs -L flag wins over the libdir variable because it reflects any
// non-default prefix the package was built with.
func (f *Finder) pkgConfigLibDir(ctx context.Context) (string, bool) {
	for _, pkg := range pkgNames(f.Version) {
		out, err := f.Runner.Output(ctx, "pkg-config", "--libs", pkg)
		if err != nil {
			continue
		}
		for _, part := range strings.Fields(out) {
			if strings.HasPrefix(part, "-L") {
				return strings.TrimPrefix(part, "-L"), true
			}
		}

		out, err = f.Runner.Output(ctx, "pkg-config", "--variable=libdir", pkg)
		if err != nil {
			continue
		}
		if dir := strings.TrimSpace(out); dir != "" {
			return dir, true
		}
	}
	return "", false
}

// pkgNames lists the pkg-config packages to probe, embed variants first
// since those carry link flags for the full runtime.
func pkgNames(version string) []string {
	if version == "" {
		return []string{"python3-embed", "python3"}
	}
	pkg := "python-" + version
	return []string{pkg + "-embed", pkg, "python3-embed", "python3"}
}

// preferredVersion picks the highest version from library paths by
// reverse lexical sort.
func preferredVersion(paths []string) string {
	if len(paths) == 1 {
		return paths[0]
	}
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))
	return paths[0]
}
