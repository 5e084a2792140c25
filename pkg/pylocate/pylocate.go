// Package pylocate resolves the path of the Python runtime library that a
// native extension build links against, using only an interpreter's captured
// build configuration and read-only filesystem probes. Capture the
// configuration once at the call site and pass it in; Locate itself never
// reads ambient state.
package pylocate

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrLibraryNotFound is returned when no candidate path exists on disk.
	ErrLibraryNotFound = errors.New("python library not found")

	// ErrNoLibraryDirs is returned when the configuration defines neither a
	// library directory nor a library destination to derive one from.
	ErrNoLibraryDirs = errors.New("no python library directory configured")

	// ErrVerifyUnsupported is returned by Verify on platforms without a
	// dynamic loader interface.
	ErrVerifyUnsupported = errors.New("library verification not supported on this platform")
)

// staticLibExt marks a configured library value as a static archive, which is
// unusable as-is for a dynamic link.
const staticLibExt = ".a"

// BuildConfig is a read-only snapshot of an interpreter's build-time
// configuration variables plus its runtime ABI-flags string. The ABI flags
// travel separately because the interpreter reports them as a runtime
// attribute, not a configuration variable.
type BuildConfig struct {
	vars     map[string]string
	abiFlags string
}

// NewBuildConfig copies vars into a snapshot. Later changes to the input map
// do not affect the returned config.
func NewBuildConfig(vars map[string]string, abiFlags string) BuildConfig {
	copied := make(map[string]string, len(vars))
	for k, v := range vars {
		copied[k] = v
	}
	return BuildConfig{vars: copied, abiFlags: abiFlags}
}

// Var returns the value of a configuration variable, or "" when unset.
func (c BuildConfig) Var(name string) string {
	return c.vars[name]
}

// Has reports whether a configuration variable is set, even to "".
func (c BuildConfig) Has(name string) bool {
	_, ok := c.vars[name]
	return ok
}

// Flag interprets a configuration variable as a boolean. Numeric flags arrive
// as "0"/"1" strings; unset, empty and "0" are false, anything else is true.
func (c BuildConfig) Flag(name string) bool {
	v := c.vars[name]
	return v != "" && v != "0"
}

// ABIFlags returns the interpreter's ABI-flags string ("d", "md", ...) or "".
func (c BuildConfig) ABIFlags() string {
	return c.abiFlags
}

// Locate resolves the Python runtime library for the given dotted version
// descriptor ("3.10"). When the configured LIBRARY value names something other
// than a static archive it is returned unchanged, without any filesystem
// probe, even if it is a bare filename. Otherwise the candidate paths from
// Candidates are probed in order and the first existing regular file wins.
// A miss returns ErrLibraryNotFound; missing directory configuration returns
// ErrNoLibraryDirs. Locate never panics and, for identical inputs against an
// unchanged filesystem, always returns the same result.
func Locate(cfg BuildConfig, version string) (string, error) {
	if lib := cfg.Var("LIBRARY"); lib != "" && filepath.Ext(lib) != staticLibExt {
		return lib, nil
	}

	candidates, err := Candidates(cfg, version)
	if err != nil {
		return "", err
	}
	for path := range candidates {
		if fileExists(path) {
			return path, nil
		}
	}
	return "", ErrLibraryNotFound
}

// Candidates yields every candidate library path in priority order: name
// prefix outermost ("", then "lib"), then file extension (".lib", ".so",
// ".a", with ".dylib" ahead of all three when the WITH_DYLD flag is set),
// then version suffix (full descriptor, first two components concatenated,
// none), then ABI-flags suffix (flags, none) innermost. An empty version
// descriptor contributes only the no-version candidates. Generation is lazy
// and the sequence may be ranged any number of times.
func Candidates(cfg BuildConfig, version string) (iter.Seq[string], error) {
	dir, err := LibraryDir(cfg)
	if err != nil {
		return nil, err
	}

	prefixes := []string{"", "lib"}
	extensions := candidateExtensions(cfg)
	versions := candidateVersions(version)
	abis := []string{""}
	if flags := cfg.ABIFlags(); flags != "" {
		abis = []string{flags, ""}
	}

	return func(yield func(string) bool) {
		for _, prefix := range prefixes {
			for _, ext := range extensions {
				for _, ver := range versions {
					for _, abi := range abis {
						name := prefix + "python" + ver + abi + ext
						if !yield(filepath.Join(dir, name)) {
							return
						}
					}
				}
			}
		}
	}, nil
}

// LibraryDir returns the directory candidate paths are rooted in: LIBDIR,
// extended by the multiarch subdirectory (leading path separator stripped)
// when MULTIARCH is set, falling back to the libs directory next to LIBDEST
// when LIBDIR is not configured.
func LibraryDir(cfg BuildConfig) (string, error) {
	if dir := cfg.Var("LIBDIR"); dir != "" {
		if cfg.Flag("MULTIARCH") {
			if sub := cfg.Var("multiarchsubdir"); sub != "" {
				sub = strings.TrimPrefix(sub, string(os.PathSeparator))
				dir = filepath.Join(dir, sub)
			}
		}
		return dir, nil
	}

	dest := cfg.Var("LIBDEST")
	if dest == "" {
		return "", ErrNoLibraryDirs
	}
	dir, err := filepath.Abs(filepath.Join(dest, "..", "libs"))
	if err != nil {
		return "", fmt.Errorf("resolve libs fallback: %w", err)
	}
	return dir, nil
}

func candidateExtensions(cfg BuildConfig) []string {
	exts := []string{".lib", ".so", ".a"}
	if cfg.Flag("WITH_DYLD") {
		exts = append([]string{".dylib"}, exts...)
	}
	return exts
}

func candidateVersions(version string) []string {
	if version == "" {
		return []string{""}
	}
	parts := strings.Split(version, ".")
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return []string{version, strings.Join(parts, ""), ""}
}

// fileExists returns true if the given path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
