//go:build darwin

package pysearch

import (
	"os"
	"path/filepath"
)

// searchPatterns lists the conventional library locations on macOS:
// framework installs from homebrew, python.org and macports, then the
// per-user pyenv and conda trees.
func searchPatterns() []string {
	patterns := []string{
		"/opt/homebrew/Frameworks/Python.framework/Versions/*/lib",
		"/usr/local/Frameworks/Python.framework/Versions/*/lib",
		"/Library/Frameworks/Python.framework/Versions/*/lib",
		"/opt/local/Library/Frameworks/Python.framework/Versions/*/lib",
	}
	if home, err := os.UserHomeDir(); err == nil {
		patterns = append(patterns,
			filepath.Join(home, ".pyenv/versions/*/lib"),
			filepath.Join(home, "miniconda3/lib"),
			filepath.Join(home, "anaconda3/lib"),
			filepath.Join(home, ".local/lib"),
		)
	}
	return patterns
}

func libGlobs(version string) []string {
	if version == "" {
		return []string{"libpython3*.dylib", "libpython*.dylib"}
	}
	return []string{"libpython" + version + "*.dylib", "libpython3*.dylib", "libpython*.dylib"}
}
