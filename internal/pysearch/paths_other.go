//go:build !linux && !darwin && !windows

package pysearch

import (
	"os"
	"path/filepath"
)

func searchPatterns() []string {
	patterns := []string{
		"/usr/local/lib",
		"/usr/lib",
	}
	if home, err := os.UserHomeDir(); err == nil {
		patterns = append(patterns,
			filepath.Join(home, ".pyenv/versions/*/lib"),
			filepath.Join(home, ".local/lib"),
		)
	}
	return patterns
}

func libGlobs(version string) []string {
	if version == "" {
		return []string{"libpython3*.so", "libpython*.so"}
	}
	return []string{"libpython" + version + "*.so", "libpython3*.so", "libpython*.so"}
}
