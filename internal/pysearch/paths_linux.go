//go:build linux

package pysearch

import (
	"os"
	"path/filepath"
)

// searchPatterns lists the conventional library locations on Linux,
// multiarch directories first since distro pythons install there.
func searchPatterns() []string {
	patterns := []string{
		"/usr/lib/*-linux-gnu",
		"/usr/lib64",
		"/usr/lib",
		"/usr/local/lib",
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
		return []string{"libpython3*.so", "libpython*.so"}
	}
	return []string{"libpython" + version + "*.so", "libpython3*.so", "libpython*.so"}
}
