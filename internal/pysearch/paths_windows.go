//go:build windows

package pysearch

import (
	"os"
	"path/filepath"
	"strings"
)

// searchPatterns lists the conventional library locations on Windows:
// per-user and machine-wide python.org installs, then System32 where the
// installer drops the runtime DLL.
func searchPatterns() []string {
	patterns := []string{}
	if local := os.Getenv("LOCALAPPDATA"); local != "" {
		patterns = append(patterns, filepath.Join(local, "Programs", "Python", "Python*"))
	}
	patterns = append(patterns, `C:\Python*`)
	if root := os.Getenv("SystemRoot"); root != "" {
		patterns = append(patterns, filepath.Join(root, "System32"))
	}
	return patterns
}

// libGlobs matches the runtime DLL, which drops the lib prefix and the
// version dot: python311.dll.
func libGlobs(version string) []string {
	if version == "" {
		return []string{"python3*.dll"}
	}
	compact := strings.ReplaceAll(version, ".", "")
	return []string{"python" + compact + "*.dll", "python3*.dll"}
}
