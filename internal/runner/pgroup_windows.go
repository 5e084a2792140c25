//go:build windows

package runner

import "os/exec"

// setProcessGroup is a no-op. Killing the full msbuild tree on Windows
// needs a Job Object; only the direct tool process is managed here.
func setProcessGroup(cmd *exec.Cmd) {}

func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
