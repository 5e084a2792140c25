//go:build !windows && !linux

package runner

import (
	"os/exec"
	"syscall"
)

// setProcessGroup starts the tool in a fresh process group so a timeout
// takes down the compilers it forked, not just the top process. Pdeathsig
// does not exist outside Linux.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    0,
	}
}

// killProcessGroup signals the whole group via the leader's pid.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		return cmd.Process.Kill()
	}
	return nil
}
