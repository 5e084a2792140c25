//go:build linux

package runner

import (
	"os/exec"
	"syscall"
)

// setProcessGroup starts the tool in a fresh process group with a death
// signal, so neither a timeout nor a crashed parent leaves make and the
// compilers it forked running.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pgid:      0,
		Pdeathsig: syscall.SIGKILL,
	}
}

// killProcessGroup signals the whole group. Setpgid made the child the
// group leader, so its pid doubles as the group id.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		return cmd.Process.Kill()
	}
	return nil
}
