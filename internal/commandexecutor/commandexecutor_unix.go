//go:build unix

package commandexecutor

import (
	"os/exec"
	"syscall"
)

// killProcessGroup starts the command in its own process group and kills the
// whole group on cancellation, so helpers spawned by the command (npx starts
// node) do not outlive it
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
