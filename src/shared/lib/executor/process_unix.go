//go:build unix

package executor

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/cockroachdb/errors"
)

// killProcessGroupOnCancel starts the command in its own process group and
// kills the whole group on cancel, so workers it spawned don't outlive it
func killProcessGroupOnCancel(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}

		return err
	}
}
