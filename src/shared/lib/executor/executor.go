package executor

import (
	"context"
	"io"
	"os/exec"
	"time"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

// waitDelay bounds how long Wait keeps the pipes open after the process is killed
const waitDelay = 5 * time.Second

//counterfeiter:generate . Executor
type Executor interface {
	Command(ctx context.Context, name string, args ...string) Command
}

//counterfeiter:generate . Command
type Command interface {
	SetDir(dir string)
	CombinedOutput() ([]byte, error)
	StderrPipe() (io.ReadCloser, error)
	Start() error
	Wait() error
	ExitCode() int
}

var _ Executor = BinaryFileExecutor{}

type BinaryFileExecutor struct{}

func (BinaryFileExecutor) Command(ctx context.Context, name string, args ...string) Command {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = waitDelay
	killProcessGroupOnCancel(cmd)

	return &BinaryFileCommand{cmd: cmd}
}

var _ Command = &BinaryFileCommand{}

type BinaryFileCommand struct {
	cmd *exec.Cmd
}

func (b *BinaryFileCommand) SetDir(dir string) {
	b.cmd.Dir = dir
}

func (b *BinaryFileCommand) CombinedOutput() ([]byte, error) {
	return b.cmd.CombinedOutput()
}

func (b *BinaryFileCommand) StderrPipe() (io.ReadCloser, error) {
	return b.cmd.StderrPipe()
}

func (b *BinaryFileCommand) Start() error {
	return b.cmd.Start()
}

func (b *BinaryFileCommand) Wait() error {
	return b.cmd.Wait()
}

// ExitCode is -1 until the process has exited, or if it was killed by a signal
func (b *BinaryFileCommand) ExitCode() int {
	if b.cmd.ProcessState == nil {
		return -1
	}

	return b.cmd.ProcessState.ExitCode()
}
