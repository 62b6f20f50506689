package dummy

import (
	"context"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/veedubyou/vocal-separator/src/shared/lib/executor"
)

var _ executor.Executor = &FFmpegExecutor{}

// FFmpegExecutor "converts" by copying the input to the output path
type FFmpegExecutor struct {
	recorder
	Fail bool
}

func (f *FFmpegExecutor) Command(_ context.Context, name string, args ...string) executor.Command {
	return &ffmpegCommand{
		parent:     f,
		invocation: Invocation{Name: name, Args: args},
	}
}

type ffmpegCommand struct {
	parent     *FFmpegExecutor
	invocation Invocation
}

func (f *ffmpegCommand) SetDir(dir string) {
	f.invocation.Dir = dir
}

func (f *ffmpegCommand) CombinedOutput() ([]byte, error) {
	f.parent.record(f.invocation)

	if f.parent.Fail {
		return []byte("Invalid data found when processing input"), errors.New("exit status 1")
	}

	input := f.invocation.ArgAfter("-i")
	contents, err := os.ReadFile(input)
	if err != nil {
		return []byte(err.Error()), err
	}

	if err := os.WriteFile(f.invocation.LastArg(), contents, 0o644); err != nil {
		return []byte(err.Error()), err
	}

	return nil, nil
}

func (f *ffmpegCommand) StderrPipe() (io.ReadCloser, error) {
	return nil, errors.New("ffmpeg dummy only supports CombinedOutput")
}

func (f *ffmpegCommand) Start() error {
	return errors.New("ffmpeg dummy only supports CombinedOutput")
}

func (f *ffmpegCommand) Wait() error {
	return errors.New("ffmpeg dummy only supports CombinedOutput")
}

func (f *ffmpegCommand) ExitCode() int {
	if f.parent.Fail {
		return 1
	}

	return 0
}
