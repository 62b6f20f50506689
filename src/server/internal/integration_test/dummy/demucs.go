package dummy

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/veedubyou/vocal-separator/src/shared/lib/executor"
)

const (
	VocalsContent    = "dummy vocals"
	RemainderContent = "dummy no vocals"
)

// StemOf is what a stem holds when DemucsExecutor.StemsFromInput is set
func StemOf(stem string, input string) string {
	return stem + " of " + input
}

var _ executor.Executor = &DemucsExecutor{}

// DemucsExecutor behaves like the separator: progress on stderr, stems
// under <-o>/<-n>/<input base name>/
type DemucsExecutor struct {
	recorder

	// written to stderr in order, each followed by LineEnding
	OutputLines []string
	LineEnding  string

	ExitCode         int
	SkipVocals       bool
	SkipRemainder    bool
	BlockUntilCancel bool

	// stems become "<content> of <input file content>"
	StemsFromInput bool
	// stems are only written once Hold is closed
	Hold <-chan struct{}
}

func (d *DemucsExecutor) Command(ctx context.Context, name string, args ...string) executor.Command {
	reader, writer := io.Pipe()

	return &demucsCommand{
		ctx:        ctx,
		parent:     d,
		invocation: Invocation{Name: name, Args: args},
		reader:     reader,
		writer:     writer,
		done:       make(chan struct{}),
	}
}

type demucsCommand struct {
	ctx        context.Context
	parent     *DemucsExecutor
	invocation Invocation
	reader     *io.PipeReader
	writer     *io.PipeWriter
	done       chan struct{}
	runErr     error
	exitCode   int
}

func (d *demucsCommand) SetDir(dir string) {
	d.invocation.Dir = dir
}

func (d *demucsCommand) CombinedOutput() ([]byte, error) {
	return nil, errors.New("demucs dummy only supports streaming")
}

func (d *demucsCommand) StderrPipe() (io.ReadCloser, error) {
	return d.reader, nil
}

func (d *demucsCommand) Start() error {
	d.parent.record(d.invocation)
	go d.run()
	return nil
}

func (d *demucsCommand) run() {
	defer close(d.done)
	defer d.writer.Close()

	lineEnding := d.parent.LineEnding
	if lineEnding == "" {
		lineEnding = "\n"
	}

	for _, line := range d.parent.OutputLines {
		if _, err := io.WriteString(d.writer, line+lineEnding); err != nil {
			break
		}
	}

	if d.parent.BlockUntilCancel {
		<-d.ctx.Done()
		d.exitCode = -1
		d.runErr = errors.Wrap(d.ctx.Err(), "signal: killed")
		return
	}

	if d.parent.ExitCode != 0 {
		d.exitCode = d.parent.ExitCode
		d.runErr = errors.Newf("exit status %d", d.parent.ExitCode)
		return
	}

	if d.parent.Hold != nil {
		select {
		case <-d.parent.Hold:
		case <-d.ctx.Done():
			d.exitCode = -1
			d.runErr = errors.Wrap(d.ctx.Err(), "signal: killed")
			return
		}
	}

	if err := d.writeStems(); err != nil {
		d.exitCode = 1
		d.runErr = err
	}
}

func (d *demucsCommand) writeStems() error {
	input := d.invocation.LastArg()
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	stemDir := filepath.Join(d.invocation.ArgAfter("-o"), d.invocation.ArgAfter("-n"), base)

	if err := os.MkdirAll(stemDir, os.ModePerm); err != nil {
		return err
	}

	vocals, remainder := VocalsContent, RemainderContent
	if d.parent.StemsFromInput {
		contents, err := os.ReadFile(input)
		if err != nil {
			return err
		}

		vocals = StemOf(VocalsContent, string(contents))
		remainder = StemOf(RemainderContent, string(contents))
	}

	stems := map[string]string{}
	if !d.parent.SkipVocals {
		stems["vocals.mp3"] = vocals
	}
	if !d.parent.SkipRemainder {
		stems["no_vocals.mp3"] = remainder
	}

	for name, content := range stems {
		path := filepath.Join(stemDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return errors.Wrapf(err, "write %s", path)
		}
	}

	return nil
}

func (d *demucsCommand) Wait() error {
	<-d.done
	return d.runErr
}

func (d *demucsCommand) ExitCode() int {
	return d.exitCode
}
