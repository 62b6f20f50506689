package dummy

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/veedubyou/vocal-separator/src/shared/lib/executor"
)

var _ executor.Executor = &Executor{}

// Executor routes commands to the dummy registered for the binary name
type Executor struct {
	Bins map[string]executor.Executor
}

func (e *Executor) Command(ctx context.Context, name string, args ...string) executor.Command {
	bin, ok := e.Bins[filepath.Base(name)]
	if !ok {
		return &failedCommand{err: errors.Newf("dummy executor has no binary %s", name)}
	}

	return bin.Command(ctx, name, args...)
}

// Invocation is one recorded command line
type Invocation struct {
	Name string
	Args []string
	Dir  string
}

func (i Invocation) ArgAfter(flag string) string {
	for idx, arg := range i.Args {
		if arg == flag && idx+1 < len(i.Args) {
			return i.Args[idx+1]
		}
	}

	return ""
}

func (i Invocation) HasArg(arg string) bool {
	for _, a := range i.Args {
		if a == arg {
			return true
		}
	}

	return false
}

func (i Invocation) LastArg() string {
	if len(i.Args) == 0 {
		return ""
	}

	return i.Args[len(i.Args)-1]
}

type recorder struct {
	lock        sync.Mutex
	invocations []Invocation
}

func (r *recorder) record(invocation Invocation) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.invocations = append(r.invocations, invocation)
}

func (r *recorder) Invocations() []Invocation {
	r.lock.Lock()
	defer r.lock.Unlock()

	return append([]Invocation{}, r.invocations...)
}

var _ executor.Command = &failedCommand{}

type failedCommand struct {
	err error
}

func (f *failedCommand) SetDir(string)                      {}
func (f *failedCommand) CombinedOutput() ([]byte, error)    { return nil, f.err }
func (f *failedCommand) StderrPipe() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader("")), nil }
func (f *failedCommand) Start() error                       { return f.err }
func (f *failedCommand) Wait() error                        { return f.err }
func (f *failedCommand) ExitCode() int                      { return -1 }
