package splitter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	separationentity "github.com/veedubyou/vocal-separator/src/server/internal/separation/entity"
	separationerrors "github.com/veedubyou/vocal-separator/src/server/internal/separation/errors"
	"github.com/veedubyou/vocal-separator/src/shared/lib/cerr"
	"github.com/veedubyou/vocal-separator/src/shared/lib/errors/mark"
	"github.com/veedubyou/vocal-separator/src/shared/lib/executor"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

const (
	DefaultModel   = "htdemucs"
	DefaultTimeout = 300 * time.Second
	outputBitrate  = "320"
	scratchPrefix  = "separate-"
)

type jobState string

const (
	stateStaged     jobState = "staged"
	stateRunning    jobState = "running"
	stateFinalizing jobState = "finalizing"
	stateDone       jobState = "done"
	stateFailed     jobState = "failed"
)

//counterfeiter:generate . Runner
type Runner interface {
	Run(ctx context.Context, working separationentity.WorkingFile, outputs separationentity.Result, onProgress separationentity.ProgressFunc) (separationentity.Result, error)
}

type Option func(*DemucsRunner)

func WithModel(model string) Option {
	return func(d *DemucsRunner) {
		if model != "" {
			d.model = model
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(d *DemucsRunner) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

func WithProgressParser(parser ProgressParser) Option {
	return func(d *DemucsRunner) {
		if parser != nil {
			d.parser = parser
		}
	}
}

var _ Runner = DemucsRunner{}

func NewDemucsRunner(workingDir string, demucsBinPath string, executor executor.Executor, opts ...Option) DemucsRunner {
	runner := DemucsRunner{
		workingDir:    workingDir,
		demucsBinPath: demucsBinPath,
		executor:      executor,
		model:         DefaultModel,
		timeout:       DefaultTimeout,
		parser:        PercentPatternParser{},
	}

	for _, opt := range opts {
		opt(&runner)
	}

	return runner
}

// DemucsRunner runs one separation per call. Each call gets its own scratch
// dir under workingDir, so concurrent jobs never see each other's stems.
type DemucsRunner struct {
	workingDir    string
	demucsBinPath string
	executor      executor.Executor
	model         string
	timeout       time.Duration
	parser        ProgressParser
}

func (d DemucsRunner) Run(ctx context.Context, working separationentity.WorkingFile, outputs separationentity.Result, onProgress separationentity.ProgressFunc) (separationentity.Result, error) {
	scratchDir := filepath.Join(d.workingDir, scratchPrefix+uuid.NewString())
	logger := log.WithFields(log.Fields{
		"working_path": working.Path,
		"scratch_dir":  scratchDir,
	})

	defer d.cleanup(logger, scratchDir, working)

	logger.WithField("state", stateStaged).Info("Separation staged")

	result, err := d.run(ctx, logger, scratchDir, working, outputs, onProgress)
	if err != nil {
		logger.WithField("state", stateFailed).WithError(err).Error("Separation failed")
		return separationentity.Result{}, err
	}

	logger.WithField("state", stateDone).Info("Separation done")
	return result, nil
}

func (d DemucsRunner) run(ctx context.Context, logger *log.Entry, scratchDir string, working separationentity.WorkingFile, outputs separationentity.Result, onProgress separationentity.ProgressFunc) (separationentity.Result, error) {
	if err := os.MkdirAll(scratchDir, os.ModePerm); err != nil {
		return separationentity.Result{}, cerr.Field("scratch_dir", scratchDir).
			Wrap(err).Error("Failed to create scratch dir")
	}

	tracker := newProgressTracker(onProgress)
	tracker.advance(separationentity.StartingProgress, StartingMessage)

	logger.WithField("state", stateRunning).Info("Separation running")
	if err := d.execute(ctx, scratchDir, working.Path, tracker); err != nil {
		return separationentity.Result{}, err
	}

	logger.WithField("state", stateFinalizing).Info("Separation finalizing")
	tracker.advance(separationentity.FinalizingProgress, FinalizingMessage)

	found, err := discoverArtifacts(artifactDir(scratchDir, d.model, working.Path))
	if err != nil {
		return separationentity.Result{}, err
	}

	if err := relocate(found, outputs); err != nil {
		return separationentity.Result{}, errors.Wrap(err, "Failed to relocate separator outputs")
	}

	return outputs, nil
}

func (d DemucsRunner) args(scratchDir string, workingPath string) []string {
	return []string{
		"--two-stems=vocals",
		"--mp3",
		"--mp3-bitrate=" + outputBitrate,
		"-n", d.model,
		"-o", scratchDir,
		workingPath,
	}
}

func (d DemucsRunner) execute(ctx context.Context, scratchDir string, workingPath string, tracker *progressTracker) error {
	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	args := d.args(scratchDir, workingPath)
	errctx := cerr.Field("demucs_bin_path", d.demucsBinPath).Field("demucs_args", args)

	logger := log.WithFields(log.Fields{
		"bin":  d.demucsBinPath,
		"args": args,
	})
	logger.Info("Running demucs command")

	cmd := d.executor.Command(runCtx, d.demucsBinPath, args...)
	cmd.SetDir(scratchDir)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return mark.Wrap(errctx.Wrap(err).Error("Failed to open demucs output"),
			separationerrors.ChildProcessMark, "Separator could not be started")
	}

	if err := cmd.Start(); err != nil {
		return mark.Wrap(errctx.Wrap(err).Error("Failed to start demucs"),
			separationerrors.ChildProcessMark, "Separator could not be started")
	}

	diag := newDiagnostics(diagnosticsLimit)
	scanDone := make(chan error, 1)
	go func() {
		scanDone <- consumeOutput(stderr, diag, func(line string) {
			percent, ok := d.parser.Parse(line)
			if !ok {
				return
			}

			tracker.advance(processingProgress(percent), ProcessingMessage)
		})
	}()

	// a killed separator can leave children holding the pipe open
	var scanErr error
	select {
	case scanErr = <-scanDone:
	case <-runCtx.Done():
		_ = stderr.Close()
		scanErr = <-scanDone
	}

	// the pipe is closed on purpose once the run is interrupted
	if scanErr != nil && runCtx.Err() == nil {
		logger.WithError(scanErr).Warn("Stopped reading demucs output early")
	}

	waitErr := cmd.Wait()
	output := diag.String()
	logger.Debug(output)

	if runCtx.Err() != nil {
		return d.interruptedError(ctx, errctx.Field("demucs_output", output))
	}

	if waitErr != nil {
		exitCode := cmd.ExitCode()
		err := errctx.Field("demucs_output", output).
			Field("exit_code", exitCode).
			Wrap(waitErr).
			Error(fmt.Sprintf("Demucs exited with code %d: %s", exitCode, output))
		return mark.Wrap(err, separationerrors.ChildProcessMark, "Separator failed")
	}

	logger.Info("Finished demucs command")
	return nil
}

func (d DemucsRunner) interruptedError(parentCtx context.Context, errctx cerr.Context) error {
	if errors.Is(parentCtx.Err(), context.Canceled) {
		err := errctx.Wrap(parentCtx.Err()).Error("Demucs was stopped")
		return mark.Wrap(err, separationerrors.CancelledMark, "Separation cancelled")
	}

	err := errctx.Field("timeout", d.timeout.String()).
		Wrap(context.DeadlineExceeded).
		Error(fmt.Sprintf("Demucs did not finish within %s", d.timeout))
	return mark.Wrap(err, separationerrors.TimeoutMark, "Separation timed out")
}

func (d DemucsRunner) cleanup(logger *log.Entry, scratchDir string, working separationentity.WorkingFile) {
	if err := os.RemoveAll(scratchDir); err != nil {
		logger.WithError(err).Warn("Failed to remove scratch dir")
	}

	if !working.Temporary {
		return
	}

	if err := os.Remove(working.Path); err != nil && !os.IsNotExist(err) {
		logger.WithError(err).Warn("Failed to remove converted input")
	}
}
