package separationusecase

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/markers"
	"github.com/google/uuid"
	"github.com/veedubyou/vocal-separator/src/server/internal/errors/api"
	"github.com/veedubyou/vocal-separator/src/server/internal/job/entity"
	"github.com/veedubyou/vocal-separator/src/server/internal/lib/metrics"
	"github.com/veedubyou/vocal-separator/src/server/internal/separation/entity"
	"github.com/veedubyou/vocal-separator/src/server/internal/separation/errors"
	"github.com/veedubyou/vocal-separator/src/server/internal/separation/normalizer"
	"github.com/veedubyou/vocal-separator/src/server/internal/separation/splitter"
	"github.com/veedubyou/vocal-separator/src/shared/lib/cerr"
	"github.com/veedubyou/vocal-separator/src/shared/lib/errors/mark"
)

const (
	UploadingMessage = "uploading"
	CompleteMessage  = "complete"
	stagedPrefix     = "upload-"
)

// ProgressSink hands out the progress function for a client, nil when nobody listens
type ProgressSink interface {
	ProgressFunc(clientID string) separationentity.ProgressFunc
}

type Usecase struct {
	stagingDir    string
	outputDir     string
	normalizer    normalizer.Normalizer
	runner        splitter.Runner
	progress      ProgressSink
	jobs          jobentity.Store
	postProcessor PostProcessor
	now           func() time.Time
}

func NewUsecase(
	stagingDir string,
	outputDir string,
	normalizer normalizer.Normalizer,
	runner splitter.Runner,
	progress ProgressSink,
	jobs jobentity.Store,
	postProcessor PostProcessor,
) Usecase {
	return Usecase{
		stagingDir:    stagingDir,
		outputDir:     outputDir,
		normalizer:    normalizer,
		runner:        runner,
		progress:      progress,
		jobs:          jobs,
		postProcessor: postProcessor,
		now:           time.Now,
	}
}

func (u Usecase) OutputDir() string {
	return u.outputDir
}

// Separate runs one upload through conversion and separation. The staged
// upload is gone by the time this returns, whatever the outcome.
func (u Usecase) Separate(ctx context.Context, upload separationentity.Upload, clientID string) (separationentity.Separated, *api.Error) {
	jobID := uuid.NewString()
	baseName := separationentity.BaseName(upload.FileName)
	onProgress := u.progress.ProgressFunc(clientID)
	finished := metrics.JobStarted()

	logger := log.WithFields(log.Fields{
		"job_id":    jobID,
		"client_id": clientID,
		"file_name": upload.FileName,
	})

	job := jobentity.NewJob(jobID, clientID, baseName, u.now())
	u.recordJob(ctx, logger, job)

	fail := func(apiErr *api.Error) (separationentity.Separated, *api.Error) {
		onProgress.Emit(separationentity.FailedProgressEvent(apiErr.UserMessage))
		u.recordJob(ctx, logger, job.Fail(apiErr.UserMessage, u.now()))
		u.postProcessor.Failed(ctx, job, apiErr)
		finished(metrics.OutcomeError)
		return separationentity.Separated{}, apiErr
	}

	onProgress.Emit(separationentity.NewProgressEvent(separationentity.UploadingProgress, UploadingMessage))

	inputPath, err := u.stage(upload)
	if err != nil {
		return fail(api.CommitError(err,
			separationerrors.UploadFailedCode,
			"Failed to save the uploaded file"))
	}
	defer u.removeStaged(logger, inputPath)

	request := separationentity.Request{
		JobID:     jobID,
		InputPath: inputPath,
		BaseName:  baseName,
		ClientID:  clientID,
	}

	result, err := u.separate(ctx, request, onProgress)
	if err != nil {
		return fail(separationError(err))
	}

	onProgress.Emit(separationentity.NewProgressEvent(separationentity.CompleteProgress, CompleteMessage))

	job = job.Complete(result.VocalsFileName(), result.InstrumentalFileName(), u.now())
	u.recordJob(ctx, logger, job)
	job = u.postProcessor.Completed(ctx, job, result)
	u.recordJob(ctx, logger, job)

	finished(metrics.OutcomeComplete)
	logger.Info("Separation complete")

	return separationentity.Separated{
		JobID:        jobID,
		Vocals:       result.VocalsFileName(),
		Instrumental: result.InstrumentalFileName(),
		OriginalName: baseName,
	}, nil
}

func (u Usecase) separate(ctx context.Context, request separationentity.Request, onProgress separationentity.ProgressFunc) (separationentity.Result, error) {
	outputs := separationentity.OutputsFor(u.outputDir, request.BaseName)

	working := u.normalizer.Normalize(ctx, request.InputPath)

	result, err := u.runner.Run(ctx, working, outputs, onProgress)
	if err != nil {
		return separationentity.Result{}, errors.Wrap(err, "Failed to separate upload")
	}

	return result, nil
}

func (u Usecase) stage(upload separationentity.Upload) (string, error) {
	if upload.Content == nil {
		return "", mark.Message(separationerrors.UploadIOMark, "Upload has no content")
	}

	pattern := stagedPrefix + "*" + separationentity.Extension(upload.FileName)
	file, err := os.CreateTemp(u.stagingDir, pattern)
	if err != nil {
		err = cerr.Field("staging_dir", u.stagingDir).Wrap(err).Error("Failed to create staging file")
		return "", mark.Wrap(err, separationerrors.UploadIOMark, "Failed to stage upload")
	}

	_, copyErr := io.Copy(file, upload.Content)
	closeErr := file.Close()

	if err := errors.CombineErrors(copyErr, closeErr); err != nil {
		_ = os.Remove(file.Name())
		err = cerr.Field("staged_path", file.Name()).Wrap(err).Error("Failed to write staging file")
		return "", mark.Wrap(err, separationerrors.UploadIOMark, "Failed to stage upload")
	}

	return file.Name(), nil
}

func (u Usecase) removeStaged(logger *log.Entry, inputPath string) {
	if err := os.Remove(inputPath); err != nil && !os.IsNotExist(err) {
		logger.WithField("staged_path", inputPath).WithError(err).Warn("Failed to remove staged upload")
	}
}

func (u Usecase) recordJob(ctx context.Context, logger *log.Entry, job jobentity.Job) {
	if err := u.jobs.SetJob(ctx, job); err != nil {
		logger.WithField("status", job.Status).WithError(err).Warn("Failed to record job")
	}
}

func separationError(err error) *api.Error {
	switch {
	case markers.Is(err, separationerrors.TimeoutMark):
		return api.CommitError(err,
			separationerrors.SeparationTimeoutCode,
			separationerrors.TimeoutUserMessage)

	case markers.Is(err, separationerrors.ArtifactMissingMark):
		return api.CommitError(err,
			separationerrors.ArtifactMissingCode,
			"Separation failed: the separator did not produce both tracks")

	case markers.Is(err, separationerrors.CancelledMark):
		return api.CommitError(err,
			separationerrors.SeparationFailedCode,
			"Separation failed: the request was cancelled")

	case markers.Is(err, separationerrors.ChildProcessMark):
		return api.CommitError(err,
			separationerrors.SeparationFailedCode,
			"Separation failed: "+childProcessSummary(err))

	default:
		return api.CommitError(err,
			separationerrors.SeparationFailedCode,
			"Separation failed: "+errors.UnwrapAll(err).Error())
	}
}

// childProcessSummary is the last line the separator printed, usually the reason it gave up
func childProcessSummary(err error) string {
	output, _ := cerr.CollectFields(err)["demucs_output"].(string)
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if last := strings.TrimSpace(lines[len(lines)-1]); last != "" {
		return last
	}

	return errors.UnwrapAll(err).Error()
}
