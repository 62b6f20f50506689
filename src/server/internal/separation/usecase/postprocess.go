package separationusecase

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/rabbitmq/amqp091-go"
	"github.com/veedubyou/vocal-separator/src/server/internal/errors/api"
	"github.com/veedubyou/vocal-separator/src/server/internal/job/entity"
	"github.com/veedubyou/vocal-separator/src/server/internal/separation/entity"
	"github.com/veedubyou/vocal-separator/src/shared/cloud_storage/entity"
	"github.com/veedubyou/vocal-separator/src/shared/lib/cerr"
	"github.com/veedubyou/vocal-separator/src/shared/lib/rabbitmq"
	"github.com/veedubyou/vocal-separator/src/shared/lib/storagepath"
)

const (
	CompletedEventType = "separation_completed"
	FailedEventType    = "separation_failed"
)

type JobEvent struct {
	JobID        string `json:"job_id"`
	Vocals       string `json:"vocals,omitempty"`
	Instrumental string `json:"instrumental,omitempty"`
	Error        string `json:"error,omitempty"`
}

// PostProcessor archives the tracks and announces the outcome. Every step is
// best effort and never changes what the caller is told.
type PostProcessor struct {
	fileStore     cloudstorage.FileStore
	pathGenerator storagepath.Generator
	publisher     rabbitmq.Publisher
}

// NewPostProcessor takes a nil file store when archiving is off
func NewPostProcessor(fileStore cloudstorage.FileStore, pathGenerator storagepath.Generator, publisher rabbitmq.Publisher) PostProcessor {
	if publisher == nil {
		publisher = rabbitmq.DisabledPublisher{}
	}

	return PostProcessor{
		fileStore:     fileStore,
		pathGenerator: pathGenerator,
		publisher:     publisher,
	}
}

func (p PostProcessor) Completed(ctx context.Context, job jobentity.Job, result separationentity.Result) jobentity.Job {
	logger := log.WithField("job_id", job.ID)

	if p.fileStore != nil {
		vocalsURL, vocalsErr := p.archive(ctx, job.ID, result.VocalsPath)
		instrumentalURL, instrumentalErr := p.archive(ctx, job.ID, result.InstrumentalPath)

		if err := errors.CombineErrors(vocalsErr, instrumentalErr); err != nil {
			logger.WithError(err).Warn("Failed to archive separated tracks")
		} else {
			job = job.Archived(vocalsURL, instrumentalURL, time.Now())
		}
	}

	p.publish(ctx, logger, CompletedEventType, JobEvent{
		JobID:        job.ID,
		Vocals:       result.VocalsFileName(),
		Instrumental: result.InstrumentalFileName(),
	})

	return job
}

func (p PostProcessor) Failed(ctx context.Context, job jobentity.Job, apiErr *api.Error) {
	logger := log.WithField("job_id", job.ID)

	p.publish(ctx, logger, FailedEventType, JobEvent{
		JobID: job.ID,
		Error: apiErr.UserMessage,
	})
}

func (p PostProcessor) archive(ctx context.Context, jobID string, path string) (string, error) {
	errctx := cerr.Field("job_id", jobID).Field("path", path)

	contents, err := os.ReadFile(path)
	if err != nil {
		return "", errctx.Wrap(err).Error("Failed to read separated track")
	}

	url := p.pathGenerator.GeneratePath(jobID, separationentity.CleanFileName(path))
	if err := p.fileStore.WriteFile(ctx, url, contents); err != nil {
		return "", errctx.Field("url", url).Wrap(err).Error("Failed to upload separated track")
	}

	return url, nil
}

func (p PostProcessor) publish(ctx context.Context, logger *log.Entry, eventType string, event JobEvent) {
	jsonBytes, err := json.Marshal(event)
	if err != nil {
		logger.WithError(err).Warn("Failed to marshal job event")
		return
	}

	publishMsg := amqp091.Publishing{
		Type: eventType,
		Body: jsonBytes,
	}

	if err := p.publisher.Publish(ctx, publishMsg); err != nil {
		logger.WithField("event_type", eventType).WithError(err).Warn("Failed to publish job event")
	}
}
