package jobstorage

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/guregu/dynamo"
	"github.com/veedubyou/vocal-separator/src/server/internal/job/entity"
	"github.com/veedubyou/vocal-separator/src/server/internal/job/errors"
	"github.com/veedubyou/vocal-separator/src/shared/lib/dynamo"
	"github.com/veedubyou/vocal-separator/src/shared/lib/errors/mark"
)

const (
	JobsTable = "SeparationJobs"
	idKey     = "id"
)

type dbJob struct {
	ID              string    `dynamo:"id,hash"`
	ClientID        string    `dynamo:"client_id,omitempty"`
	OriginalName    string    `dynamo:"original_name"`
	Status          string    `dynamo:"status"`
	Vocals          string    `dynamo:"vocals,omitempty"`
	Instrumental    string    `dynamo:"instrumental,omitempty"`
	VocalsURL       string    `dynamo:"vocals_url,omitempty"`
	InstrumentalURL string    `dynamo:"instrumental_url,omitempty"`
	Error           string    `dynamo:"error,omitempty"`
	CreatedAt       time.Time `dynamo:"created_at"`
	UpdatedAt       time.Time `dynamo:"updated_at"`
}

func fromEntity(job jobentity.Job) dbJob {
	return dbJob{
		ID:              job.ID,
		ClientID:        job.ClientID,
		OriginalName:    job.OriginalName,
		Status:          string(job.Status),
		Vocals:          job.Vocals,
		Instrumental:    job.Instrumental,
		VocalsURL:       job.VocalsURL,
		InstrumentalURL: job.InstrumentalURL,
		Error:           job.Error,
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       job.UpdatedAt,
	}
}

func (d dbJob) toEntity() jobentity.Job {
	return jobentity.Job{
		ID:              d.ID,
		ClientID:        d.ClientID,
		OriginalName:    d.OriginalName,
		Status:          jobentity.Status(d.Status),
		Vocals:          d.Vocals,
		Instrumental:    d.Instrumental,
		VocalsURL:       d.VocalsURL,
		InstrumentalURL: d.InstrumentalURL,
		Error:           d.Error,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

var _ jobentity.Store = DB{}

type DB struct {
	dynamoDB dynamolib.DynamoDBWrapper
}

func NewDB(dynamoDB dynamolib.DynamoDBWrapper) DB {
	return DB{
		dynamoDB: dynamoDB,
	}
}

func (d DB) EnsureTable(ctx context.Context) error {
	return d.dynamoDB.EnsureTable(ctx, JobsTable, dbJob{})
}

func (d DB) GetJob(ctx context.Context, jobID string) (jobentity.Job, error) {
	if jobID == "" {
		return jobentity.Job{}, mark.Message(joberrors.IDEmptyMark, "No ID provided to fetch job")
	}

	value := dbJob{}
	err := d.dynamoDB.Table(JobsTable).
		Get(idKey, jobID).
		OneWithContext(ctx, &value)

	if err != nil {
		switch {
		case errors.Is(err, dynamo.ErrNotFound):
			return jobentity.Job{}, mark.Wrap(err, joberrors.JobNotFoundMark, "Job for this ID couldn't be found")
		default:
			return jobentity.Job{}, mark.Wrap(err, joberrors.DefaultErrorMark, "Failed to fetch job due to unknown data store error")
		}
	}

	return value.toEntity(), nil
}

func (d DB) SetJob(ctx context.Context, job jobentity.Job) error {
	if job.ID == "" {
		return mark.Message(joberrors.IDEmptyMark, "Job ID is not defined")
	}

	err := d.dynamoDB.Table(JobsTable).
		Put(fromEntity(job)).
		RunWithContext(ctx)
	if err != nil {
		return mark.Wrap(err, joberrors.DefaultErrorMark, "Failed to put job into DB")
	}

	return nil
}
