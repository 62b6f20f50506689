package jobusecase

import (
	"context"

	"github.com/cockroachdb/errors/markers"
	"github.com/veedubyou/vocal-separator/src/server/internal/errors/api"
	"github.com/veedubyou/vocal-separator/src/server/internal/job/entity"
	"github.com/veedubyou/vocal-separator/src/server/internal/job/errors"
)

type Usecase struct {
	store jobentity.Store
}

func NewUsecase(store jobentity.Store) Usecase {
	return Usecase{
		store: store,
	}
}

func (u Usecase) GetJob(ctx context.Context, jobID string) (jobentity.Job, *api.Error) {
	job, err := u.store.GetJob(ctx, jobID)
	if err != nil {
		switch {
		case markers.Is(err, joberrors.JobNotFoundMark), markers.Is(err, joberrors.IDEmptyMark):
			return jobentity.Job{}, api.CommitError(err,
				joberrors.JobNotFoundCode,
				"The requested job could not be found")
		default:
			return jobentity.Job{}, api.CommitError(err,
				api.DefaultErrorCode,
				"Failed to fetch the job. Please try again later")
		}
	}

	return job, nil
}
