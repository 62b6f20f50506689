package jobstorage

import (
	"context"
	"sync"

	"github.com/veedubyou/vocal-separator/src/server/internal/job/entity"
	"github.com/veedubyou/vocal-separator/src/server/internal/job/errors"
	"github.com/veedubyou/vocal-separator/src/shared/lib/errors/mark"
)

var _ jobentity.Store = &Memory{}

// Memory keeps jobs for the life of the process, used when no table is configured
type Memory struct {
	mu   sync.RWMutex
	jobs map[string]jobentity.Job
}

func NewMemory() *Memory {
	return &Memory{
		jobs: map[string]jobentity.Job{},
	}
}

func (m *Memory) GetJob(_ context.Context, jobID string) (jobentity.Job, error) {
	if jobID == "" {
		return jobentity.Job{}, mark.Message(joberrors.IDEmptyMark, "No ID provided to fetch job")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return jobentity.Job{}, mark.Message(joberrors.JobNotFoundMark, "Job for this ID couldn't be found")
	}

	return job, nil
}

func (m *Memory) SetJob(_ context.Context, job jobentity.Job) error {
	if job.ID == "" {
		return mark.Message(joberrors.IDEmptyMark, "Job ID is not defined")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobs[job.ID] = job
	return nil
}
