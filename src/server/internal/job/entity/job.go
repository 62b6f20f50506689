package jobentity

import (
	"context"
	"time"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Job is the record kept for every handled upload
type Job struct {
	ID              string    `json:"id"`
	ClientID        string    `json:"client_id,omitempty"`
	OriginalName    string    `json:"original_name"`
	Status          Status    `json:"status"`
	Vocals          string    `json:"vocals,omitempty"`
	Instrumental    string    `json:"instrumental,omitempty"`
	VocalsURL       string    `json:"vocals_url,omitempty"`
	InstrumentalURL string    `json:"instrumental_url,omitempty"`
	Error           string    `json:"error,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func NewJob(id string, clientID string, originalName string, now time.Time) Job {
	return Job{
		ID:           id,
		ClientID:     clientID,
		OriginalName: originalName,
		Status:       StatusProcessing,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (j Job) Complete(vocals string, instrumental string, now time.Time) Job {
	j.Status = StatusComplete
	j.Vocals = vocals
	j.Instrumental = instrumental
	j.Error = ""
	j.UpdatedAt = now
	return j
}

func (j Job) Fail(message string, now time.Time) Job {
	j.Status = StatusError
	j.Error = message
	j.UpdatedAt = now
	return j
}

func (j Job) Archived(vocalsURL string, instrumentalURL string, now time.Time) Job {
	j.VocalsURL = vocalsURL
	j.InstrumentalURL = instrumentalURL
	j.UpdatedAt = now
	return j
}

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

//counterfeiter:generate . Store
type Store interface {
	GetJob(ctx context.Context, jobID string) (Job, error)
	SetJob(ctx context.Context, job Job) error
}
