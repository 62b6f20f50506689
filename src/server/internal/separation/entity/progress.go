package separationentity

import "fmt"

const FailedProgress = -1

const (
	UploadingProgress  = 0
	StartingProgress   = 20
	FinalizingProgress = 95
	CompleteProgress   = 100
)

type ProgressEvent struct {
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}

func NewProgressEvent(progress int, message string) ProgressEvent {
	return ProgressEvent{
		Progress: progress,
		Message:  message,
	}
}

func FailedProgressEvent(errorMessage string) ProgressEvent {
	return NewProgressEvent(FailedProgress, fmt.Sprintf("error: %s", errorMessage))
}

func (p ProgressEvent) Failed() bool {
	return p.Progress == FailedProgress
}

// ProgressFunc receives progress as it happens, it must not block for long
type ProgressFunc func(event ProgressEvent)

func (p ProgressFunc) Emit(event ProgressEvent) {
	if p != nil {
		p(event)
	}
}
