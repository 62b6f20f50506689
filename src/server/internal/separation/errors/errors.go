package separationerrors

import (
	"github.com/cockroachdb/errors"
	"github.com/veedubyou/vocal-separator/src/server/internal/errors/api"
)

var (
	UploadIOMark        = errors.New("upload_io_error")
	ConversionMark      = errors.New("conversion_error")
	ChildProcessMark    = errors.New("child_process_error")
	TimeoutMark         = errors.New("timeout_error")
	ArtifactMissingMark = errors.New("artifact_missing_error")
	DeliveryMark        = errors.New("delivery_error")
	CancelledMark       = errors.New("cancelled_error")
)

const (
	BadUploadCode         = api.ErrorCode("bad_upload")
	UploadFailedCode      = api.ErrorCode("upload_failed")
	SeparationFailedCode  = api.ErrorCode("separation_failed")
	SeparationTimeoutCode = api.ErrorCode("separation_timeout")
	ArtifactMissingCode   = api.ErrorCode("artifact_missing")
	FileNotFoundCode      = api.ErrorCode("file_not_found")
)

const TimeoutUserMessage = "Processing timeout - file may be too large"
