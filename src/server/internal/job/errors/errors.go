package joberrors

import (
	"github.com/cockroachdb/errors"
	"github.com/veedubyou/vocal-separator/src/server/internal/errors/api"
)

var (
	JobNotFoundMark  = errors.New("job_not_found")
	IDEmptyMark      = errors.New("job_id_empty")
	DefaultErrorMark = errors.New("job_store_error")
)

const (
	JobNotFoundCode = api.ErrorCode("job_not_found")
)
