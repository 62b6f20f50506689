package api

import "github.com/cockroachdb/errors"

type ErrorCode string

var (
	DefaultErrorCode = ErrorCode("unknown_error")
	BadRequestCode   = ErrorCode("bad_request")
)

func WrapError(err *Error, msg string) *Error {
	return &Error{
		ErrorCode:     err.ErrorCode,
		UserMessage:   err.UserMessage,
		InternalError: errors.Wrap(err.InternalError, msg),
	}
}

func CommitError(err error, errorCode ErrorCode, userMessage string) *Error {
	return &Error{
		ErrorCode:     errorCode,
		UserMessage:   userMessage,
		InternalError: err,
	}
}

// usecases return this concrete type so gateways always have a code
// and a user facing message to respond with
type Error struct {
	ErrorCode     ErrorCode
	UserMessage   string
	InternalError error
}

func (e Error) Cause() error {
	return e.InternalError
}

func (e Error) Error() string {
	return e.InternalError.Error()
}
