package gateway

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/veedubyou/vocal-separator/src/server/api_error"
	"github.com/veedubyou/vocal-separator/src/server/internal/errors/api"
	"github.com/veedubyou/vocal-separator/src/server/internal/job/errors"
	"github.com/veedubyou/vocal-separator/src/server/internal/separation/errors"
	"github.com/veedubyou/vocal-separator/src/shared/lib/cerr"
	"github.com/veedubyou/vocal-separator/src/shared/lib/env"
)

var httpStatusCodeMap = map[api.ErrorCode]int{
	api.DefaultErrorCode:                   http.StatusInternalServerError,
	api.BadRequestCode:                     http.StatusBadRequest,
	separationerrors.BadUploadCode:         http.StatusBadRequest,
	separationerrors.UploadFailedCode:      http.StatusInternalServerError,
	separationerrors.SeparationFailedCode:  http.StatusInternalServerError,
	separationerrors.SeparationTimeoutCode: http.StatusGatewayTimeout,
	separationerrors.ArtifactMissingCode:   http.StatusInternalServerError,
	separationerrors.FileNotFoundCode:      http.StatusNotFound,
	joberrors.JobNotFoundCode:              http.StatusNotFound,
}

func StatusCode(code api.ErrorCode) int {
	statusCode, ok := httpStatusCodeMap[code]
	if !ok {
		msg := fmt.Sprintf("Error code %s has no HTTP status code mapping", code)
		panic(msg)
	}

	return statusCode
}

func ErrorResponse(c echo.Context, err *api.Error) error {
	statusCode := StatusCode(err.ErrorCode)

	if statusCode >= http.StatusInternalServerError {
		cerr.Log(err.InternalError)
	}

	body := api_error.JSONAPIError{
		Msg:  err.UserMessage,
		Code: string(err.ErrorCode),
	}

	if !env.IsProduction() {
		body.ErrorDetails = err.Error()
	}

	return c.JSON(statusCode, body)
}
