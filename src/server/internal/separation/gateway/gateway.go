package separationgateway

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"github.com/veedubyou/vocal-separator/src/server/internal/errors/api"
	"github.com/veedubyou/vocal-separator/src/server/internal/errors/gateway"
	"github.com/veedubyou/vocal-separator/src/server/internal/lib/request"
	"github.com/veedubyou/vocal-separator/src/server/internal/separation/entity"
	"github.com/veedubyou/vocal-separator/src/server/internal/separation/errors"
	"github.com/veedubyou/vocal-separator/src/server/internal/separation/usecase"
)

const UploadFormField = "file"

var contentTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
}

type Gateway struct {
	usecase separationusecase.Usecase
}

func NewGateway(usecase separationusecase.Usecase) Gateway {
	return Gateway{
		usecase: usecase,
	}
}

func (g Gateway) Separate(c echo.Context, clientID string) error {
	ctx := request.Context(c)

	fileHeader, err := c.FormFile(UploadFormField)
	if err != nil {
		err = errors.Wrap(err, "Failed to read the uploaded file from the form")
		apiErr := api.CommitError(err,
			separationerrors.BadUploadCode,
			"No audio file was found in the upload")
		return gateway.ErrorResponse(c, apiErr)
	}

	file, err := fileHeader.Open()
	if err != nil {
		err = errors.Wrap(err, "Failed to open the uploaded file")
		apiErr := api.CommitError(err,
			separationerrors.UploadFailedCode,
			"Failed to read the uploaded file")
		return gateway.ErrorResponse(c, apiErr)
	}
	defer file.Close()

	upload := separationentity.Upload{
		FileName: fileHeader.Filename,
		Content:  file,
	}

	separated, apiErr := g.usecase.Separate(ctx, upload, clientID)
	if apiErr != nil {
		return gateway.ErrorResponse(c, apiErr)
	}

	return c.JSON(http.StatusOK, separated)
}

func (g Gateway) Download(c echo.Context, fileName string) error {
	cleaned := filepath.Base(fileName)
	if fileName == "" || cleaned != fileName || strings.HasPrefix(cleaned, ".") {
		return fileNotFound(c, errors.Newf("Refusing to serve file name %q", fileName))
	}

	path := filepath.Join(g.usecase.OutputDir(), cleaned)
	info, err := os.Stat(path)
	if err != nil {
		return fileNotFound(c, errors.Wrapf(err, "Failed to find output file %s", cleaned))
	}

	if !info.Mode().IsRegular() {
		return fileNotFound(c, errors.Newf("Output %s is not a file", cleaned))
	}

	c.Response().Header().Set(echo.HeaderContentType, contentType(cleaned))
	return c.Attachment(path, cleaned)
}

func contentType(fileName string) string {
	if mime, ok := contentTypes[strings.ToLower(filepath.Ext(fileName))]; ok {
		return mime
	}

	return echo.MIMEOctetStream
}

func fileNotFound(c echo.Context, err error) error {
	apiErr := api.CommitError(err, separationerrors.FileNotFoundCode, "File not found")
	return gateway.ErrorResponse(c, apiErr)
}
