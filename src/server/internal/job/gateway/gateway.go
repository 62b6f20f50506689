package jobgateway

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/veedubyou/vocal-separator/src/server/internal/errors/gateway"
	"github.com/veedubyou/vocal-separator/src/server/internal/job/usecase"
	"github.com/veedubyou/vocal-separator/src/server/internal/lib/request"
)

type Gateway struct {
	usecase jobusecase.Usecase
}

func NewGateway(usecase jobusecase.Usecase) Gateway {
	return Gateway{
		usecase: usecase,
	}
}

func (g Gateway) GetJob(c echo.Context, jobID string) error {
	ctx := request.Context(c)

	job, apiErr := g.usecase.GetJob(ctx, jobID)
	if apiErr != nil {
		return gateway.ErrorResponse(c, apiErr)
	}

	return c.JSON(http.StatusOK, job)
}
