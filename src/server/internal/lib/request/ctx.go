package request

import (
	"context"

	"github.com/labstack/echo/v4"
)

// Context is cancelled when the client goes away, which also stops any
// child process started on its behalf
func Context(c echo.Context) context.Context {
	return c.Request().Context()
}
