package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/kanban-board/internal/logging"
)

// requestTimeout bounds the storage work done for a single request.
const requestTimeout = 5 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"error": msg})
}

func messageJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"message": msg})
}

// internalError logs err with the request id and answers with a generic 500.
func internalError(c echo.Context, log logging.Logger, op string, err error) error {
	log.Error(c.Request().Context(), op+" failed",
		"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		"path", c.Path(),
		"err", err)
	return errorJSON(c, http.StatusInternalServerError, "internal error")
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func unauthenticated(c echo.Context) error {
	return errorJSON(c, http.StatusUnauthorized, "Authentication required")
}
