package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/kanban-board/internal/logging"
	"github.com/iliyamo/kanban-board/internal/middleware"
	"github.com/iliyamo/kanban-board/internal/model"
)

// SummarySource computes the board statistics for one user.
type SummarySource interface {
	Get(ctx context.Context, who model.Identity) (model.SummaryReport, error)
}

type SummaryHandler struct {
	summary SummarySource
	log     logging.Logger
}

func NewSummaryHandler(summary SummarySource, log logging.Logger) *SummaryHandler {
	return &SummaryHandler{summary: summary, log: log}
}

// Get handles GET /api/summary.
func (h *SummaryHandler) Get(c echo.Context) error {
	who, ok := middleware.IdentityFrom(c)
	if !ok {
		return unauthenticated(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	rep, err := h.summary.Get(ctx, who)
	if err != nil {
		return internalError(c, h.log, "summary", err)
	}
	return c.JSON(http.StatusOK, rep)
}
