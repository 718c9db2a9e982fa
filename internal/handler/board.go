package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/kanban-board/internal/logging"
	"github.com/iliyamo/kanban-board/internal/middleware"
	"github.com/iliyamo/kanban-board/internal/model"
	"github.com/iliyamo/kanban-board/internal/repository"
)

// ListStore is the list persistence used by BoardHandler.
type ListStore interface {
	ListByOwner(ctx context.Context, who model.Identity) ([]model.List, bool, error)
	Create(ctx context.Context, who model.Identity, name string) (model.List, error)
	Delete(ctx context.Context, who model.Identity, listID uint64) error
}

// CardStore is the card persistence used by BoardHandler.
type CardStore interface {
	ListByOwner(ctx context.Context, who model.Identity) ([]model.Card, error)
	Create(ctx context.Context, who model.Identity, in model.NewCard) (model.Card, error)
	Update(ctx context.Context, who model.Identity, cardID uint64, patch model.CardPatch) (model.Card, error)
	Delete(ctx context.Context, who model.Identity, cardID uint64) error
}

// BoardHandler serves the list and card endpoints. Every route sits behind
// the session gate and only ever touches the caller's own board.
type BoardHandler struct {
	lists ListStore
	cards CardStore
	log   logging.Logger
}

func NewBoardHandler(lists ListStore, cards CardStore, log logging.Logger) *BoardHandler {
	return &BoardHandler{lists: lists, cards: cards, log: log}
}

type createListReq struct {
	Name string `json:"name"`
}

type createCardReq struct {
	Title    string             `json:"title"`
	Content  string             `json:"content"`
	Deadline model.OptionalDate `json:"deadline"`
	ListID   uint64             `json:"list_id"`
}

// GetLists returns the caller's lists, creating the default ones on first use.
func (h *BoardHandler) GetLists(c echo.Context) error {
	who, ok := middleware.IdentityFrom(c)
	if !ok {
		return unauthenticated(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	lists, created, err := h.lists.ListByOwner(ctx, who)
	if err != nil {
		return internalError(c, h.log, "get lists", err)
	}
	if created {
		h.log.Info(ctx, "default lists created", "user_id", who.UserID, "lists", len(lists))
	}
	if lists == nil {
		lists = []model.List{}
	}
	return c.JSON(http.StatusOK, lists)
}

// CreateList handles POST /api/lists.
func (h *BoardHandler) CreateList(c echo.Context) error {
	who, ok := middleware.IdentityFrom(c)
	if !ok {
		return unauthenticated(c)
	}
	var req createListReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(req.Name) == "" {
		return errorJSON(c, http.StatusBadRequest, "Name is required")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	l, err := h.lists.Create(ctx, who, req.Name)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidArgument) {
			return errorJSON(c, http.StatusBadRequest, "Name is required")
		}
		return internalError(c, h.log, "create list", err)
	}
	return c.JSON(http.StatusCreated, l)
}

// DeleteList removes a list together with its cards.
func (h *BoardHandler) DeleteList(c echo.Context) error {
	who, ok := middleware.IdentityFrom(c)
	if !ok {
		return unauthenticated(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid id")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.lists.Delete(ctx, who, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorJSON(c, http.StatusNotFound, "List not found")
		}
		return internalError(c, h.log, "delete list", err)
	}
	return messageJSON(c, http.StatusOK, "List deleted successfully")
}

// GetCards returns every card on the caller's board, newest first.
func (h *BoardHandler) GetCards(c echo.Context) error {
	who, ok := middleware.IdentityFrom(c)
	if !ok {
		return unauthenticated(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	cards, err := h.cards.ListByOwner(ctx, who)
	if err != nil {
		return internalError(c, h.log, "get cards", err)
	}
	if cards == nil {
		cards = []model.Card{}
	}
	return c.JSON(http.StatusOK, cards)
}

// CreateCard handles POST /api/cards.
func (h *BoardHandler) CreateCard(c echo.Context) error {
	who, ok := middleware.IdentityFrom(c)
	if !ok {
		return unauthenticated(c)
	}
	var req createCardReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(req.Title) == "" || req.ListID == 0 {
		return errorJSON(c, http.StatusBadRequest, "Title and list_id are required")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	card, err := h.cards.Create(ctx, who, model.NewCard{
		Title:    req.Title,
		Content:  req.Content,
		Deadline: req.Deadline.Value,
		ListID:   req.ListID,
	})
	switch {
	case err == nil:
		return c.JSON(http.StatusCreated, card)
	case errors.Is(err, repository.ErrNotFound):
		return errorJSON(c, http.StatusNotFound, "List not found")
	case errors.Is(err, repository.ErrInvalidArgument):
		return errorJSON(c, http.StatusBadRequest, "Title and list_id are required")
	default:
		return internalError(c, h.log, "create card", err)
	}
}

// UpdateCard applies a partial update. Fields absent from the body keep
// their stored values.
func (h *BoardHandler) UpdateCard(c echo.Context) error {
	who, ok := middleware.IdentityFrom(c)
	if !ok {
		return unauthenticated(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid id")
	}
	var patch model.CardPatch
	if err := c.Bind(&patch); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	_, err := h.cards.Update(ctx, who, id, patch)
	switch {
	case err == nil:
		return messageJSON(c, http.StatusOK, "Card updated successfully")
	case errors.Is(err, repository.ErrCardNotFound):
		return errorJSON(c, http.StatusNotFound, "Card not found")
	case errors.Is(err, repository.ErrListNotFound):
		return errorJSON(c, http.StatusNotFound, "Target list not found")
	case errors.Is(err, repository.ErrInvalidArgument):
		return errorJSON(c, http.StatusBadRequest, "Title cannot be empty")
	default:
		return internalError(c, h.log, "update card", err)
	}
}

// DeleteCard handles DELETE /api/cards/:id.
func (h *BoardHandler) DeleteCard(c echo.Context) error {
	who, ok := middleware.IdentityFrom(c)
	if !ok {
		return unauthenticated(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid id")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.cards.Delete(ctx, who, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorJSON(c, http.StatusNotFound, "Card not found")
		}
		return internalError(c, h.log, "delete card", err)
	}
	return messageJSON(c, http.StatusOK, "Card deleted successfully")
}
