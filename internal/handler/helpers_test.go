package handler

import (
	"io"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/kanban-board/internal/middleware"
	"github.com/iliyamo/kanban-board/internal/model"
)

var alice = model.Identity{UserID: 7, Username: "alice"}

type request struct {
	method string
	target string
	body   string
	who    *model.Identity
	id     string
}

func newContext(r request) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var body io.Reader
	if r.body != "" {
		body = strings.NewReader(r.body)
	}
	req := httptest.NewRequest(r.method, r.target, body)
	if r.body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if r.id != "" {
		c.SetParamNames("id")
		c.SetParamValues(r.id)
	}
	if r.who != nil {
		middleware.SetIdentity(c, *r.who)
	}
	return c, rec
}
