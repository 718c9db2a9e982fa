package handler

import (
	"path/filepath"

	"github.com/labstack/echo/v4"
)

// Page serves a static HTML file from dir. Pages carry no server-side state;
// they talk to the JSON API from the browser.
func Page(dir, name string) echo.HandlerFunc {
	path := filepath.Join(dir, name)
	return func(c echo.Context) error {
		return c.File(path)
	}
}
