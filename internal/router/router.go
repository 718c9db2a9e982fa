package router // package router defines how HTTP routes are registered

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/kanban-board/internal/handler"
	"github.com/iliyamo/kanban-board/internal/middleware"
)

// LoginPath is where page requests without a session are redirected.
const LoginPath = "/login"

// Deps are the handlers and middleware the routes are built from.
type Deps struct {
	Auth    *handler.AuthHandler
	Board   *handler.BoardHandler
	Summary *handler.SummaryHandler
	Gate    *middleware.SessionGate

	// Limiter guards the credential endpoints. Nil disables it.
	Limiter echo.MiddlewareFunc

	DB     handler.Pinger
	WebDir string
}

// RegisterRoutes wires every route of the application.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))
	RegisterAuth(e, d.Auth, d.Gate, d.Limiter)
	RegisterBoard(e, d.Board, d.Summary, d.Gate)
	RegisterPages(e, d.WebDir, d.Gate)
}

// RegisterAuth registers signup, login, logout and the password reset flow.
// Login and the OTP endpoints are rate limited; /api/me needs a session.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, gate *middleware.SessionGate, limiter echo.MiddlewareFunc) {
	var limited []echo.MiddlewareFunc
	if limiter != nil {
		limited = append(limited, limiter)
	}

	g := e.Group("/api")
	g.POST("/signup", a.Signup)
	g.POST("/login", a.Login, limited...)
	g.POST("/forgot-password", a.ForgotPassword, limited...)
	g.POST("/verify-otp", a.VerifyOTP, limited...)

	// Logout works with or without a live session.
	g.POST("/logout", a.Logout)

	g.GET("/me", a.Me, gate.RequireAPI())
}

// RegisterBoard registers the list, card and summary API behind the session gate.
func RegisterBoard(e *echo.Echo, b *handler.BoardHandler, s *handler.SummaryHandler, gate *middleware.SessionGate) {
	g := e.Group("/api", gate.RequireAPI())

	g.GET("/lists", b.GetLists)
	g.POST("/lists", b.CreateList)
	g.DELETE("/lists/:id", b.DeleteList)

	g.GET("/cards", b.GetCards)
	g.POST("/cards", b.CreateCard)
	g.PUT("/cards/:id", b.UpdateCard)
	g.DELETE("/cards/:id", b.DeleteCard)

	g.GET("/summary", s.Get)
}

// RegisterPages serves the HTML pages. The board and summary pages redirect
// to the login page when there is no session.
func RegisterPages(e *echo.Echo, webDir string, gate *middleware.SessionGate) {
	page := gate.RequirePage(LoginPath)
	e.GET("/", handler.Page(webDir, "index.html"), page)
	e.GET("/summary", handler.Page(webDir, "summary.html"), page)

	e.Static("/static", webDir)
	e.GET(LoginPath, handler.Page(webDir, "login.html"))
	e.GET("/signup", handler.Page(webDir, "signup.html"))
	e.GET("/forgot-password", handler.Page(webDir, "forgot_password.html"))
}
