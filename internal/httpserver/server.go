// Package httpserver exposes the briefing pipeline upward: a small REST
// surface for stateless calls and a WebSocket channel for interactive
// sessions.
package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ujjwal16295/book-ai/internal/briefing"
	"github.com/ujjwal16295/book-ai/internal/speech"
	"github.com/ujjwal16295/book-ai/internal/summarize"
)

// Deps are the pipeline collaborators the server drives.
type Deps struct {
	Suggestions briefing.SuggestionSource
	Details     briefing.DetailSource
	Generator   summarize.Generator
	// NewEngine builds a per-connection speech engine writing into sink.
	// nil means spoken playback is unavailable.
	NewEngine func(sink speech.FrameSink) speech.Engine
	// Voice is the preferred voice name for playback (substring match).
	Voice string
}

// Server bundles the HTTP router and dependencies.
type Server struct {
	Router http.Handler
	deps   Deps
}

// New constructs the HTTP server with routes.
func New(deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	s := &Server{Router: e, deps: deps}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/api/suggest", s.suggest)
	e.GET("/api/brief", s.brief)
	e.GET("/api/popular", s.popular)
	e.GET("/ws", s.serveSession)

	return s
}
