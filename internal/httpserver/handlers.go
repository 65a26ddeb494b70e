package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ujjwal16295/book-ai/internal/briefing"
	"github.com/ujjwal16295/book-ai/internal/catalog"
	"github.com/ujjwal16295/book-ai/internal/logging"
	"github.com/ujjwal16295/book-ai/internal/summarize"
)

type suggestResponse struct {
	Candidates []catalog.Candidate `json:"candidates"`
}

type briefResponse struct {
	Record      catalog.Record `json:"record"`
	Summary     string         `json:"summary"`
	SummaryKind string         `json:"summaryKind"`
	// Themes maps each category tag to its deterministic style slot.
	Themes []int `json:"themes"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// suggest is the stateless type-ahead endpoint. Below-threshold queries and
// upstream failures both answer with an empty candidate list.
func (s *Server) suggest(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	resp := suggestResponse{Candidates: []catalog.Candidate{}}
	if len(q) < 3 {
		return c.JSON(http.StatusOK, resp)
	}
	candidates, err := s.deps.Suggestions.Suggest(c.Request().Context(), q)
	if err != nil {
		logging.Warn("suggest endpoint lookup failed", "query", q, "err", err)
		return c.JSON(http.StatusOK, resp)
	}
	if candidates != nil {
		resp.Candidates = candidates
	}
	return c.JSON(http.StatusOK, resp)
}

// brief runs the full resolve→summarize chain for one title.
func (s *Server) brief(c echo.Context) error {
	title := strings.TrimSpace(c.QueryParam("title"))
	if title == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: briefing.ErrNoTitle.String()})
	}

	ctx := c.Request().Context()
	rec, err := s.deps.Details.Lookup(ctx, title)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: briefing.ErrNotFound.String()})
		}
		logging.Warn("brief endpoint lookup failed", "title", title, "err", err)
		return c.JSON(http.StatusBadGateway, errorResponse{Error: briefing.ErrFetchFailed.String()})
	}

	res := summarize.Summarize(ctx, s.deps.Generator, rec.Title, rec.Authors)
	resp := briefResponse{
		Record:      rec,
		Summary:     res.Text,
		SummaryKind: res.Kind.String(),
	}
	for _, cat := range rec.CategoryList() {
		resp.Themes = append(resp.Themes, catalog.ThemeIndex(cat))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) popular(c echo.Context) error {
	return c.JSON(http.StatusOK, briefing.PopularBooks())
}
