package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mindx-labs/stemchat/internal/retrieval"
)

// SearchHandler exposes keyword search over the guide chunks for the admin
// dashboard, complementing the similarity-based references used in chat.
type SearchHandler struct {
	Searcher *retrieval.Searcher
	Secret   []byte
	// DefaultLimit applies when the request carries no limit parameter.
	DefaultLimit int
}

func (h *SearchHandler) Register(g *echo.Group) {
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc { return withAuth(next, h.Secret) })
	g.GET("", h.search)
}

func (h *SearchHandler) search(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	limit := h.DefaultLimit
	if limit <= 0 {
		limit = 10
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be 1-100")
		}
		limit = n
	}

	hits, err := h.Searcher.Search(q, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"hits": hits})
}
