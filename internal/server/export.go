package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mindx-labs/stemchat/internal/commands"
	"github.com/mindx-labs/stemchat/internal/guides"
	"github.com/mindx-labs/stemchat/internal/sb3"
)

type ExportHandler struct{}

func (h *ExportHandler) Register(g *echo.Group) {
	g.POST("", h.export)
	g.POST("/", h.export)
}

func (h *ExportHandler) export(c echo.Context) error {
	var req ExportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sequences := commands.Extract(req.Content)
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Scratch Project"
	}

	buf, err := sb3.Export(sequences, title)
	if err != nil {
		if errors.Is(err, sb3.ErrEmptyInput) {
			return echo.NewHTTPError(http.StatusBadRequest, "no exportable commands found in this message")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	filename := guides.Slugify(title)
	if filename == "" {
		filename = "scratch-project"
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`.sb3"`)
	return c.Blob(http.StatusOK, "application/x.scratch.sb3", buf)
}
