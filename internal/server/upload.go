package server

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mindx-labs/stemchat/internal/analytics"
	"github.com/mindx-labs/stemchat/internal/sb3"
)

// maxUploadBytes bounds .sb3 uploads; student projects are typically well
// under this.
const maxUploadBytes = 32 << 20

type UploadHandler struct {
	Recorder analytics.Recorder
	Logger   *log.Logger
}

func (h *UploadHandler) Register(g *echo.Group) {
	g.POST("", h.upload)
	g.POST("/", h.upload)
}

func (h *UploadHandler) upload(c echo.Context) error {
	buf, name, err := readUpload(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	analysis, err := sb3.Analyze(buf)
	if err != nil {
		if errors.Is(err, sb3.ErrMalformedArchive) || errors.Is(err, sb3.ErrInvalidProjectSchema) {
			return echo.NewHTTPError(http.StatusBadRequest, "cannot process this file, make sure it is a Scratch project (.sb3)")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if h.Recorder != nil {
		_, err := h.Recorder.RecordExchange(c.Request().Context(), analytics.Exchange{
			SessionID:   c.QueryParam("sessionId"),
			Attachments: []analytics.Attachment{{Name: name, Kind: "sb3"}},
		})
		if err != nil {
			analyticsFallbacks.Inc()
			h.Logger.Printf("record upload: %v", err)
		}
	}

	return c.JSON(http.StatusOK, UploadResponse{Summary: analysis.Summary, Report: analysis.Report})
}

// readUpload accepts either a multipart "file" field or a raw body.
func readUpload(c echo.Context) ([]byte, string, error) {
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return nil, "", err
		}
		defer f.Close()
		buf, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
		return buf, fh.Filename, err
	}
	buf, err := io.ReadAll(io.LimitReader(c.Request().Body, maxUploadBytes))
	if err != nil {
		return nil, "", err
	}
	if len(buf) == 0 {
		return nil, "", errors.New("no file provided")
	}
	return buf, "project.sb3", nil
}
