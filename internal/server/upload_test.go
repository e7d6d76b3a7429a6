package server

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/mindx-labs/stemchat/internal/analytics"
)

func sb3Fixture(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("project.json")
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte(`{"targets":[{"isStage":true,"name":"Stage","blocks":{},"costumes":[],"sounds":[]}],"meta":{"semver":"3.0.0","projectTitle":"Fixture"}}`))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func multipartUpload(t *testing.T, filename string, content []byte) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(content)
	mw.Close()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestUpload_AnalyzesProject(t *testing.T) {
	recorder := analytics.NewMemory()
	h := &UploadHandler{Recorder: recorder, Logger: log.New(io.Discard, "", 0)}

	c, rec := multipartUpload(t, "game.sb3", sb3Fixture(t))
	if err := h.upload(c); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp UploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Summary.ProjectName != "Fixture" {
		t.Errorf("project name = %q", resp.Summary.ProjectName)
	}
	if resp.Report == "" {
		t.Error("expected a report")
	}
}

func TestUpload_MalformedFile(t *testing.T) {
	h := &UploadHandler{Recorder: analytics.NewMemory(), Logger: log.New(io.Discard, "", 0)}
	c, _ := multipartUpload(t, "notes.txt", []byte("not a zip"))
	err := h.upload(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestUpload_EmptyBody(t *testing.T) {
	h := &UploadHandler{Recorder: analytics.NewMemory(), Logger: log.New(io.Discard, "", 0)}
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := h.upload(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
