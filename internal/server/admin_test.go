package server

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/mindx-labs/stemchat/config"
	"github.com/mindx-labs/stemchat/internal/analytics"
)

func testAdminHandler(t *testing.T) *AdminHandler {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein12"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return &AdminHandler{
		Cfg: config.AdminConfig{
			Username:     "admin",
			PasswordHash: string(hash),
			TokenTTL:     8 * time.Hour,
		},
		Secret:   []byte("test-secret"),
		Recorder: analytics.NewMemory(),
		CacheTTL: 30 * time.Second,
		Logger:   log.New(io.Discard, "", 0),
	}
}

func adminContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAdminLogin(t *testing.T) {
	h := testAdminHandler(t)

	c, rec := adminContext(http.MethodPost, "/api/admin/login", `{"username":"admin","password":"letmein12"}`)
	if err := h.login(c); err != nil {
		t.Fatalf("login: %v", err)
	}
	var resp TokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a token")
	}

	c2, _ := adminContext(http.MethodPost, "/api/admin/login", `{"username":"admin","password":"wrong password"}`)
	err := h.login(c2)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %v", err)
	}
}

func TestAdminLogout(t *testing.T) {
	h := testAdminHandler(t)
	c, rec := adminContext(http.MethodPost, "/api/admin/logout", "")
	if err := h.logout(c); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}

func TestAdminSnapshot_RequiresAuth(t *testing.T) {
	h := testAdminHandler(t)
	protected := withAuth(h.snapshot, h.Secret)

	c, _ := adminContext(http.MethodGet, "/api/admin/analytics", "")
	err := protected(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %v", err)
	}

	token, err := SignJWT("admin", h.Secret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	c2, rec2 := adminContext(http.MethodGet, "/api/admin/analytics", "")
	c2.Request().Header.Set("Authorization", "Bearer "+token)
	if err := protected(c2); err != nil {
		t.Fatalf("snapshot with token: %v", err)
	}
	var snap analytics.Snapshot
	if err := json.Unmarshal(rec2.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Usage.Hourly) != 24 {
		t.Errorf("hourly buckets = %d", len(snap.Usage.Hourly))
	}
}

func TestAdminSnapshot_ExpiredToken(t *testing.T) {
	h := testAdminHandler(t)
	protected := withAuth(h.snapshot, h.Secret)

	token, err := SignJWT("admin", h.Secret, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	c, _ := adminContext(http.MethodGet, "/api/admin/analytics", "")
	c.Request().Header.Set("Authorization", "Bearer "+token)
	err = protected(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %v", err)
	}
}
