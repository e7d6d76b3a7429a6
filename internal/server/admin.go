package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/mindx-labs/stemchat/config"
	"github.com/mindx-labs/stemchat/internal/analytics"
)

const snapshotCacheKey = "stemchat:analytics:snapshot"

type AdminHandler struct {
	Cfg      config.AdminConfig
	Secret   []byte
	Recorder analytics.Recorder
	Rdb      *redis.Client
	CacheTTL time.Duration
	Logger   *log.Logger
}

func (a *AdminHandler) Register(g *echo.Group) {
	g.POST("/login", a.login)
	g.POST("/logout", a.logout)

	protected := g.Group("/analytics")
	protected.Use(func(next echo.HandlerFunc) echo.HandlerFunc { return withAuth(next, a.Secret) })
	protected.GET("", a.snapshot)
}

func (a *AdminHandler) login(c echo.Context) error {
	var req AdminLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Username != a.Cfg.Username ||
		bcrypt.CompareHashAndPassword([]byte(a.Cfg.PasswordHash), []byte(req.Password)) != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	signed, err := SignJWT(req.Username, a.Secret, a.Cfg.TokenTTL)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	cookie := new(http.Cookie)
	cookie.Name = "auth"
	cookie.Value = signed
	cookie.Path = "/"
	cookie.HttpOnly = true
	cookie.SameSite = http.SameSiteLaxMode
	c.SetCookie(cookie)
	return c.JSON(http.StatusOK, TokenResponse{Token: signed})
}

func (a *AdminHandler) logout(c echo.Context) error {
	cookie := new(http.Cookie)
	cookie.Name = "auth"
	cookie.Value = ""
	cookie.Path = "/"
	cookie.MaxAge = -1
	c.SetCookie(cookie)
	return c.NoContent(http.StatusNoContent)
}

// snapshot serves the analytics read model through a short-lived redis
// cache. Cache trouble falls through to a direct read.
func (a *AdminHandler) snapshot(c echo.Context) error {
	ctx := c.Request().Context()

	if cached := a.cachedSnapshot(ctx); cached != nil {
		return c.JSONBlob(http.StatusOK, cached)
	}

	snap, err := a.Recorder.Snapshot(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	body, err := json.Marshal(snap)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	a.cacheSnapshot(ctx, body)
	return c.JSONBlob(http.StatusOK, body)
}

func (a *AdminHandler) cachedSnapshot(ctx context.Context) []byte {
	if a.Rdb == nil {
		return nil
	}
	body, err := a.Rdb.Get(ctx, snapshotCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			a.Logger.Printf("snapshot cache read: %v", err)
		}
		return nil
	}
	return body
}

func (a *AdminHandler) cacheSnapshot(ctx context.Context, body []byte) {
	if a.Rdb == nil {
		return
	}
	if err := a.Rdb.Set(ctx, snapshotCacheKey, body, a.CacheTTL).Err(); err != nil {
		a.Logger.Printf("snapshot cache write: %v", err)
	}
}
