package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/golang-migrate/migrate/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mindx-labs/stemchat/config"
	"github.com/mindx-labs/stemchat/internal/analytics"
	"github.com/mindx-labs/stemchat/internal/guides"
	"github.com/mindx-labs/stemchat/internal/retrieval"
	"github.com/mindx-labs/stemchat/provider"
)

func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie", "Authorization"},
		AllowCredentials: true,
	}))
	e.Use(metricsMiddleware)

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx := context.Background()

	// Teaching guides and retrieval index, built once at startup.
	guidesLogger := log.New(log.Writer(), "[GUIDES] ", log.LstdFlags)
	loaded, err := guides.Load(cfg.Guides.Dir, cfg.Guides.MaxChunkLen, guidesLogger)
	if err != nil {
		return err
	}
	guidesLogger.Printf("loaded %d guides", len(loaded))
	index := retrieval.New(loaded)
	index.Floor = cfg.Retrieval.Floor
	searcher, err := retrieval.NewSearcher(index.Entries)
	if err != nil {
		return err
	}

	llm, err := provider.NewProvider(provider.Gemini, *cfg)
	if err != nil {
		return err
	}

	// Analytics: postgres when configured, always with in-memory fallback.
	analyticsLogger := log.New(log.Writer(), "[ANALYTICS] ", log.LstdFlags)
	var primary analytics.Recorder
	if dsn := cfg.Databases.Postgres.DSN(); dsn != "" {
		if err := Migrate("file://migrations", dsn, "up", 0); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			analyticsLogger.Printf("migrations: %v", err)
		}
		pg, err := analytics.NewPostgres(ctx, dsn)
		if err != nil {
			analyticsLogger.Printf("postgres unavailable, using in-memory analytics: %v", err)
		} else {
			primary = pg
		}
	}
	recorder := analytics.NewFallback(primary, analytics.NewMemory(), analyticsLogger)

	var rdb *redis.Client
	if addr := cfg.Databases.Redis.Addr(); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Databases.Redis.Pass, DB: cfg.Databases.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			analyticsLogger.Printf("redis unavailable, snapshot cache disabled: %v", err)
			rdb = nil
		}
	}

	secret := cfg.General.JWTSecret
	if secret == "" {
		return fmt.Errorf("jwt secret not configured (general.jwt_secret)")
	}

	api := e.Group("/api")

	ch := &ChatHandler{
		Index:    index,
		LLM:      llm,
		Recorder: recorder,
		Logger:   log.New(log.Writer(), "[CHAT] ", log.LstdFlags),
	}
	ch.Register(api.Group("/chat"))

	uh := &UploadHandler{Recorder: recorder, Logger: log.New(log.Writer(), "[UPLOAD] ", log.LstdFlags)}
	uh.Register(api.Group("/upload"))

	xh := &ExportHandler{}
	xh.Register(api.Group("/export-sb3"))

	ah := &AdminHandler{
		Cfg:      cfg.Admin,
		Secret:   []byte(secret),
		Recorder: recorder,
		Rdb:      rdb,
		CacheTTL: cfg.Analytics.SnapshotTTL,
		Logger:   analyticsLogger,
	}
	ah.Register(api.Group("/admin"))

	sh := &SearchHandler{Searcher: searcher, Secret: []byte(secret), DefaultLimit: cfg.Retrieval.Limit}
	sh.Register(api.Group("/admin/search"))

	sched, err := NewScheduler(recorder, rdb, cfg.Analytics.SnapshotCron, cfg.Analytics.SnapshotTTL, nil)
	if err != nil {
		return err
	}
	sched.Start()

	addr := cfg.General.Listen
	if addr == "" {
		addr = ":5001"
	} else if addr[0] != ':' {
		addr = ":" + addr
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
