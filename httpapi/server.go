// Package httpapi exposes orchestration runs over HTTP.
//
// Routes:
//
//	GET  /healthz
//	POST /v1/discover  run the pipeline for a JSON request
//	GET  /v1/runs      list recent runs (?limit=N)
//	GET  /v1/runs/:id  fetch a stored run
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/scout/core"
)

const shutdownTimeout = 10 * time.Second

// Service is the engine behind the routes. *scout.Engine implements it.
type Service interface {
	Discover(ctx context.Context, req core.SearchRequest) (*core.RunResult, error)
	GetRun(ctx context.Context, id string) (*core.RunResult, error)
	ListRuns(ctx context.Context, limit int) ([]core.RunMetadata, error)
}

// Option configures the router.
type Option func(*handlers)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(h *handlers) {
		if logger == nil {
			logger = slog.Default()
		}
		h.logger = logger
	}
}

// NewRouter wires the routes onto a new gin engine.
func NewRouter(svc Service, opts ...Option) *gin.Engine {
	h := &handlers{svc: svc, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "httpapi")

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), h.logRequests)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	v1.POST("/discover", h.discover)
	v1.GET("/runs", h.listRuns)
	v1.GET("/runs/:id", h.getRun)
	return r
}

// Serve runs handler on addr until ctx is canceled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("http server stopped")
	return nil
}
