package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/02loveslollipop/ward-monitor/internal/catalog"
	"github.com/02loveslollipop/ward-monitor/internal/poller"
	"github.com/02loveslollipop/ward-monitor/services/api/config"
	"github.com/02loveslollipop/ward-monitor/services/api/db"
)

// SeriesSource exposes the live per-sensor series.
type SeriesSource interface {
	Snapshot(sensorID string) (poller.State, error)
	Refresh(ctx context.Context, sensorID string) (poller.State, error)
}

// Archive is the persisted side of the API. It is optional.
type Archive interface {
	FetchReadings(ctx context.Context, q db.ReadingQuery) ([]db.Reading, error)
	InsertAccessLog(ctx context.Context, entry db.AccessLog) error
	ListAccessLogs(ctx context.Context, limit, offset int) (*db.AccessLogPage, error)
}

// Server bundles router and dependencies for the REST API.
type Server struct {
	cfg     config.Config
	catalog *catalog.Catalog
	series  SeriesSource
	archive Archive
	engine  *gin.Engine
}

// New constructs a server with routes and middleware. archive may be nil.
func New(cfg config.Config, cat *catalog.Catalog, src SeriesSource, archive Archive) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())
	engine.Use(corsMiddleware())

	server := &Server{cfg: cfg, catalog: cat, series: src, archive: archive, engine: engine}
	server.registerRoutes()
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.registerV1Routes()
}

func apiVersionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-API-Version", "v1")
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requireArchive answers 503 when the API runs without a database.
func (s *Server) requireArchive(c *gin.Context) bool {
	if s.archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "archive disabled: DATABASE_URL not configured"})
		return false
	}
	return true
}
