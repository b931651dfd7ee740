// Package server exposes the fan-out aggregation service over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mbeckner/fetch-fanout/pkg/cache"
	"github.com/mbeckner/fetch-fanout/pkg/fetcher"
	"github.com/mbeckner/fetch-fanout/pkg/logging"
)

// Request is the batch fetch payload sent by the synchronous caller.
// A missing urls field decodes as an empty list and is rejected before
// any dispatch happens.
type Request struct {
	URLs []string `json:"urls"`
}

// Response is the aggregate result payload. Results has the same length and
// order as the request URLs; failed entries are self-describing error
// strings.
type Response struct {
	Results []string `json:"results"`
}

// Server is the sidecar HTTP server.
type Server struct {
	router       *gin.Engine
	fetcher      *fetcher.Fetcher
	cache        *cache.Manager
	batchTimeout time.Duration
	logger       zerolog.Logger
}

// New creates the server. cacheManager may be nil when the body cache is
// disabled; it is only used for readiness checks.
func New(f *fetcher.Fetcher, cacheManager *cache.Manager, batchTimeout time.Duration) *Server {
	if batchTimeout <= 0 {
		batchTimeout = 60 * time.Second
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router:       router,
		fetcher:      f,
		cache:        cacheManager,
		batchTimeout: batchTimeout,
		logger:       logging.NewLogger("server"),
	}

	s.setupRoutes()
	return s
}

// setupRoutes defines all routes.
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/ready", s.readyHandler)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/v1")
	{
		v1.POST("/fetch", s.fetchHandler)
	}
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// fetchHandler accepts a batch of URLs, fans the fetches out and returns the
// aggregate once every fetch has completed or failed. Per-URL errors are
// embedded in the 200 response; only validation failures and dispatcher-level
// failures surface as error statuses.
func (s *Server) fetchHandler(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debug().Err(err).Msg("Malformed request body")
		c.String(http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.URLs) == 0 {
		c.String(http.StatusBadRequest, "no urls provided")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.batchTimeout)
	defer cancel()

	outcomes, err := s.fetcher.FetchAll(ctx, req.URLs)
	if err != nil {
		s.logger.Error().Err(err).Int("urls", len(req.URLs)).Msg("Batch dispatch failed")
		c.String(http.StatusInternalServerError, "batch failed: %v", err)
		return
	}

	c.JSON(http.StatusOK, Response{Results: fetcher.Results(outcomes)})
}

// healthHandler reports liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// readyHandler reports readiness. With the cache enabled, redis must be
// reachable; without it the service has no dependencies.
func (s *Server) readyHandler(c *gin.Context) {
	if s.cache != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := s.cache.Ping(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Readiness check failed: redis unreachable")
			c.String(http.StatusServiceUnavailable, "redis unreachable")
			return
		}
	}

	c.String(http.StatusOK, "OK")
}
