// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package api serves the recognition workflows as a JSON HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/recog-engine/internal/logging"
	"github.com/pdiddy/recog-engine/internal/metrics"
	"github.com/pdiddy/recog-engine/internal/recognition"
	"github.com/pdiddy/recog-engine/pkg/types"
)

// RequestIDHeader carries the per-request ID.
const RequestIDHeader = "X-Request-ID"

// Workflows runs the two-step recognition flow.
type Workflows interface {
	Find(ctx context.Context, text, institution string) (recognition.FindResult, error)
	Select(ctx context.Context, selectedJSON, externalJSON string) (recognition.SelectResult, error)
}

// Server holds the handlers' dependencies.
type Server struct {
	extractor recognition.Extractor
	ranker    recognition.Ranker
	workflows Workflows
	metrics   *metrics.Recorder
	logger    *zap.Logger
	maxInput  int
}

// NewServer creates a Server. cfg supplies the input cap for the extract
// and suggestion endpoints.
func NewServer(e recognition.Extractor, r recognition.Ranker, w Workflows, cfg types.RecognitionConfig, m *metrics.Recorder, logger *zap.Logger) *Server {
	return &Server{
		extractor: e,
		ranker:    r,
		workflows: w,
		metrics:   m,
		logger:    logging.OrNop(logger),
		maxInput:  cfg.Defaulted().MaxInputChars,
	}
}

// NewRouter constructs a gin engine with all routes registered.
func NewRouter(s *Server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(s.logger))

	r.GET("/api/health", handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))

	modules := r.Group("/api/modules")
	modules.POST("/extract", s.handleExtract)
	modules.POST("/suggestions", s.handleSuggestions)

	rec := r.Group("/api/recognition")
	rec.POST("/find", s.handleFind)
	rec.POST("/select", s.handleSelect)
	return r
}

// Serve runs handler on cfg.Addr until ctx is cancelled, then shuts down
// gracefully.
func Serve(ctx context.Context, cfg types.ServerConfig, handler http.Handler, logger *zap.Logger) error {
	logger = logging.OrNop(logger)
	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving %s: %w", addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// requestID reuses an incoming X-Request-ID or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDHeader, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(RequestIDHeader)),
		)
	}
}
