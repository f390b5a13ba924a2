package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agenthands/docgraph/internal/core"
	"github.com/agenthands/docgraph/internal/graph"
	"github.com/agenthands/docgraph/internal/logger"
)

var errOutsideRoot = errors.New("path is outside the corpus root")

type Server struct {
	Pipeline *core.Pipeline
	Graph    graph.Store
	// Root confines ingest requests; relative paths are resolved against it.
	// Empty allows any path.
	Root string
}

func NewServer(p *core.Pipeline, store graph.Store, root string) *Server {
	return &Server{Pipeline: p, Graph: store, Root: root}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.POST("/ingest", s.Ingest)
	r.GET("/documents/status", s.DocumentStatus)
	r.GET("/healthz", s.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type IngestRequest struct {
	Path string `json:"path" binding:"required"`
}

func (s *Server) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	path, err := s.resolvePath(req.Path)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := s.Pipeline.Run(c.Request.Context(), path)
	if err != nil {
		logger.Error("ingest failed", "path", path, "err", err)
		status := http.StatusInternalServerError
		if errors.Is(err, context.Canceled) {
			status = http.StatusRequestTimeout
		}
		if report == nil {
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(status, gin.H{"error": err.Error(), "report": report})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (s *Server) DocumentStatus(c *gin.Context) {
	raw := c.Query("path")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}
	path, err := s.resolvePath(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	processed, err := s.Graph.DocumentProcessed(c.Request.Context(), path)
	if err != nil {
		logger.Error("status lookup failed", "path", path, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query graph"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path, "processed": processed})
}

func (s *Server) Health(c *gin.Context) {
	stats, err := s.Graph.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "graph": stats})
}

func (s *Server) resolvePath(p string) (string, error) {
	if s.Root == "" {
		return filepath.Abs(p)
	}
	root, err := filepath.Abs(s.Root)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	p = filepath.Clean(p)
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", p, errOutsideRoot)
	}
	return p, nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
