// Package ui is the HTTP result surface: run results as JSON plus a
// rendered HTML report.
package ui

import (
	"net/http"
	"sync"

	"epifam/domain/inference"

	"github.com/gin-gonic/gin"
)

// Server serves the results of the most recent analysis run.
type Server struct {
	router *gin.Engine

	mu      sync.RWMutex
	results []inference.AnalysisResult
}

// NewServer creates a new result server instance.
func NewServer(ginMode string) *Server {
	if ginMode != "" {
		gin.SetMode(ginMode)
	}
	s := &Server{router: gin.Default()}
	s.routes()
	return s
}

// SetResults publishes a run's result sequence to the server.
func (s *Server) SetResults(results []inference.AnalysisResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = results
}

func (s *Server) routes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/api/results", s.handleResults)
	s.router.GET("/report", s.handleReport)
}

func (s *Server) handleResults(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.results == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no run available"})
		return
	}
	c.JSON(http.StatusOK, s.results)
}

func (s *Server) handleReport(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.results == nil {
		c.String(http.StatusNotFound, "no run available")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", RenderHTML(BuildMarkdown(s.results)))
}

// Run starts the HTTP server on the given port.
func (s *Server) Run(port string) error {
	return s.router.Run(":" + port)
}
