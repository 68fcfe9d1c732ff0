// Package server exposes the query/chat surface over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ragchat/internal/app"
)

// Server is the HTTP boundary over the application coordinator.
type Server struct {
	app  *app.App
	log  *zap.Logger
	http *http.Server
}

// New builds the server and its routes.
func New(a *app.App, addr string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{app: a, log: log}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.logging(), cors())

	api := router.Group("/api")
	api.GET("/health", s.handleHealth)
	api.POST("/query", s.handleQuery)
	api.POST("/chat", s.handleChat)
	api.POST("/reset", s.handleReset)

	s.http = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 300 * time.Second,
	}
	return s
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.http.Shutdown(shutdownCtx)
		s.app.Shutdown()
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "ready": s.app.Ready()})
}

type queryRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'query' field"})
		return
	}
	result := s.app.ProcessQuery(c.Request.Context(), req.Query)
	c.JSON(s.statusFor(result.Failed()), result)
}

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'message' field"})
		return
	}
	result := s.app.ProcessChatMessage(c.Request.Context(), req.Message)
	c.JSON(s.statusFor(result.Failed()), result)
}

func (s *Server) handleReset(c *gin.Context) {
	s.app.ResetConversation()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "conversation history reset"})
}

// statusFor maps fatal startup failures to 500 while keeping per-query
// pipeline errors at 200: those are already well-formed error results and
// the engine stays serviceable.
func (s *Server) statusFor(failed bool) int {
	if failed && !s.app.Ready() {
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

func (s *Server) logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
