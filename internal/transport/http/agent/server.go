// Package agenthttp exposes the engine's control and inspection surface over
// HTTP.
package agenthttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tickbot/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wraps the gin engine and its listen address.
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig describes the HTTP server dependencies.
type ServerConfig struct {
	Addr     string
	Router   *Router
	Gatherer prometheus.Gatherer
}

// NewServer builds the HTTP server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Router == nil {
		return nil, errors.New("agent http server requires a router")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9991"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}
	cfg.Router.Register(router.Group("/api/agent"))

	return &Server{addr: cfg.Addr, router: router}, nil
}

// requestLogger traces manual control calls so operator actions stay
// attributable.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		client := c.ClientIP()
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, path, c.Writer.Status(), client, time.Since(start))
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
