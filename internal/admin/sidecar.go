// Package admin runs the helper daemon's HTTP sidecar: health, readiness,
// and Prometheus metrics, separate from the Unix-domain mapper socket.
package admin

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/modmap/cody/internal/observability"
)

// Sidecar hosts the helper daemon's admin HTTP surface.
type Sidecar struct {
	ID       string
	router   *gin.Engine
	server   *http.Server
	started  time.Time
	sessions atomic.Int64
}

// New builds a Sidecar for node id, allowing CORS from origins. An empty
// origins list allows http://localhost:3000 as a sane local default.
func New(id string, origins []string) *Sidecar {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(id))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(origins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Sidecar{ID: id, router: r, started: time.Now()}
	s.registerRoutes()
	return s
}

// SessionOpened and SessionClosed track the number of live mapper
// connections, surfaced on /ready.
func (s *Sidecar) SessionOpened() { s.sessions.Add(1) }
func (s *Sidecar) SessionClosed() { s.sessions.Add(-1) }

func (s *Sidecar) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).String(),
			"service": s.ID,
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":    true,
			"uptime":   time.Since(s.started).String(),
			"service":  s.ID,
			"sessions": s.sessions.Load(),
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Serve blocks, listening on addr, until ctx is cancelled.
func (s *Sidecar) Serve(ctx context.Context, addr string) error {
	s.server = &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
