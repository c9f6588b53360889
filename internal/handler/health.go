package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger is satisfied by *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a plain check, e.g. a redis PING, to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error {
	return f(ctx)
}

// Health serves liveness, readiness and the prometheus scrape endpoint.
type Health struct {
	deps     map[string]Pinger
	gatherer prometheus.Gatherer
}

func NewHealth(gatherer prometheus.Gatherer, deps map[string]Pinger) *Health {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Health{deps: deps, gatherer: gatherer}
}

func (h *Health) RegisterRoutes(r *gin.RouterGroup) {
	health := r.Group("/health")
	{
		health.GET("/live", h.Liveness)
		health.GET("/ready", h.Readiness)
		health.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}
}

func (h *Health) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, NewSuccessResponse(gin.H{
		"status": "UP",
		"time":   time.Now().UTC(),
	}))
}

func (h *Health) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	for name, dep := range h.deps {
		if err := dep.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, &Response{
				Status:  "error",
				Message: name + " unavailable",
				Data:    gin.H{"status": "DOWN"},
			})
			return
		}
	}
	c.JSON(http.StatusOK, NewSuccessResponse(gin.H{"status": "UP"}))
}
