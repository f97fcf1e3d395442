package http

import (
	"context"
	"net/http"
	"time"

	"github.com/dkeye/roomrec/internal/app"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Statuser is the read side of the session manager.
type Statuser interface {
	Status(ctx context.Context) (app.Status, error)
}

const statusTimeout = 2 * time.Second

// RequestIDMiddleware tags every request with an id, reusing X-Request-ID
// when the caller sends one.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func SetupRouter(mode string, status Statuser, registry *prometheus.Registry) *gin.Engine {
	if mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	api := r.Group("/api")
	api.GET("/status", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), statusTimeout)
		defer cancel()
		st, err := status.Status(ctx)
		if err != nil {
			log.Warn().Str("module", "adapters.http").Str("request_id", c.GetString("request_id")).Err(err).Msg("status unavailable")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, st)
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
