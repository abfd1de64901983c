package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lysyi3m/hookrelay/app/metrics"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, routes Routes) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(requestIDMiddleware())

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(requestLogMiddleware())

	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		slog.Error("Panic recovered", "request_id", requestID(c), "path", c.Request.URL.Path, "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{
			Error:     "internal_error",
			RequestID: requestID(c),
		})
	}))

	setupRoutes(r, handler, routes)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, routes Routes) {
	r.GET("/healthz", handler.GetHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})))

	r.POST(routes.WebhookPath, handler.PostWebhook)
	r.POST(routes.SubmitPath, handler.PostSubmit)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "not_found"})
	})

	slog.Info("Routes registered", "webhook", routes.WebhookPath, "submit", routes.SubmitPath)
}

// requestIDMiddleware keeps a caller-supplied X-Request-ID or mints one.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := requestID(c)

		slog.Debug("request_start", "request_id", id, "method", c.Request.Method, "path", c.Request.URL.Path)

		c.Next()

		status := c.Writer.Status()
		duration := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(route, c.Request.Method, status, duration)

		slog.Info("request_end",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", duration)
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
