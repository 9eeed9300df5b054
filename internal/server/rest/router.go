package rest

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/accounts/internal/logging"
	"github.com/gin-gonic/gin"
)

// NewRouter registers the API routes on a fresh gin engine.
func NewRouter(h *Handler, l logging.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(l))

	api := r.Group("/api")
	api.GET("/accounts/:id", h.GetAccount)
	api.POST("/accounts", h.CreateAccount)

	r.GET("/healthz", h.Health)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	return r
}

func requestLogger(l logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			l.Error(c.Request.Context(), "Request failed", append(args, "error", errs.String())...)
			return
		}
		l.Info(c.Request.Context(), "Request", args...)
	}
}
