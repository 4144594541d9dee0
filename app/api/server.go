package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// NewServer builds the gin engine with all routes configured. When
// apiAccessKey is empty every endpoint is open; otherwise the record and
// job endpoints require the key.
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(accessLog())

	setupRoutes(r, handler, apiAccessKey)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	r.GET("/health", handler.HealthCheck)
	r.GET("/stats", handler.GetStats)

	data := r.Group("/")
	if apiAccessKey != "" {
		data.Use(authMiddleware(apiAccessKey))
		slog.Info("Data endpoints require authentication")
	} else {
		slog.Info("Data endpoints open (API_ACCESS_KEY not set)")
	}
	data.GET("/records", handler.ListRecords)
	data.GET("/records/:id", handler.GetRecord)
	data.GET("/jobs", handler.ListJobs)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "credtech-ingest",
			"endpoints": map[string]string{
				"health":  "/health",
				"stats":   "/stats",
				"records": "/records?source=&type=&from=&to=&tag=&limit=&offset=",
				"record":  "/records/<id>",
				"jobs":    "/jobs?type=&limit=",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// accessLog routes gin request logging through slog.
func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		slog.Debug("Request handled",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"client", c.ClientIP())
	}
}

// authMiddleware accepts the key via X-API-Key or a bearer token.
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")
		if providedKey == "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				providedKey = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "API key required"})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			c.Abort()
			return
		}

		c.Next()
	}
}
