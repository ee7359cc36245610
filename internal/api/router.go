package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	Sender      ChunkSender
	Secrets     SecretProvider
	AuthEnabled bool
	ChunkSize   int
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()
	r.Use(cors.Default())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": dep.ServiceName,
			"version": dep.Version,
			"status":  "ok",
		})
	})

	api := r.Group("/api/v1")
	// Request-id first so rejected requests still get an id and an access log
	// line.
	api.Use(RequestIDMiddleware())
	api.Use(TokenAuthMiddleware(dep.Secrets, dep.AuthEnabled))

	webhook := NewWebhookHandler(dep.Sender, dep.ChunkSize)
	api.POST("/webhook", webhook.Handle)

	return r
}
