// Package api assembles the HTTP surface of the portal backend.
package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"karmasri/internal/auth"
	"karmasri/internal/docstore"
	"karmasri/internal/events"
	"karmasri/internal/logging"
	"karmasri/internal/metrics"
	"karmasri/internal/officer"
)

type Deps struct {
	DB       *sql.DB
	Tokens   auth.TokenService
	Spark    officer.SparkSource
	Blobs    docstore.BlobStore
	MaxBytes int64
	Hub      *events.Hub
	Log      *zap.Logger
}

func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Hub == nil {
		d.Hub = events.NewHub(d.Log)
	}
	if d.Blobs == nil {
		d.Blobs = docstore.SQLiteBlobs{DB: d.DB}
	}

	router := gin.New()
	router.Use(logging.Gin(d.Log), logging.Recovery(d.Log), metrics.Middleware())
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ready", func(c *gin.Context) {
		stats := d.Hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := d.DB.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "not_ready",
				"db_error":   err.Error(),
				"ws_clients": stats.WSClients,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"db":         "ok",
			"ws_clients": stats.WSClients,
		})
	})
	router.GET("/metrics", metrics.Handler())
	router.GET("/ws", events.WSHandler(d.Hub))

	accounts := auth.NewRepo(d.DB)
	auth.NewHandler(accounts, d.Tokens).RegisterRoutes(router.Group("/auth"))

	protected := router.Group("", auth.AuthMiddleware(d.Tokens, accounts))

	svc := officer.NewService(officer.NewRepo(d.DB), d.Spark, d.Log)
	officer.NewHandler(svc, accounts, d.Hub).RegisterRoutes(protected.Group("/officer"))

	docs := docstore.NewHandler(docstore.NewRepo(d.DB), accounts, d.Blobs, d.MaxBytes, d.Log)
	docs.RegisterRoutes(protected.Group("/doc-uploader"))

	return router
}
