package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/Goga74/fpengine/internal/audit"
	"github.com/Goga74/fpengine/internal/boundary"
	"github.com/Goga74/fpengine/internal/common/admin"
	"github.com/Goga74/fpengine/internal/common/config"
	"github.com/Goga74/fpengine/internal/common/swagger"
	"github.com/Goga74/fpengine/internal/dispatcher"
	"github.com/Goga74/fpengine/internal/executor"
	"github.com/Goga74/fpengine/internal/fingerprint"
	"github.com/Goga74/fpengine/internal/pool"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found")
	} else {
		log.Println("Loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("fpengine - fingerprint-driven HTTP client engine")

	registry := fingerprint.NewRegistry(cfg.ProfileDir)
	connPool := pool.New()
	ex := executor.New(registry, connPool)

	sweeper, err := pool.NewSweeper(connPool, "@every 1m")
	if err != nil {
		log.Fatalf("Failed to start pool sweeper: %v", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	disp := dispatcher.New(ex)
	engine := boundary.NewEngine(disp)

	var auditSink *audit.Sink
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		auditSink, err = audit.Connect(ctx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			log.Printf("Audit sink disabled: %v", err)
		} else {
			defer auditSink.Close()
		}
	}

	tokenAuth := admin.New(cfg.AdminToken)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "pool": connPool.Stats()})
	})

	swagger.RegisterRoutes(r)

	v1 := r.Group("/v1")
	v1.Use(tokenAuth.Middleware())
	{
		v1.GET("/profiles", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"profiles": registry.Names()})
		})

		v1.GET("/pool/stats", func(c *gin.Context) {
			c.JSON(http.StatusOK, connPool.Stats())
		})

		v1.POST("/pool/close-idle", func(c *gin.Context) {
			closed := connPool.CloseIdle(nil)
			c.JSON(http.StatusOK, gin.H{"closed": closed})
		})

		// /v1/fetch carries a MessagePack-encoded boundary Request in the
		// body and returns a MessagePack-encoded Response; it is the
		// HTTP-transport binding of sync_request for hosts that would
		// rather speak plain HTTP than link the engine directly.
		v1.POST("/fetch", func(c *gin.Context) {
			payload, err := io.ReadAll(c.Request.Body)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			start := time.Now()
			out, err := engine.SyncRequest(c.Request.Context(), payload)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			auditSink.Record(audit.Record{
				Host:       c.Request.Host,
				Protocol:   "http",
				DurationMs: time.Since(start).Milliseconds(),
			})
			c.Data(http.StatusOK, "application/msgpack", out)
		})
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("fpengine listening on http://0.0.0.0:%s", cfg.Port)
		log.Printf("Admin token: %s", tokenAuth.Token())
		log.Printf("Swagger: http://0.0.0.0:%s/swagger", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
