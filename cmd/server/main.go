package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/gdiab/showscribe/internal/ai"
	"github.com/gdiab/showscribe/internal/api"
	"github.com/gdiab/showscribe/internal/audio"
	"github.com/gdiab/showscribe/internal/config"
	"github.com/gdiab/showscribe/internal/queue"
	"github.com/gdiab/showscribe/internal/ratelimit"
	"github.com/gdiab/showscribe/internal/spend"
	"github.com/gdiab/showscribe/internal/storage"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Unknown models are a configuration error, not a runtime crash
	if err := ai.ValidateModel(cfg.ChatModel); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Set Gin mode (default to release mode)
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	spendStore := spend.NewStore(cfg)
	client := ai.NewClient(cfg, spendStore)
	generator := ai.NewGenerator(client)
	compressor := audio.NewCompressor()
	jobs := queue.NewRegistry()

	dispatcher := queue.NewDispatcher(cfg.DispatchURL, cfg.DispatchToken)
	if dispatcher.Enabled() {
		log.Printf("Async dispatch enabled: %s", cfg.DispatchURL)
	} else {
		log.Println("DISPATCH_URL not set, large files will be processed synchronously")
	}

	// Blob staging is optional; without it queued payloads travel inline
	var blobs audio.BlobStore
	if cfg.Minio.Endpoint != "" {
		store, err := storage.NewBlobStore(&cfg.Minio)
		if err != nil {
			log.Printf("Warning: blob store unavailable, queued payloads will be sent inline: %v", err)
		} else {
			blobs = store
		}
	}

	pipeline := audio.NewPipeline(cfg, client, compressor, jobs, dispatcher, blobs)
	limiter := ratelimit.New(cfg.RateLimitWindow, cfg.RateLimitMax, cfg.TrustedHosts)

	// Hourly sweep keeps the process-local window map bounded
	sweeper := cron.New()
	if _, err := sweeper.AddFunc("@hourly", func() {
		if removed := limiter.Sweep(); removed > 0 {
			log.Printf("[RateLimit] Swept %d expired windows", removed)
		}
	}); err != nil {
		log.Fatalf("Failed to schedule limiter sweep: %v", err)
	}
	sweeper.Start()

	r := gin.Default()
	r.Use(corsMiddleware())

	server := api.NewServer(generator, pipeline, jobs, cfg.TempDir)
	server.RegisterRoutes(r, limiter.Middleware())

	log.Printf("ShowScribe backend running on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// corsMiddleware adds CORS headers for the web frontend
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
