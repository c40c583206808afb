package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voxpipe/voxpipe/internal/api"
	"github.com/voxpipe/voxpipe/internal/config"
	"github.com/voxpipe/voxpipe/internal/db"
	"github.com/voxpipe/voxpipe/internal/queue"
	"github.com/voxpipe/voxpipe/internal/services"
	"github.com/voxpipe/voxpipe/internal/worker"
)

func main() {
	log.Println("Starting voxpipe API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Resolve the provider profile
	profile, err := services.ProfileByName(cfg.TTSProvider, cfg.OpenAIBaseURL)
	if err != nil {
		log.Fatalf("Failed to resolve TTS provider: %v", err)
	}
	if cfg.VoiceID != "" {
		profile.DefaultVoice = cfg.VoiceID
	}
	if cfg.ModelID != "" {
		profile.DefaultModel = cfg.ModelID
	}
	log.Printf("TTS provider: %s (voice: %s, model: %s)", profile.Name, profile.DefaultVoice, profile.DefaultModel)

	// Open the usage ledger. Optional: without it generation still works,
	// but nothing is recorded and usage queries fail explicitly.
	var ledger services.Ledger
	if cfg.DatabaseURL != "" {
		database, err := db.New(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to open usage ledger: %v", err)
		}
		defer database.Close()
		ledger = database
		log.Println("Connected to usage ledger")

		if cfg.UsageRetentionDays > 0 {
			removed, err := database.PurgeOlderThan(context.Background(), cfg.UsageRetentionDays)
			if err != nil {
				log.Printf("Retention purge failed: %v", err)
			} else if removed > 0 {
				log.Printf("Retention purge removed %d records older than %d days", removed, cfg.UsageRetentionDays)
			}
		}
	} else {
		log.Println("WARNING: No DATABASE_URL set, usage recording disabled")
	}

	// Build the pipeline
	speechSvc := services.NewSpeechService(profile, cfg.ProviderAPIKey())
	concat := services.NewFFmpegConcatenator(cfg.FFmpegPath)
	if !concat.Available() {
		log.Println("WARNING: ffmpeg not found, long text will be truncated to one chunk")
	}
	assembler := services.NewAssembler(concat, cfg.TempDir)
	pipeline := services.NewPipeline(profile, speechSvc, assembler, ledger)
	accountSvc := services.NewAccountService(profile, cfg.ProviderAPIKey(), ledger)

	// Connect to the async queue when configured
	var q *queue.Queue
	if cfg.RedisURL != "" {
		q, err = queue.New(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to queue: %v", err)
		}
		defer q.Close()
		log.Println("Connected to Redis queue")
	} else {
		log.Println("No REDIS_URL set, async generation disabled")
	}

	// Create API handler
	handler := api.NewHandler(pipeline, accountSvc, q)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set, API is unprotected (dev mode)")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start worker if enabled
	var workerCancel context.CancelFunc
	if cfg.WorkerEnabled && q != nil {
		log.Println("Worker enabled, starting background processing...")

		w := worker.New(q, pipeline, cfg.OutputDir)

		var workerCtx context.Context
		workerCtx, workerCancel = context.WithCancel(context.Background())
		go w.Start(workerCtx, cfg.MaxConcurrentJobs)
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Shutdown worker
	if workerCancel != nil {
		workerCancel()
	}

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
