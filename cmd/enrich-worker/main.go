package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"parsimonious/internal/amqp"
	"parsimonious/internal/backend"
	"parsimonious/internal/config"
	"parsimonious/internal/enrich"
	"parsimonious/internal/gemini"
	"parsimonious/internal/log"
	"parsimonious/internal/ocr"
	"parsimonious/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker)
	log.SetDefault(logger)

	logger.Info("Starting enrich-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if !cfg.EnrichmentEnabled() {
		logger.Error("enrich-worker requires GEMINI_API_KEY and VISION_API_KEY")
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("enrich-worker requires AMQP_URL")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	recognizer, err := ocr.NewVisionClient(ctx, cfg.VisionAPIKey)
	if err != nil {
		logger.Error("Failed to initialize Vision client", log.FieldError, err)
		os.Exit(1)
	}
	extractor := gemini.New(gemini.Config{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiExtractModel})
	refiner := gemini.New(gemini.Config{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiRefineModel})
	pipeline := enrich.NewPipeline(recognizer, extractor, refiner, logger.WithComponent(log.ComponentEnrich))

	// The worker only consumes; the API publishes jobs.
	enrichment := services.NewEnrichmentService(result.Store, pipeline, nil, cfg.SpoolDir, logger.WithComponent(log.ComponentEnrich))

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	go func() {
		handler := func(msg *amqp.EnrichmentJobMessage) error {
			return enrichment.ProcessJob(ctx, msg)
		}
		if err := amqpClient.ConsumeEnrichmentJobs(ctx, handler); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("Job consumption failed", log.FieldError, err)
			}
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()

	// Give the current job a moment to finish.
	logger.Info("Shutting down worker...")
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}
