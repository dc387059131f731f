package main

import (
	"context"
	"net/http"
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
	apphttp "parsimonious/internal/http"
	"parsimonious/internal/log"
	"parsimonious/internal/ocr"
	"parsimonious/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
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
	st := result.Store

	receipts := services.NewReceiptService(st, logger.WithComponent(log.ComponentReceipt))

	// Receipt scanning is optional: it needs the Vision and Gemini keys.
	var enrichment *services.EnrichmentService
	if cfg.EnrichmentEnabled() {
		recognizer, err := ocr.NewVisionClient(ctx, cfg.VisionAPIKey)
		if err != nil {
			logger.Error("Failed to initialize Vision client", log.FieldError, err)
			os.Exit(1)
		}
		extractor := gemini.New(gemini.Config{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiExtractModel})
		refiner := gemini.New(gemini.Config{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiRefineModel})
		pipeline := enrich.NewPipeline(recognizer, extractor, refiner, logger.WithComponent(log.ComponentEnrich))

		// Without a broker, jobs run inside this process.
		var queue services.JobPublisher
		if cfg.AMQPURL != "" {
			amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
			if err != nil {
				logger.Warn("Failed to initialize AMQP client, enriching in process", log.FieldError, err)
			} else {
				defer amqpClient.Close()
				queue = amqpClient
				logger.Info("AMQP client initialized, scans handled by enrich-worker")
			}
		}

		enrichment = services.NewEnrichmentService(st, pipeline, queue, cfg.SpoolDir, logger.WithComponent(log.ComponentEnrich))
		logger.Info("Receipt scanning enabled",
			"extract_model", cfg.GeminiExtractModel,
			"refine_model", cfg.GeminiRefineModel)
	} else {
		logger.Info("Receipt scanning disabled, set GEMINI_API_KEY and VISION_API_KEY to enable")
	}

	srv := apphttp.NewServer(":"+cfg.Port, st, receipts, enrichment)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting parsimonious server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
