package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fashion-studio/common"
	"fashion-studio/common/logger"
	"fashion-studio/conf"
	"fashion-studio/controller"
	"fashion-studio/service/generation_service"
	"fashion-studio/service/persist_service"
	"fashion-studio/service/storage_service"
)

var ENV string

func init() {
	flag.StringVar(&ENV, "env", conf.EnvLocal, "Environment: loc/test/pro")
}

// @title           Fashion Studio API
// @version         1.0
// @description     Generates fashion images, edits, try-ons, videos and text, and keeps a per-user asset ledger

// @host      localhost:8000
// @BasePath  /

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization

// @schemes http https

func main() {
	flag.Parse()

	cfg, err := conf.Load(ENV)
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded", "env", ENV, "port", cfg.Port, "backend", cfg.Storage.Backend)

	srv, orchestrator, cleanup := initAll(cfg, log)
	defer cleanup()

	// Start HTTP API service (in goroutine)
	go startServer(srv, log)

	// Wait for shutdown signal
	waitForShutdown()
	log.Info("Shutting down studio service...")

	// Stop accepting requests first so no new persistence work arrives
	shutdownServer(srv, log)

	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := orchestrator.Shutdown(drainCtx); err != nil {
		log.Warn("Persist queue not fully drained", "error", err)
	}

	log.Info("Server exited")
}

// initAll builds every component once and wires them together
func initAll(cfg *conf.Config, log *logger.Logger) (*http.Server, *persist_service.Orchestrator, func()) {
	ctx := context.Background()

	backend, err := storage_service.NewBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize storage backend", "error", err)
	}

	client, err := generation_service.NewGenAIClient(ctx, cfg.GenAI.Project, cfg.GenAI.Location)
	if err != nil {
		log.Fatal("Failed to initialize model client", "error", err)
	}
	pool := common.NewWorkPool(cfg.Pool.GenerationWorkers)
	generator := generation_service.NewService(client, cfg.GenAI, cfg.Video, pool)
	log.Info("Generation service initialized", "workers", pool.Size(), "location", cfg.GenAI.Location)

	dead, err := persist_service.NewDeadLetterLog(cfg.Persist.DeadLetterDir)
	if err != nil {
		log.Fatal("Failed to initialize dead letter log", "error", err)
	}
	orchestrator := persist_service.NewOrchestrator(backend, dead, persist_service.Config{
		Workers:   cfg.Persist.Workers,
		QueueSize: cfg.Persist.QueueSize,
	}, log)
	cleanupProcessor := persist_service.NewCleanupProcessor(dead, log)
	cleanupProcessor.Start()

	router := controller.SetupRouter(controller.Dependencies{
		Config:      cfg,
		Backend:     backend,
		Generator:   generator,
		Persist:     orchestrator,
		DeadLetters: dead,
		Log:         log,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	cleanup := func() {
		cleanupProcessor.Stop()
		if err := backend.Close(); err != nil {
			log.Warn("Failed to close storage backend", "error", err)
		}
	}
	return srv, orchestrator, cleanup
}

// startServer start HTTP server
func startServer(srv *http.Server, log *logger.Logger) {
	log.Info("Studio API service starting", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("Failed to start server", "error", err)
	}
}

// waitForShutdown wait for shutdown signal
func waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
}

// shutdownServer gracefully shutdown server
func shutdownServer(srv *http.Server, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("Server forced to shutdown", "error", err)
	}
}
