package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fashion-studio/common/logger"
	"fashion-studio/conf"
	"fashion-studio/model"
	"fashion-studio/service/persist_service"
	"fashion-studio/service/storage_service"

	"github.com/schollz/progressbar/v3"
)

var (
	ENV    string
	dryRun bool
)

func init() {
	flag.StringVar(&ENV, "env", conf.EnvLocal, "Environment: loc/test/pro")
	flag.BoolVar(&dryRun, "dry-run", false, "List dead letters without replaying them")
}

// reconcile replays persistence tasks that failed after their response was
// sent: spooled payloads are uploaded again and the missing ledger records
// are written. Entries that fail again are left for the next run.
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

	dead, err := persist_service.NewDeadLetterLog(cfg.Persist.DeadLetterDir)
	if err != nil {
		log.Fatal("Failed to open dead letter log", "error", err)
	}
	entries, err := dead.List()
	if err != nil {
		log.Fatal("Failed to list dead letters", "error", err)
	}
	if len(entries) == 0 {
		fmt.Println("No dead letters to replay")
		return
	}
	if dryRun {
		for _, f := range entries {
			fmt.Printf("%s  %-6s  user=%s  key=%s  %s\n", f.FailedAt.Format(time.RFC3339), f.Stage, f.UserID, f.Key, f.Error)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := storage_service.NewBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize storage backend", "error", err)
	}
	defer backend.Close()

	bar := progressbar.NewOptions64(
		int64(len(entries)),
		progressbar.OptionSetDescription("Replaying dead letters"),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionSetWriter(os.Stderr),
	)

	reconciler := persist_service.NewReconciler(backend, dead, log)
	replayed, failed, err := reconciler.ReplayAll(ctx, func(*model.PersistFailure, error) {
		bar.Add(1)
	})
	bar.Finish()
	fmt.Println()
	if err != nil {
		log.Warn("Replay interrupted", "error", err)
	}
	log.Info("Replay finished", "replayed", replayed, "failed", failed, "total", len(entries))
	if failed > 0 || err != nil {
		backend.Close()
		log.Sync()
		os.Exit(1)
	}
}
