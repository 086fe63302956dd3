package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gatelog/internal/cloudinary"
	"gatelog/internal/config"
	"gatelog/internal/queue"
	"gatelog/internal/store"
	"gatelog/internal/syncer"
)

// Worker consumes sync messages and pushes records to the remote store.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	if cfg.QueueBackend != "redis" {
		log.Fatalf("worker needs QUEUE_BACKEND=redis; with %q the api process syncs by itself", cfg.QueueBackend)
	}

	repo, db, err := store.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL, cfg.AutoMigrate)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	q := queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)

	remote := syncer.New(cfg.SyncURL, cfg.SyncSkip)
	w := syncer.NewWorker(repo, remote, cfg.Location())
	w.PullInterval = cfg.SyncPullInterval
	w.UsePresence(syncer.NewPresence(redisClient, "", 3*cfg.SyncPullInterval))
	if cfg.CloudinaryConfigured() {
		w.UseUploader(cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder))
		log.Println("Cloudinary configured:", cfg.CloudinaryCloudName)
	} else {
		log.Println("Cloudinary not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET not set)")
	}

	if cfg.SyncSkip {
		log.Println("SYNC_SKIP set: records are marked synced without a remote store")
	}

	if err := w.Run(ctx, q, nil); err != nil {
		log.Fatalf("worker failed: %v", err)
	}
}
