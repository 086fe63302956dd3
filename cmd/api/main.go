package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"gatelog/internal/api"
	"gatelog/internal/auth"
	"gatelog/internal/cloudinary"
	"gatelog/internal/config"
	"gatelog/internal/queue"
	"gatelog/internal/roster"
	"gatelog/internal/store"
	"gatelog/internal/syncer"
	"gatelog/internal/tracker"
)

func main() {
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, db, err := store.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL, cfg.AutoMigrate)
	if err != nil {
		return err
	}
	defer db.Close()
	loc := cfg.Location()

	checks := map[string]api.Check{}
	if db != nil {
		checks["db"] = db.Healthy
	}

	var (
		q      queue.Queue
		conn   api.Connectivity
		worker *syncer.Worker
	)
	if cfg.QueueBackend == "redis" {
		redisClient := store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		checks["redis"] = redisClient.Healthy
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
		conn = syncer.NewPresence(redisClient, "", 3*cfg.SyncPullInterval)
	} else {
		// no separate worker process: sync in the background here
		q = queue.NewInMemory(256)
		worker = syncer.NewWorker(repo, syncer.New(cfg.SyncURL, cfg.SyncSkip), loc)
		worker.PullInterval = cfg.SyncPullInterval
		if cfg.CloudinaryConfigured() {
			worker.UseUploader(cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder))
			log.Println("Cloudinary configured:", cfg.CloudinaryCloudName)
		}
		conn = worker
	}

	track := tracker.NewService(repo, q, loc)
	if err := track.Load(ctx); err != nil {
		return err
	}
	people := roster.NewService(repo, q, loc)
	people.OnPersonAdded(track.PersonAdded)
	people.OnPersonDeleted(track.PersonRemoved)

	if worker != nil {
		go func() {
			if err := worker.Run(ctx, q, track.PersonAdded); err != nil {
				log.Printf("sync worker: %v", err)
			}
		}()
	} else {
		// people imported by the worker process
		go reloadPeople(ctx, track, cfg.SyncPullInterval)
	}

	stations := auth.NewStations(repo, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL, cfg.RegistrationKeyHash)
	h := api.NewHandler(track, people, stations, conn, checks)
	r := api.NewRouter(h, api.RouterConfig{
		JWTIssuer:       cfg.JWTIssuer,
		JWTSigningKey:   cfg.JWTSigningKey,
		RateLimitPerMin: cfg.RateLimitPerMin,
		CORSOrigins:     cfg.CORSOrigins,
	})

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s (store=%s queue=%s)", cfg.HTTPPort, cfg.DatabaseDriver, cfg.QueueBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}
	cancel()

	log.Println("Server exited")
	return nil
}

func reloadPeople(ctx context.Context, track *tracker.Service, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := track.Load(ctx); err != nil {
				log.Printf("reload people: %v", err)
			}
		}
	}
}
