package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"anoa.com/folio/internal/bootstrap"
	"anoa.com/folio/internal/config"
	searchService "anoa.com/folio/internal/modules/search/service"
	"anoa.com/folio/internal/server"
	"anoa.com/folio/pkg/database"
	"anoa.com/folio/pkg/logger"
	"anoa.com/folio/pkg/storage"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	logger.Set(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(database.Options{
		DSN:          cfg.DatabaseURL,
		MaxOpenConns: 25,
		MaxIdleConns: 5,
		Debug:        log.IsLevelEnabled(logrus.DebugLevel),
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.WithError(err).Warn("failed to close database")
		}
	}()

	if err := bootstrap.Migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	redisClient := connectRedis(ctx, cfg.RedisURL, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	deps := server.Deps{
		DB:     db,
		Redis:  redisClient,
		Search: connectSearch(cfg, log),
	}

	imageStorage, err := storage.NewCloudinaryStorage(cfg.CloudinaryURL, cfg.CloudinaryUploadFolder)
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		log.Warn("CLOUDINARY_URL not set, avatar uploads are disabled")
	case err != nil:
		log.Fatalf("cloudinary: %v", err)
	default:
		deps.ImageStorage = imageStorage
	}

	srv := server.NewServer(cfg, deps)

	if cfg.IsDevelopment() {
		if err := bootstrap.SeedDemoAccount(ctx, srv.Users, srv.AuthService, srv.ProfileSvc); err != nil {
			log.WithError(err).Warn("failed to seed demo account")
		}
	}

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
	log.Info("server stopped")
}

// connectRedis returns nil when Redis is not configured or unreachable;
// write throttling is then disabled.
func connectRedis(ctx context.Context, redisURL string, log *logrus.Logger) *redis.Client {
	if redisURL == "" {
		log.Warn("REDIS_URL not set, write throttling is disabled")
		return nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.WithError(err).Warn("invalid REDIS_URL, write throttling is disabled")
		return nil
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.WithError(err).Warn("redis unreachable, write throttling is disabled")
		_ = client.Close()
		return nil
	}

	log.Info("connected to redis")
	return client
}

func connectSearch(cfg *config.Config, log *logrus.Logger) searchService.PublicationIndex {
	host := cfg.MeiliSearchHost
	if host == "" {
		log.Warn("MEILISEARCH_HOST not set, publication search is disabled")
		return nil
	}
	if !strings.HasPrefix(host, "http") {
		host = "http://" + host + ":7700"
	}

	client := meilisearch.New(host, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	if !client.IsHealthy() {
		log.WithField("host", host).Warn("meilisearch unreachable, publication search is disabled")
		return nil
	}
	return searchService.NewMeiliSearchService(client)
}
