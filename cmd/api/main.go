package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/api"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/cloudinary"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/config"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/editor"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/imaging"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/logging"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/queue"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/ratelimit"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/storage"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/store"
	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/telemetry"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

type outputStore interface {
	ReadObject(ctx context.Context, objectKey string) ([]byte, error)
	WriteObject(ctx context.Context, objectKey string, data []byte, contentType string) error
	RemoveObject(ctx context.Context, objectKey string) error
}

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()
	logger := logging.New(cfg.App.Env, "api")
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		logger.Warn().Err(envErr).Msg(".env load failed")
	}

	ctx := context.Background()

	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TraceConfig{
		ServiceName:  cfg.Tracing.ServiceName + "-api",
		Exporter:     cfg.Tracing.Exporter,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		OTLPInsecure: cfg.Tracing.OTLPInsecure,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("tracing setup failed")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()

	if err := imaging.Startup(); err != nil {
		logger.Fatal().Err(err).Msg("imaging startup failed")
	}
	defer imaging.Shutdown()

	var edits store.EditStore = store.NewMemoryEditStore()
	if cfg.Database.DSN != "" {
		pgStore, err := store.NewPostgresEditStore(ctx, cfg.Database.DSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres edit store failed")
		}
		defer pgStore.Close()
		edits = pgStore
		logger.Info().Msg("edit store: postgres")
	}

	var outputs outputStore = storage.NewMemoryStore()
	if cfg.Storage.Enabled {
		storageClient, err := storage.NewClient(storage.Config{
			Endpoint: cfg.Storage.Endpoint,
			Access:   cfg.Storage.AccessKey,
			Secret:   cfg.Storage.SecretKey,
			Bucket:   cfg.Storage.Bucket,
			UseSSL:   cfg.Storage.UseSSL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("storage client failed")
		}
		if err := storageClient.EnsureBucket(ctx); err != nil {
			logger.Fatal().Err(err).Str("bucket", storageClient.Bucket()).Msg("ensure bucket failed")
		}
		outputs = storageClient
		logger.Info().Str("bucket", storageClient.Bucket()).Msg("output storage: minio")
	}

	var notifier editor.Notifier
	if cfg.Queue.Enabled {
		queueClient := queue.NewClient(cfg.Queue.RedisClientOpt(), cfg.Queue.Name)
		defer func() {
			if err := queueClient.Close(); err != nil {
				logger.Warn().Err(err).Msg("queue client close failed")
			}
		}()
		notifier = queueClient
		logger.Info().Str("queue", cfg.Queue.Name).Msg("webhook notifications enabled")
	}

	var limiter api.RateLimiter
	if cfg.RateLimit.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Queue.RedisAddr,
			Password: cfg.Queue.RedisPassword,
			DB:       cfg.Queue.RedisDB,
		})
		defer redisClient.Close()

		bucket, err := ratelimit.NewRedisTokenBucket(redisClient, cfg.RateLimit.Capacity, cfg.RateLimit.Window, ratelimit.DefaultKeyPrefix)
		if err != nil {
			logger.Fatal().Err(err).Msg("rate limiter setup failed")
		}
		limiter = bucket
	}

	remote := cloudinary.NewClient(cloudinary.Config{
		CloudName:   cfg.Cloudinary.CloudName,
		APIKey:      cfg.Cloudinary.APIKey,
		APISecret:   cfg.Cloudinary.APISecret,
		APIURL:      cfg.Cloudinary.APIURL,
		DeliveryURL: cfg.Cloudinary.DeliveryURL,
		Timeout:     cfg.Cloudinary.Timeout,
	})

	ed, err := editor.New(editor.Options{
		Logger:   logger,
		Remote:   remote,
		TempDir:  cfg.Upload.TempDir,
		Edits:    edits,
		Outputs:  outputs,
		Notifier: notifier,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("editor setup failed")
	}

	app := api.NewServer(api.Options{
		Logger:         logger,
		Editor:         ed,
		Edits:          edits,
		Outputs:        outputs,
		Remote:         remote,
		RateLimiter:    limiter,
		MaxUploadBytes: cfg.API.MaxUploadBytes,
	})

	httpServer := &http.Server{
		Addr:         cfg.API.Addr,
		Handler:      app.Handler(),
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  cfg.API.IdleTimeout,
	}

	go func() {
		logger.Info().Str("addr", cfg.API.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info().Msg("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
