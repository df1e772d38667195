package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"colorold/internal/http/handlers"
	httpapi "colorold/internal/http/httpapi"
	"colorold/internal/infra"
	"colorold/internal/infra/geoip"
	"colorold/internal/providers/replicate"
	"colorold/internal/quota"
	"colorold/internal/storage"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	geo, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer geo.Close()

	store, cleanup, err := newQuotaStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.QuotaBackend).Msg("failed to init quota store")
	}
	defer cleanup()

	period, _ := quota.ParsePeriod(cfg.QuotaPeriod)
	guard := quota.NewGuard(quota.Options{
		Store:       store,
		Limit:       cfg.QuotaLimit,
		Period:      period,
		RequireAuth: cfg.QuotaRequireAuth,
	})

	objects, staticDir, err := newObjectStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.StorageBackend).Msg("failed to init storage")
	}

	predictor := replicate.NewClient(replicate.Options{
		APIToken:       cfg.ReplicateAPIToken,
		ReadToken:      cfg.ReplicateReadToken,
		BaseURL:        cfg.ReplicateBaseURL,
		Logger:         &logger,
		RequestTimeout: cfg.UpstreamTimeout,
	})
	if !predictor.HasCredentials() {
		logger.Warn().Msg("REPLICATE_API_TOKEN not set; job endpoints will answer 500")
	}

	app := &handlers.App{
		Predictor: predictor,
		Models: map[string]replicate.Model{
			"restore":  replicate.RestoreModel(cfg.RestoreModelVersion),
			"colorize": replicate.ColorizeModel(cfg.ColorizeModelVersion),
		},
		Quota:          guard,
		Store:          objects,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Logger:         logger,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		DefaultLocale:   cfg.DefaultLocale,
		CORSOrigins:     cfg.CORSOrigins,
		CountryLookup:   geo.Lookup(),
		JWTSecret:       []byte(cfg.JWTSecret),
		RateLimitPerMin: cfg.RateLimitPerMin,
		StaticDir:       staticDir,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Str("quota", cfg.QuotaBackend).Str("storage", cfg.StorageBackend).Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func newQuotaStore(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (quota.Store, func(), error) {
	switch cfg.QuotaBackend {
	case "postgres":
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		pg := quota.NewPostgresStore(infra.NewSQLRunner(pool, logger))
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		go pruneLoop(ctx, pg, cfg.QuotaRetention, logger)
		return pg, pool.Close, nil
	case "redis":
		rdb, err := infra.NewRedisClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return quota.NewRedisStore(rdb, cfg.QuotaRetention), func() { _ = rdb.Close() }, nil
	default:
		return quota.NewMemoryStore(cfg.QuotaRetention, nil), func() {}, nil
	}
}

// pruneLoop drops Postgres counters idle for longer than retention.
func pruneLoop(ctx context.Context, pg *quota.PostgresStore, retention time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := pg.Prune(ctx, time.Now().Add(-retention))
			if err != nil {
				logger.Warn().Err(err).Msg("prune usage counters failed")
				continue
			}
			if n > 0 {
				logger.Info().Int64("rows", n).Msg("pruned usage counters")
			}
		}
	}
}

// newObjectStore returns the upload store and, for local storage, the
// directory to serve under /static/.
func newObjectStore(ctx context.Context, cfg *infra.Config) (storage.Store, string, error) {
	switch cfg.StorageBackend {
	case "s3":
		s3, err := storage.NewS3Store(ctx, storage.S3Options{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			Prefix:     cfg.S3Prefix,
			PresignTTL: cfg.S3PresignTTL,
		})
		return s3, "", err
	case "none":
		return storage.InlineStore{}, "", nil
	default:
		fs, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
		if err != nil {
			return nil, "", err
		}
		return fs, fs.BasePath(), nil
	}
}
