package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/khshakilahamed/ads-generator/internal/adapter/feed"
	"github.com/khshakilahamed/ads-generator/internal/adapter/repo"
	"github.com/khshakilahamed/ads-generator/internal/domain"
	"github.com/khshakilahamed/ads-generator/internal/http/handlers"
	"github.com/khshakilahamed/ads-generator/internal/http/httpapi"
	"github.com/khshakilahamed/ads-generator/internal/infra"
	"github.com/khshakilahamed/ads-generator/internal/pipeline"
	"github.com/khshakilahamed/ads-generator/internal/providers"
	"github.com/khshakilahamed/ads-generator/internal/providers/image"
	"github.com/khshakilahamed/ads-generator/internal/providers/prompt"
	"github.com/khshakilahamed/ads-generator/internal/providers/video"
	"github.com/khshakilahamed/ads-generator/internal/retry"
	"github.com/khshakilahamed/ads-generator/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	if err := repo.EnsureSchema(ctx, dbpool); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply schema")
	}

	adFeed := buildFeed(ctx, cfg, logger)
	blobs, staticDir := buildBlobStore(ctx, cfg, logger)

	orch, err := pipeline.New(pipeline.Options{
		Repo:    repo.NewAdRepository(dbpool),
		Users:   repo.NewUserRepository(dbpool),
		Feed:    adFeed,
		Blobs:   blobs,
		Prompts: buildPromptSynthesizer(cfg, logger),
		Images:  buildImageSynthesizer(cfg, logger),
		Videos:  buildVideoSynthesizer(cfg, logger),
		Logger:  logger,
		MaxUploadBytes: cfg.MaxUploadBytes,
		PromptRetry: retry.Policy{
			MaxAttempts: cfg.PromptRetryLimit,
			Backoff:     retry.CappedExponential(cfg.PromptRetryBackoff, 10*time.Second),
			Retryable:   providers.IsTransient,
		},
		ProviderTimeout: cfg.ProviderTimeout,
		CreditsPerAd:    cfg.CreditsPerAd,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build pipeline")
	}

	app := handlers.NewApp(cfg, logger, orch, repo.NewAdRepository(dbpool), adFeed)
	router := httpapi.NewRouter(app, cfg, staticDir)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func buildFeed(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) domain.AdFeed {
	if cfg.RedisAddr == "" {
		logger.Info().Msg("no REDIS_ADDR configured, using in-process change feed")
		return feed.NewMemoryFeed()
	}
	client, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	redisFeed, err := feed.NewRedisFeed(feed.RedisOptions{Client: client})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build redis feed")
	}
	return redisFeed
}

// buildBlobStore returns the configured store plus the directory the router
// should serve statically (empty for remote stores).
func buildBlobStore(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (storage.BlobStore, string) {
	switch cfg.StorageBackend {
	case "minio":
		store, err := storage.NewMinioStore(ctx, storage.MinioOptions{
			Endpoint:      cfg.MinioEndpoint,
			AccessKey:     cfg.MinioAccessKey,
			SecretKey:     cfg.MinioSecretKey,
			Bucket:        cfg.MinioBucket,
			UseSSL:        cfg.MinioUseSSL,
			PublicBaseURL: cfg.MinioPublicURL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build minio store")
		}
		return store, ""
	default:
		store, err := storage.NewFileStore(cfg.StorageDir, cfg.StorageBaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build filesystem store")
		}
		return store, cfg.StorageDir
	}
}

func buildPromptSynthesizer(cfg *infra.Config, logger zerolog.Logger) prompt.Synthesizer {
	switch cfg.PromptProvider {
	case "openai":
		if cfg.OpenAIAPIKey != "" {
			synth, err := prompt.NewOpenAISynthesizer(prompt.OpenAIOptions{
				APIKey:  cfg.OpenAIAPIKey,
				Model:   cfg.OpenAIModel,
				BaseURL: cfg.OpenAIBaseURL,
			})
			if err == nil {
				return synth
			}
			logger.Warn().Err(err).Msg("openai prompt synthesizer unavailable")
		}
	case "static":
	default:
		if cfg.GeminiAPIKey != "" {
			synth, err := prompt.NewGeminiSynthesizer(prompt.GeminiOptions{
				APIKey:  cfg.GeminiAPIKey,
				Model:   cfg.GeminiModel,
				BaseURL: cfg.GeminiBaseURL,
			})
			if err == nil {
				return synth
			}
			logger.Warn().Err(err).Msg("gemini prompt synthesizer unavailable")
		}
	}
	logger.Warn().Msg("falling back to static prompt synthesis")
	return prompt.NewStaticSynthesizer()
}

func buildImageSynthesizer(cfg *infra.Config, logger zerolog.Logger) image.Synthesizer {
	switch cfg.ImageProvider {
	case "qwen":
		if cfg.QwenAPIKey != "" {
			synth, err := image.NewQwenSynthesizer(image.QwenOptions{
				APIKey:  cfg.QwenAPIKey,
				Model:   cfg.QwenModel,
				BaseURL: cfg.QwenBaseURL,
			})
			if err == nil {
				return synth
			}
			logger.Warn().Err(err).Msg("qwen image synthesizer unavailable")
		}
	}
	synth, err := image.NewGeminiSynthesizer(image.GeminiOptions{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiImageModel,
		BaseURL: cfg.GeminiBaseURL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("no image synthesizer available")
	}
	return synth
}

func buildVideoSynthesizer(cfg *infra.Config, logger zerolog.Logger) video.Synthesizer {
	if cfg.ReplicateToken == "" {
		logger.Warn().Msg("no REPLICATE_API_TOKEN configured, animation disabled")
		return nil
	}
	synth, err := video.NewReplicateSynthesizer(video.ReplicateOptions{
		APIToken: cfg.ReplicateToken,
		Model:    cfg.ReplicateModel,
		BaseURL:  cfg.ReplicateBaseURL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build video synthesizer")
	}
	return synth
}
