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

	"tryonserver/internal/adapter/repo"
	"tryonserver/internal/http/handlers"
	"tryonserver/internal/http/httpapi"
	"tryonserver/internal/infra"
	"tryonserver/internal/obs"
	"tryonserver/internal/orchestrator"
	"tryonserver/internal/providers/youcam"
	"tryonserver/internal/relocate"
	"tryonserver/internal/storage"
	"tryonserver/internal/vision"
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

	if err := infra.Migrate(ctx, dbpool); err != nil {
		logger.Fatal().Err(err).Msg("schema migration failed")
	}

	var blobs storage.BlobStore
	if cfg.StorageBackend == "minio" {
		blobs, err = storage.NewMinioStore(storage.MinioOptions{
			Endpoint:        cfg.MinioEndpoint,
			AccessKeyID:     cfg.MinioAccessKey,
			SecretAccessKey: cfg.MinioSecretKey,
			Bucket:          cfg.MinioBucket,
			UseSSL:          cfg.MinioUseSSL,
			PublicBaseURL:   cfg.MinioPublicBaseURL,
		})
	} else {
		blobs, err = storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize blob store")
	}

	gateway := youcam.NewClient(youcam.Options{
		APIKey:         cfg.YouCamAPIKey,
		BaseURL:        cfg.YouCamBaseURL,
		Logger:         &logger,
		RequestTimeout: cfg.ProviderTimeout,
	})
	relocator, err := relocate.NewService(relocate.Options{
		Store:          blobs,
		Logger:         &logger,
		RequestTimeout: cfg.ProviderTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize relocation service")
	}

	tasks := repo.NewTaskRepository(dbpool)
	products := repo.NewProductRepository(dbpool)

	orch, err := orchestrator.NewOrchestrator(orchestrator.Options{
		Tasks:      tasks,
		Products:   products,
		Gateway:    gateway,
		Relocator:  relocator,
		Logger:     logger,
		HTTPClient: &http.Client{Timeout: cfg.ProviderTimeout},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize orchestrator")
	}

	obs.Register()

	app := &handlers.App{
		Config:       cfg,
		Logger:       logger,
		Orchestrator: orch,
		Gateway:      gateway,
		Products:     products,
		Blobs:        blobs,
		Vision: vision.NewAnalyzer(vision.Options{
			APIKey:  cfg.VisionAPIKey,
			Model:   cfg.VisionModel,
			BaseURL: cfg.VisionBaseURL,
			Logger:  &logger,
		}),
	}

	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app))

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
