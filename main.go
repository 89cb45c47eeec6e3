package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jupark12/fiado/config"
	"github.com/jupark12/fiado/metrics"
	"github.com/jupark12/fiado/queue"
	"github.com/jupark12/fiado/server"
	"github.com/jupark12/fiado/store"
)

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// openStore connects to Postgres when a URL is configured and falls back to memory
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		return store.NewMemory(), nil
	}

	pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, err
	}
	logger.Info("connected to database")
	return pg, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg.LogDevelopment)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if !cfg.LogDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer st.Close()

	importQueue, err := queue.NewImportQueue(cfg.DataDir, logger)
	if err != nil {
		logger.Fatal("failed to create import queue", zap.Error(err))
	}
	if err := importQueue.LoadJobs(); err != nil {
		logger.Warn("failed to load existing jobs", zap.Error(err))
	}

	srv := server.NewServer(st, importQueue, metrics.New(), logger, server.Options{
		HTTPAddr:           cfg.HTTPAddr,
		UploadDir:          cfg.UploadDir,
		NumWorkers:         cfg.NumWorkers,
		WorkerPollInterval: cfg.WorkerPollInterval,
		SuggestionLimit:    cfg.SuggestionLimit,
		PrometheusEnabled:  cfg.PrometheusEnabled,
		PortalBaseURL:      cfg.PortalBaseURL,
		EntrySessionTTL:    cfg.EntrySessionTTL,
	})

	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return
	}
	logger.Info("shut down gracefully")
}
