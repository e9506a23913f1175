package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/wikiai/backend/internal/api"
	"github.com/wikiai/backend/internal/chat"
	"github.com/wikiai/backend/internal/docgen"
	"github.com/wikiai/backend/internal/ingestion"
	"github.com/wikiai/backend/internal/intent"
	"github.com/wikiai/backend/internal/llm"
	"github.com/wikiai/backend/internal/metrics"
	"github.com/wikiai/backend/internal/sources"
	"github.com/wikiai/backend/internal/storage/mongo"
	"github.com/wikiai/backend/internal/storage/sqlite"
	"github.com/wikiai/backend/pkg/config"
	appLogger "github.com/wikiai/backend/pkg/logger"
)

// store is the lifecycle of a message store on top of what the orchestrator uses.
type store interface {
	chat.Store
	InitSchema(ctx context.Context) error
	Close() error
}

func openStore(ctx context.Context, cfg *config.Config) (store, error) {
	switch cfg.Storage.Driver {
	case "mongo":
		client, err := mongo.NewClient(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "sqlite":
		client, err := sqlite.NewClient(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting WikiAI API Server", zap.String("storage", cfg.Storage.Driver))

	metrics.Init()

	ctx := context.Background()

	messageStore, err := openStore(ctx, cfg)
	if err != nil {
		appLogger.Fatal("Failed to open message store", zap.Error(err))
	}

	err = messageStore.InitSchema(ctx)
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	llmClient := llm.NewClient(cfg.LLM, metrics.RecordCircuitState)
	router := intent.NewRouter(cfg.Assistant.Audience, cfg.LLM.Model, cfg.LLM.IntentModels)
	orchestrator := chat.NewOrchestrator(messageStore, llmClient, router)

	app := api.NewServer(cfg, api.Services{
		Chat:      orchestrator,
		Sources:   sources.NewAnalyzer(sources.NewFetcher(10 * time.Second)),
		Renderer:  docgen.NewRenderer(cfg.Assistant.ProductName),
		Extractor: ingestion.NewExtractor(cfg.Upload.TempDir),
	}, api.Options{RequestLog: true})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLogger.Error("Server shutdown failed", zap.Error(err))
	}
	if err := messageStore.Close(); err != nil {
		appLogger.Error("Failed to close message store", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
