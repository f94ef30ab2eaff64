package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chatmesh/chatmesh/internal/agent"
	"github.com/chatmesh/chatmesh/internal/api"
	"github.com/chatmesh/chatmesh/internal/archive"
	archives3 "github.com/chatmesh/chatmesh/internal/archive/s3"
	"github.com/chatmesh/chatmesh/internal/attachment"
	"github.com/chatmesh/chatmesh/internal/config"
	"github.com/chatmesh/chatmesh/internal/docindex"
	"github.com/chatmesh/chatmesh/internal/history"
	historypostgres "github.com/chatmesh/chatmesh/internal/history/postgres"
	"github.com/chatmesh/chatmesh/internal/llm"
	"github.com/chatmesh/chatmesh/internal/observability"
	"github.com/chatmesh/chatmesh/internal/sqltool"
	"github.com/chatmesh/chatmesh/internal/tool"
	"github.com/chatmesh/chatmesh/internal/websearch"
)

func main() {
	cfg, err := config.LoadFromEnv("chatmesh-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	completer, err := llm.New(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize llm client", slog.Any("error", err))
		os.Exit(1)
	}

	var index docindex.Index
	if cfg.Index.BaseURL != "" {
		index, err = docindex.NewHTTPIndex(docindex.HTTPIndexConfig{
			BaseURL:   cfg.Index.BaseURL,
			APIKey:    cfg.Index.APIKey,
			IndexName: cfg.Index.IndexName,
			Namespace: cfg.Index.Namespace,
			Timeout:   cfg.Index.Timeout,
		})
		if err != nil {
			logger.Error("failed to initialize document index", slog.Any("error", err))
			os.Exit(1)
		}
	}
	chunker := docindex.Chunker{Size: cfg.Limits.ChunkSize, Overlap: cfg.Limits.ChunkOverlap}

	var docStore archive.Store
	if cfg.Archive.Enabled {
		docStore, err = archives3.New(context.Background(), archives3.Config{
			Endpoint:         cfg.Archive.Endpoint,
			Region:           cfg.Archive.Region,
			Bucket:           cfg.Archive.Bucket,
			AccessKeyID:      cfg.Archive.AccessKeyID,
			SecretAccessKey:  cfg.Archive.SecretAccessKey,
			UseSSL:           cfg.Archive.UseSSL,
			AutoCreateBucket: cfg.Archive.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize document archive", slog.Any("error", err))
			os.Exit(1)
		}
	}

	var turnStore history.Store
	readiness := []api.ReadinessCheck{api.CheckLLMConfig(cfg)}
	if cfg.History.Enabled {
		historyDB, err := historypostgres.Open(context.Background(), historypostgres.DBConfig{
			DSN:             cfg.History.DSN,
			MaxOpenConns:    cfg.History.MaxOpenConns,
			MaxIdleConns:    cfg.History.MaxIdleConns,
			ConnMaxIdleTime: cfg.History.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.History.ConnMaxLifetime,
		})
		if err != nil {
			logger.Error("failed to open history db", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = historyDB.Close() }()
		repo := historypostgres.NewRepository(historyDB)
		turnStore = repo
		readiness = append(readiness, repo.HealthCheck)
	}

	var searcher tool.Searcher
	if cfg.Search.Enabled {
		searcher, err = websearch.New(websearch.Config{
			BaseURL:    cfg.Search.BaseURL,
			APIKey:     cfg.Search.APIKey,
			MaxResults: cfg.Search.MaxResults,
			Timeout:    cfg.Search.Timeout,
		})
		if err != nil {
			logger.Error("failed to initialize web search client", slog.Any("error", err))
			os.Exit(1)
		}
	}

	sqlTool := &sqltool.Tool{
		Completer: completer,
		Model:     cfg.LLM.ChatModel,
		Logger:    logger,
		RowLimit:  cfg.Limits.QueryRowLimit,
	}
	generalTool := &tool.GeneralTool{
		Completer: completer,
		Model:     cfg.LLM.ChatModel,
		Searcher:  searcher,
		Logger:    logger,
	}

	registry := tool.NewRegistry()
	registry.Register(attachment.KindCSV, sqlTool)
	registry.Register(attachment.KindExcel, sqlTool)
	registry.Register(attachment.KindImage, &tool.VisionTool{
		Completer: completer,
		Model:     cfg.LLM.VisionModel,
		Logger:    logger,
	})
	registry.Register(attachment.KindAudio, &tool.AudioTool{
		Completer: completer,
		Model:     cfg.LLM.AudioModel,
		Logger:    logger,
	})
	if index != nil {
		registry.Register(attachment.KindPDF, &tool.DocTool{
			Completer: completer,
			Model:     cfg.LLM.ChatModel,
			Index:     index,
			Chunker:   chunker,
			TopK:      cfg.Index.TopK,
			Logger:    logger,
		})
		readiness = append(readiness, api.CheckIndexConfig(cfg))
	}

	conversationAgent := agent.New(registry, generalTool, completer, turnStore, agent.Config{
		ChatModel:   cfg.LLM.ChatModel,
		RecentTurns: cfg.History.RecentTurns,
	}, logger)

	deps := api.Dependencies{
		Logger:            logger,
		Agent:             conversationAgent,
		Index:             index,
		Chunker:           chunker,
		Archive:           docStore,
		MaxUploadBytes:    cfg.Limits.MaxUploadBytes,
		Readiness:         api.CombineReadinessChecks(readiness...),
		DependencyTimeout: time.Second,
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
