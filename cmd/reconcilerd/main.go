package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/buildhub/contract-reconciler/internal/agents"
	"github.com/buildhub/contract-reconciler/internal/common"
	"github.com/buildhub/contract-reconciler/internal/estimates"
	"github.com/buildhub/contract-reconciler/internal/extract"
	"github.com/buildhub/contract-reconciler/internal/ingest"
	"github.com/buildhub/contract-reconciler/internal/match"
	"github.com/buildhub/contract-reconciler/internal/ocr"
	"github.com/buildhub/contract-reconciler/internal/pipeline"
	"github.com/buildhub/contract-reconciler/internal/repository"
)

func main() {
	cfg := common.LoadConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(cfg.Database.Path, logger)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.Error("close database", "error", cerr)
		}
	}()

	contractsRepo := repository.NewContractRepository(db, logger)
	pagesRepo := repository.NewPageRepository(db, logger)
	resultsRepo := repository.NewAgentResultRepository(db, logger)
	matchesRepo := repository.NewMatchRepository(db, logger)

	ocrClient, err := ocr.NewClient(ocr.Config{
		APIKey:  cfg.OCR.APIKey,
		BaseURL: cfg.OCR.BaseURL,
		Model:   cfg.OCR.Model,
		Timeout: cfg.OCR.Timeout,
	}, logger)
	if err != nil {
		logger.Error("build ocr client", "error", err)
		os.Exit(1)
	}

	agentClient, err := agents.NewClient(agents.Config{
		APIKey:      cfg.Agents.APIKey,
		BaseURL:     cfg.Agents.BaseURL,
		Model:       cfg.Agents.Model,
		Temperature: cfg.Agents.Temperature,
		Timeout:     cfg.Agents.Timeout,
	}, logger)
	if err != nil {
		logger.Error("build agent client", "error", err)
		os.Exit(1)
	}

	estimatesClient, err := estimates.NewClient(estimates.Config{
		APIToken: cfg.Estimates.APIToken,
		BaseURL:  cfg.Estimates.BaseURL,
		Timeout:  cfg.Estimates.Timeout,
	}, logger)
	if err != nil {
		logger.Error("build estimates client", "error", err)
		os.Exit(1)
	}

	extractor := extract.NewExtractor(ocrClient, logger)
	orch := agents.NewOrchestrator(agentClient, resultsRepo, cfg.Agents.Timeout, logger)
	matcher := match.NewMatcher(estimatesClient, logger)
	linker := match.NewLinker(resultsRepo, matchesRepo, matcher, estimatesClient, logger)
	processor := pipeline.NewProcessor(contractsRepo, pagesRepo, extractor, orch, linker, logger)

	watcher, err := ingest.NewWatcher(ingest.Config{
		Dir:         cfg.Watch.Dir,
		Debounce:    cfg.Watch.Debounce,
		InitialScan: cfg.Watch.InitialScan,
	}, contractsRepo, processor.ProcessContract, logger)
	if err != nil {
		logger.Error("build watcher", "error", err)
		os.Exit(1)
	}

	if err := watcher.Start(ctx); err != nil {
		logger.Error("start watcher", "error", err)
		os.Exit(1)
	}

	logger.Info("reconciler running", "watch_dir", cfg.Watch.Dir)
	<-ctx.Done()

	logger.Info("shutting down...")
	if err := watcher.Stop(); err != nil {
		logger.Error("stop watcher", "error", err)
	}
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
