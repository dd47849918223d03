package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/buildhub/contract-reconciler/constants"
	"github.com/buildhub/contract-reconciler/internal/agents"
	"github.com/buildhub/contract-reconciler/internal/common"
	"github.com/buildhub/contract-reconciler/internal/estimates"
	"github.com/buildhub/contract-reconciler/internal/extract"
	"github.com/buildhub/contract-reconciler/internal/match"
	"github.com/buildhub/contract-reconciler/internal/ocr"
	"github.com/buildhub/contract-reconciler/internal/pipeline"
	"github.com/buildhub/contract-reconciler/internal/repository"
)

// runcontract pushes a single PDF through the pipeline without the
// watcher. Useful for re-runs and debugging a specific contract.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runcontract <path-to-pdf>")
		os.Exit(2)
	}
	path := os.Args[1]

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

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

	contractID, err := contractsRepo.MarkProcessed(ctx, path, constants.ContractProcessing)
	if err != nil {
		logger.Error("mark processed", "path", path, "error", err)
		os.Exit(1)
	}

	start := time.Now()
	if err := processor.ProcessContract(ctx, contractID, path); err != nil {
		logger.Error("pipeline failed",
			"contract_id", contractID,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		os.Exit(1)
	}

	logger.Info("pipeline OK",
		"contract_id", contractID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
