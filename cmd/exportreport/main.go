package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/buildhub/contract-reconciler/internal/common"
	"github.com/buildhub/contract-reconciler/internal/export"
	"github.com/buildhub/contract-reconciler/internal/repository"
)

// exportreport writes the reconciliation workbook for the whole ledger.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "exportreport <output.xlsx>")
		os.Exit(2)
	}
	outPath := os.Args[1]

	cfg := common.LoadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
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

	svc := export.NewService(
		repository.NewContractRepository(db, logger),
		repository.NewAgentResultRepository(db, logger),
		repository.NewMatchRepository(db, logger),
		logger,
	)

	data, err := svc.ExportReconciliationXLSX(ctx)
	if err != nil {
		logger.Error("build report", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		logger.Error("write report", "path", outPath, "error", err)
		os.Exit(1)
	}

	logger.Info("report written", "path", outPath, "bytes", len(data))
}
