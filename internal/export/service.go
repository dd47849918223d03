package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/buildhub/contract-reconciler/constants"
	"github.com/buildhub/contract-reconciler/internal/repository"
)

// Service is a tiny façade over repositories that produces an XLSX
// reconciliation report for operators.
type Service struct {
	contracts repository.ContractRepository
	results   repository.AgentResultRepository
	matches   repository.MatchRepository
	logger    *slog.Logger
}

func NewService(
	contracts repository.ContractRepository,
	results repository.AgentResultRepository,
	matches repository.MatchRepository,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{contracts: contracts, results: results, matches: matches, logger: logger}
}

// ExportReconciliationXLSX returns a workbook with one row per contract:
// ledger status, agent success/error counts, and the current match.
func (s *Service) ExportReconciliationXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	rows, err := s.contracts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Contracts"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Filename",
		"Status",
		"Agents OK",
		"Agents Failed",
		"Match Type",
		"Estimate",
		"Confidence",
		"Matched At",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	rowIdx := 2
	for _, c := range rows {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, rowIdx)
			_ = f.SetCellValue(sheet, cell, v)
		}

		ok, failed := 0, 0
		if results, err := s.results.ListByContract(ctx, c.ID); err == nil {
			for _, r := range results {
				if r.Status == constants.AgentSuccess {
					ok++
				} else {
					failed++
				}
			}
		}

		write(1, c.Filename)
		write(2, c.Status)
		write(3, ok)
		write(4, failed)

		if m, err := s.matches.GetByContract(ctx, c.ID); err == nil {
			write(5, m.MatchType)
			write(6, m.EstimateItemName)
			write(7, fmt.Sprintf("%.2f", m.Confidence))
			write(8, m.MatchedAt.Format("2006-01-02 15:04"))
		}

		rowIdx++
	}

	_ = f.SetColWidth(sheet, "A", "A", 40)
	_ = f.SetColWidth(sheet, "B", "B", 12)
	_ = f.SetColWidth(sheet, "E", "E", 12)
	_ = f.SetColWidth(sheet, "F", "F", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
