package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/buildhub/contract-reconciler/constants"
	"github.com/buildhub/contract-reconciler/internal/agents"
	"github.com/buildhub/contract-reconciler/internal/extract"
	"github.com/buildhub/contract-reconciler/internal/match"
	"github.com/buildhub/contract-reconciler/internal/repository"
)

// Processor drives one contract through extract → agents → match.
// Stages are strictly sequential per contract; each reads the previous
// stage's persisted output.
type Processor struct {
	Contracts repository.ContractRepository
	Pages     repository.PageRepository
	Extractor extract.TextExtractor
	Agents    *agents.Orchestrator
	Linker    *match.Linker
	Logger    *slog.Logger
}

func NewProcessor(
	contracts repository.ContractRepository,
	pages repository.PageRepository,
	extractor extract.TextExtractor,
	orch *agents.Orchestrator,
	linker *match.Linker,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		Contracts: contracts,
		Pages:     pages,
		Extractor: extractor,
		Agents:    orch,
		Linker:    linker,
		Logger:    logger,
	}
}

// ProcessContract runs the whole pipeline for one ledger entry. An
// unrecoverable stage failure marks the contract failed; data-quality
// outcomes (missing_data, no_match, needs_selection) still complete.
func (p *Processor) ProcessContract(ctx context.Context, contractID int64, path string) error {
	// 1) Text extraction (digital with OCR fallback)
	res, err := p.Extractor.Extract(ctx, path)
	if err != nil {
		p.fail(ctx, path, contractID, "extract", err)
		return err
	}
	p.Logger.Info("pipeline.extract.ok",
		"contract_id", contractID,
		"method", res.Method,
		"pages", res.TotalPages,
		"elapsed_ms", res.ProcessingTime.Milliseconds(),
	)

	// 2) Persist pages (replace semantics for idempotent re-runs)
	pages := make([]repository.Page, len(res.Pages))
	for i, pg := range res.Pages {
		pages[i] = repository.Page{
			ContractID: contractID,
			PageIndex:  pg.PageIndex,
			Text:       pg.Text,
			Source:     pg.Source,
		}
	}
	if err := p.Pages.ReplacePages(ctx, contractID, pages); err != nil {
		p.fail(ctx, path, contractID, "store_pages", err)
		return err
	}

	// 3) Multi-agent extraction over the joined document text
	_, summary, err := p.Agents.RunAll(ctx, contractID, extract.JoinPages(res.Pages))
	if err != nil {
		p.fail(ctx, path, contractID, "agents", err)
		return err
	}
	p.Logger.Info("pipeline.agents.ok",
		"contract_id", contractID,
		"successes", summary.Successes,
		"errors", summary.Errors,
		"elapsed_ms", summary.WallTime.Milliseconds(),
	)

	// 4) Match against the estimate pool
	outcome, err := p.Linker.ProcessMatch(ctx, contractID)
	if err != nil {
		p.fail(ctx, path, contractID, "match", err)
		return err
	}
	p.Logger.Info("pipeline.match.done",
		"contract_id", contractID,
		"status", outcome.Status,
	)

	if err := p.Contracts.UpdateStatus(ctx, path, constants.ContractCompleted); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

func (p *Processor) fail(ctx context.Context, path string, contractID int64, stage string, cause error) {
	p.Logger.Error("pipeline.stage.failed",
		"contract_id", contractID,
		"stage", stage,
		"error", cause,
	)
	if err := p.Contracts.UpdateStatus(ctx, path, constants.ContractFailed); err != nil {
		p.Logger.Error("pipeline.mark_failed.failed", "contract_id", contractID, "error", err)
	}
}
