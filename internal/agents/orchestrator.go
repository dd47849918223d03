package agents

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/buildhub/contract-reconciler/constants"
	"github.com/buildhub/contract-reconciler/internal/repository"
)

// Result is one agent's outcome, success or error.
type Result struct {
	AgentName    string
	Status       string // constants.AgentSuccess | constants.AgentError
	Data         json.RawMessage
	ErrorMessage string
	Duration     time.Duration
}

// Summary aggregates a full orchestrator run. WallTime is dispatch to
// last agent finishing, not the sum of per-agent durations.
type Summary struct {
	AgentCount int
	Successes  int
	Errors     int
	WallTime   time.Duration
}

// Orchestrator fans the seven extraction agents out concurrently with
// all-settled semantics: one agent's failure never cancels or blocks the
// others, and the run itself only errors on storage problems.
type Orchestrator struct {
	caller  Caller
	results repository.AgentResultRepository
	timeout time.Duration // per-agent; a timeout becomes a stored error
	logger  *slog.Logger
}

func NewOrchestrator(caller Caller, results repository.AgentResultRepository, timeout time.Duration, logger *slog.Logger) *Orchestrator {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		caller:  caller,
		results: results,
		timeout: timeout,
		logger:  logger,
	}
}

// RunAll executes every agent over the document text, stores each
// outcome individually, and returns the name→result map plus a summary.
func (o *Orchestrator) RunAll(ctx context.Context, contractID int64, documentText string) (map[string]Result, Summary, error) {
	defs := Definitions()
	start := time.Now()

	o.logger.Info("agents.run.start",
		"contract_id", contractID,
		"agents", len(defs),
		"text_len", len(documentText),
	)

	out := make([]Result, len(defs))
	var wg sync.WaitGroup
	for i, def := range defs {
		wg.Add(1)
		go func(i int, def Definition) {
			defer wg.Done()
			out[i] = o.runOne(ctx, def, documentText)
		}(i, def)
	}
	wg.Wait()
	wall := time.Since(start)

	results := make(map[string]Result, len(defs))
	summary := Summary{AgentCount: len(defs), WallTime: wall}
	for _, res := range out {
		results[res.AgentName] = res
		if res.Status == constants.AgentSuccess {
			summary.Successes++
		} else {
			summary.Errors++
		}
		if err := o.store(ctx, contractID, res); err != nil {
			return results, summary, err
		}
	}

	o.logger.Info("agents.run.done",
		"contract_id", contractID,
		"agents", summary.AgentCount,
		"successes", summary.Successes,
		"errors", summary.Errors,
		"elapsed_ms", wall.Milliseconds(),
	)
	return results, summary, nil
}

// runOne calls one agent and validates its output. API failures, schema
// mismatches and timeouts all land on the same error path.
func (o *Orchestrator) runOne(ctx context.Context, def Definition, documentText string) Result {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	raw, err := o.caller.Call(ctx, def.SystemPrompt, documentText)
	if err == nil {
		err = ValidateJSONAgainstSchema(def.Schema, raw)
	}
	dur := time.Since(start)

	if err != nil {
		o.logger.Warn("agents.agent.failed",
			"agent", def.Name,
			"error", err,
			"elapsed_ms", dur.Milliseconds(),
		)
		return Result{
			AgentName:    def.Name,
			Status:       constants.AgentError,
			ErrorMessage: err.Error(),
			Duration:     dur,
		}
	}

	return Result{
		AgentName: def.Name,
		Status:    constants.AgentSuccess,
		Data:      raw,
		Duration:  dur,
	}
}

func (o *Orchestrator) store(ctx context.Context, contractID int64, res Result) error {
	row := repository.AgentResult{
		ContractID: contractID,
		AgentName:  res.AgentName,
		Status:     res.Status,
		DurationMS: res.Duration.Milliseconds(),
	}
	if res.Status == constants.AgentSuccess {
		row.Data = sql.NullString{String: string(res.Data), Valid: true}
	} else {
		row.ErrorMessage = sql.NullString{String: res.ErrorMessage, Valid: true}
	}
	return o.results.Upsert(ctx, row)
}
