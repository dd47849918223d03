package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/buildhub/contract-reconciler/internal/common"
)

// AgentResult is one stored extraction-agent outcome. Data is an opaque
// JSON payload at this boundary; the schema lives in the agent layer and
// only consumers that know the specific agent's shape decode it.
type AgentResult struct {
	ContractID   int64          `db:"contract_id"`
	AgentName    string         `db:"agent_name"`
	Data         sql.NullString `db:"data"`
	Status       string         `db:"status"`
	ErrorMessage sql.NullString `db:"error_message"`
	DurationMS   int64          `db:"duration_ms"`
}

// AgentResultRepository persists per-agent extraction outcomes.
type AgentResultRepository interface {
	// Upsert stores the outcome for (contract, agent); re-running replaces.
	Upsert(ctx context.Context, res AgentResult) error
	Get(ctx context.Context, contractID int64, agentName string) (*AgentResult, error)
	ListByContract(ctx context.Context, contractID int64) ([]AgentResult, error)
}

type agentResultRepo struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewAgentResultRepository(db *sqlx.DB, logger *slog.Logger) AgentResultRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &agentResultRepo{db: db, logger: logger}
}

func (r *agentResultRepo) Upsert(ctx context.Context, res AgentResult) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO agent_results (contract_id, agent_name, data, status, error_message, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(contract_id, agent_name) DO UPDATE SET
			data = excluded.data,
			status = excluded.status,
			error_message = excluded.error_message,
			duration_ms = excluded.duration_ms`,
		res.ContractID, res.AgentName, res.Data, res.Status, res.ErrorMessage, res.DurationMS)
	if err != nil {
		return fmt.Errorf("upsert agent result %q: %w", res.AgentName, err)
	}
	return nil
}

func (r *agentResultRepo) Get(ctx context.Context, contractID int64, agentName string) (*AgentResult, error) {
	var row AgentResult
	err := r.db.GetContext(ctx, &row,
		`SELECT * FROM agent_results WHERE contract_id = ? AND agent_name = ?`,
		contractID, agentName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get agent result: %w", err)
	}
	return &row, nil
}

func (r *agentResultRepo) ListByContract(ctx context.Context, contractID int64) ([]AgentResult, error) {
	var rows []AgentResult
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM agent_results WHERE contract_id = ? ORDER BY agent_name`, contractID)
	if err != nil {
		return nil, fmt.Errorf("list agent results: %w", err)
	}
	return rows, nil
}
