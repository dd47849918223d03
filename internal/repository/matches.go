package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/buildhub/contract-reconciler/internal/common"
)

// Match is the single active estimate match for a contract.
type Match struct {
	ContractID       int64          `db:"contract_id"`
	EstimateItemID   string         `db:"estimate_item_id"`
	EstimateItemName string         `db:"estimate_item_name"`
	MatchType        string         `db:"match_type"`
	Confidence       float64        `db:"confidence"`
	MatchedBy        sql.NullString `db:"matched_by"`
	MatchedAt        time.Time      `db:"matched_at"`
}

// MatchRepository persists chosen matches, one per contract.
type MatchRepository interface {
	// Upsert replaces any previous match for the contract.
	Upsert(ctx context.Context, m Match) error
	GetByContract(ctx context.Context, contractID int64) (*Match, error)
}

type matchRepo struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewMatchRepository(db *sqlx.DB, logger *slog.Logger) MatchRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &matchRepo{db: db, logger: logger}
}

func (r *matchRepo) Upsert(ctx context.Context, m Match) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO estimate_matches
			(contract_id, estimate_item_id, estimate_item_name, match_type, confidence, matched_by, matched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(contract_id) DO UPDATE SET
			estimate_item_id = excluded.estimate_item_id,
			estimate_item_name = excluded.estimate_item_name,
			match_type = excluded.match_type,
			confidence = excluded.confidence,
			matched_by = excluded.matched_by,
			matched_at = excluded.matched_at`,
		m.ContractID, m.EstimateItemID, m.EstimateItemName, m.MatchType,
		m.Confidence, m.MatchedBy, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert match: %w", err)
	}
	return nil
}

func (r *matchRepo) GetByContract(ctx context.Context, contractID int64) (*Match, error) {
	var row Match
	err := r.db.GetContext(ctx, &row,
		`SELECT * FROM estimate_matches WHERE contract_id = ?`, contractID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get match: %w", err)
	}
	return &row, nil
}
