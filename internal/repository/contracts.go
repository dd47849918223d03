package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/buildhub/contract-reconciler/constants"
	"github.com/buildhub/contract-reconciler/internal/common"
)

// Contract is one row in the processed-contract ledger.
type Contract struct {
	ID        int64     `db:"id"`
	Filename  string    `db:"filename"`
	FilePath  string    `db:"file_path"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

// ContractRepository is the dedup/ledger behavior the watch gate and
// pipeline depend on. The dedup key is the filename only, not the full
// path or a content hash: source directories are flat per deployment, so
// two files with the same basename are the same contract. Strengthening
// this to a content hash would change observable behavior.
type ContractRepository interface {
	IsProcessed(ctx context.Context, path string) (bool, error)
	// MarkProcessed is idempotent: insert-or-ignore then select, so calling
	// it N times with the same filename yields the same id and one row.
	MarkProcessed(ctx context.Context, path string, status constants.ContractStatus) (int64, error)
	UpdateStatus(ctx context.Context, path string, status constants.ContractStatus) error
	GetByID(ctx context.Context, id int64) (*Contract, error)
	List(ctx context.Context) ([]Contract, error)
}

type contractRepo struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewContractRepository(db *sqlx.DB, logger *slog.Logger) ContractRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &contractRepo{db: db, logger: logger}
}

func (r *contractRepo) IsProcessed(ctx context.Context, path string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(1) FROM contracts WHERE filename = ?`, filepath.Base(path))
	if err != nil {
		return false, fmt.Errorf("query ledger: %w", err)
	}
	return n > 0, nil
}

func (r *contractRepo) MarkProcessed(ctx context.Context, path string, status constants.ContractStatus) (int64, error) {
	filename := filepath.Base(path)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO contracts (filename, file_path, status) VALUES (?, ?, ?)
		 ON CONFLICT(filename) DO NOTHING`,
		filename, path, string(status))
	if err != nil {
		return 0, fmt.Errorf("insert contract: %w", err)
	}

	var id int64
	if err := r.db.GetContext(ctx, &id,
		`SELECT id FROM contracts WHERE filename = ?`, filename); err != nil {
		return 0, fmt.Errorf("select contract id: %w", err)
	}
	return id, nil
}

func (r *contractRepo) UpdateStatus(ctx context.Context, path string, status constants.ContractStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE contracts SET status = ? WHERE filename = ?`,
		string(status), filepath.Base(path))
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *contractRepo) GetByID(ctx context.Context, id int64) (*Contract, error) {
	var row Contract
	err := r.db.GetContext(ctx, &row, `SELECT * FROM contracts WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get contract: %w", err)
	}
	return &row, nil
}

func (r *contractRepo) List(ctx context.Context) ([]Contract, error) {
	var rows []Contract
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM contracts ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	return rows, nil
}
