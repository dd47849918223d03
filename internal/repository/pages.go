package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// Page is one extracted page owned by a contract.
type Page struct {
	ContractID int64  `db:"contract_id"`
	PageIndex  int    `db:"page_index"`
	Text       string `db:"text"`
	Source     string `db:"source"`
}

// PageRepository persists per-page extracted text.
type PageRepository interface {
	// ReplacePages removes all pages for the contract and inserts the new
	// set, so a re-extraction cannot leave stale rows behind.
	ReplacePages(ctx context.Context, contractID int64, pages []Page) error
	ListByContract(ctx context.Context, contractID int64) ([]Page, error)
}

type pageRepo struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewPageRepository(db *sqlx.DB, logger *slog.Logger) PageRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &pageRepo{db: db, logger: logger}
}

func (r *pageRepo) ReplacePages(ctx context.Context, contractID int64, pages []Page) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM extracted_pages WHERE contract_id = ?`, contractID); err != nil {
		return fmt.Errorf("clear pages: %w", err)
	}
	for _, p := range pages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO extracted_pages (contract_id, page_index, text, source)
			 VALUES (?, ?, ?, ?)`,
			contractID, p.PageIndex, p.Text, p.Source); err != nil {
			return fmt.Errorf("insert page %d: %w", p.PageIndex, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *pageRepo) ListByContract(ctx context.Context, contractID int64) ([]Page, error) {
	var rows []Page
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM extracted_pages WHERE contract_id = ? ORDER BY page_index`, contractID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return rows, nil
}
