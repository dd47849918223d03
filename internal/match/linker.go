package match

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/buildhub/contract-reconciler/constants"
	"github.com/buildhub/contract-reconciler/internal/agents"
	"github.com/buildhub/contract-reconciler/internal/common"
	"github.com/buildhub/contract-reconciler/internal/estimates"
	"github.com/buildhub/contract-reconciler/internal/repository"
)

// StatusMissingData is returned when the contractInfo extraction lacks a
// field matching needs. It is a normal outcome, not an error.
const StatusMissingData = "missing_data"

// Outcome is the linker's tagged result: Status is one of the matcher
// statuses or missing_data; MissingFields names what was absent.
type Outcome struct {
	Status        string
	Match         *Result
	MissingFields []string
}

// Linker ties extraction output to the matcher, persists accepted
// matches and notifies the estimates board.
type Linker struct {
	agentResults repository.AgentResultRepository
	matches      repository.MatchRepository
	matcher      *Matcher
	board        estimates.Board
	logger       *slog.Logger
}

func NewLinker(
	agentResults repository.AgentResultRepository,
	matches repository.MatchRepository,
	matcher *Matcher,
	board estimates.Board,
	logger *slog.Logger,
) *Linker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Linker{
		agentResults: agentResults,
		matches:      matches,
		matcher:      matcher,
		board:        board,
		logger:       logger,
	}
}

// ProcessMatch reads the stored contractInfo result for the contract and
// drives the matcher. Only an auto-match persists anything; a
// needs-selection outcome waits for SelectMatch.
func (l *Linker) ProcessMatch(ctx context.Context, contractID int64) (Outcome, error) {
	info, missing, err := l.loadContractInfo(ctx, contractID)
	if err != nil {
		return Outcome{}, err
	}
	if len(missing) > 0 {
		l.logger.Info("link.missing_data",
			"contract_id", contractID,
			"missing_fields", strings.Join(missing, ", "),
		)
		return Outcome{Status: StatusMissingData, MissingFields: missing}, nil
	}

	res, err := l.matcher.FindMatch(ctx, *info.ProjectName, *info.GeneralContractor)
	if err != nil {
		return Outcome{}, fmt.Errorf("find match: %w", err)
	}

	if res.Status == StatusAutoMatched {
		if err := l.persistAndNotify(ctx, contractID, *res.Estimate, constants.MatchAuto, res.Confidence, ""); err != nil {
			return Outcome{}, err
		}
	}
	return Outcome{Status: res.Status, Match: &res}, nil
}

// SelectMatch records a human's explicit choice as a manual match and
// performs the same board notification as the auto path.
func (l *Linker) SelectMatch(ctx context.Context, contractID int64, item estimates.Item, confidence float64, matchedBy string) error {
	if matchedBy == "" {
		return common.NewAppError("INVALID_SELECTION", "matchedBy is required for manual matches", common.ErrInvalidInput)
	}
	return l.persistAndNotify(ctx, contractID, Candidate{
		ItemID:        item.ID,
		ItemName:      item.Name,
		ItemURL:       item.URL,
		Contractor:    item.Contractor,
		CombinedScore: confidence,
	}, constants.MatchManual, confidence, matchedBy)
}

// loadContractInfo returns the decoded contractInfo payload plus the
// names of any missing required fields. An absent or failed agent result
// reports both fields missing rather than erroring.
func (l *Linker) loadContractInfo(ctx context.Context, contractID int64) (*agents.ContractInfo, []string, error) {
	row, err := l.agentResults.Get(ctx, contractID, agents.AgentContractInfo)
	if errors.Is(err, common.ErrNotFound) {
		return nil, []string{"projectName", "generalContractor"}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load contractInfo result: %w", err)
	}
	if row.Status != constants.AgentSuccess || !row.Data.Valid {
		return nil, []string{"projectName", "generalContractor"}, nil
	}

	info, err := agents.DecodeContractInfo([]byte(row.Data.String))
	if err != nil {
		return nil, nil, err
	}

	var missing []string
	if info.ProjectName == nil || strings.TrimSpace(*info.ProjectName) == "" {
		missing = append(missing, "projectName")
	}
	if info.GeneralContractor == nil || strings.TrimSpace(*info.GeneralContractor) == "" {
		missing = append(missing, "generalContractor")
	}
	return info, missing, nil
}

func (l *Linker) persistAndNotify(ctx context.Context, contractID int64, cand Candidate, matchType string, confidence float64, matchedBy string) error {
	row := repository.Match{
		ContractID:       contractID,
		EstimateItemID:   cand.ItemID,
		EstimateItemName: cand.ItemName,
		MatchType:        matchType,
		Confidence:       confidence,
	}
	if matchedBy != "" {
		row.MatchedBy = sql.NullString{String: matchedBy, Valid: true}
	}
	if err := l.matches.Upsert(ctx, row); err != nil {
		return fmt.Errorf("persist match: %w", err)
	}
	if err := l.board.MarkLinked(ctx, cand.ItemID, contractID); err != nil {
		return fmt.Errorf("notify board: %w", err)
	}
	l.logger.Info("link.persisted",
		"contract_id", contractID,
		"estimate_id", cand.ItemID,
		"match_type", matchType,
		"confidence", confidence,
	)
	return nil
}
