package match

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/buildhub/contract-reconciler/constants"
	"github.com/buildhub/contract-reconciler/internal/agents"
	"github.com/buildhub/contract-reconciler/internal/common"
	"github.com/buildhub/contract-reconciler/internal/estimates"
	"github.com/buildhub/contract-reconciler/internal/repository"
)

type fakeBoard struct {
	itemIDs     []string
	contractIDs []int64
}

func (f *fakeBoard) MarkLinked(_ context.Context, itemID string, contractID int64) error {
	f.itemIDs = append(f.itemIDs, itemID)
	f.contractIDs = append(f.contractIDs, contractID)
	return nil
}

type linkerFixture struct {
	linker  *Linker
	results repository.AgentResultRepository
	matches repository.MatchRepository
	board   *fakeBoard
}

func newLinkerFixture(t *testing.T, src estimates.Source) linkerFixture {
	t.Helper()
	db, err := repository.OpenInMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	results := repository.NewAgentResultRepository(db, nil)
	matches := repository.NewMatchRepository(db, nil)
	board := &fakeBoard{}
	linker := NewLinker(results, matches, NewMatcher(src, nil), board, nil)
	return linkerFixture{linker: linker, results: results, matches: matches, board: board}
}

func storeContractInfo(t *testing.T, results repository.AgentResultRepository, contractID int64, data string) {
	t.Helper()
	err := results.Upsert(context.Background(), repository.AgentResult{
		ContractID: contractID,
		AgentName:  agents.AgentContractInfo,
		Status:     constants.AgentSuccess,
		Data:       sql.NullString{String: data, Valid: true},
	})
	if err != nil {
		t.Fatalf("store contractInfo: %v", err)
	}
}

func TestProcessMatchAutoPersistsAndNotifies(t *testing.T) {
	fx := newLinkerFixture(t, &fakeSource{
		byName: []estimates.Item{
			{ID: "e1", Name: "Main Street Plaza - Acme Builders LLC", Contractor: "Acme Builders LLC"},
		},
	})
	storeContractInfo(t, fx.results, 1, `{"projectName":"Main St Plaza","generalContractor":"Acme Builders"}`)

	out, err := fx.linker.ProcessMatch(context.Background(), 1)
	if err != nil {
		t.Fatalf("ProcessMatch: %v", err)
	}
	if out.Status != StatusAutoMatched {
		t.Fatalf("status = %q, want %q", out.Status, StatusAutoMatched)
	}

	row, err := fx.matches.GetByContract(context.Background(), 1)
	if err != nil {
		t.Fatalf("get persisted match: %v", err)
	}
	if row.EstimateItemID != "e1" || row.MatchType != constants.MatchAuto {
		t.Errorf("persisted match = %+v, want auto match to e1", row)
	}
	if row.MatchedBy.Valid {
		t.Errorf("auto match has matched_by %q, want none", row.MatchedBy.String)
	}
	if row.Confidence < AutoMatchThreshold {
		t.Errorf("persisted confidence = %v, want >= %v", row.Confidence, AutoMatchThreshold)
	}
	if len(fx.board.itemIDs) != 1 || fx.board.itemIDs[0] != "e1" || fx.board.contractIDs[0] != 1 {
		t.Errorf("board notified with %v/%v, want one call for e1/1", fx.board.itemIDs, fx.board.contractIDs)
	}
}

func TestProcessMatchNeedsSelectionPersistsNothing(t *testing.T) {
	fx := newLinkerFixture(t, &fakeSource{
		byName: []estimates.Item{{ID: "e1", Name: "Riverside Tower"}},
	})
	storeContractInfo(t, fx.results, 1, `{"projectName":"Riverside Plaza","generalContractor":"Acme Builders"}`)

	out, err := fx.linker.ProcessMatch(context.Background(), 1)
	if err != nil {
		t.Fatalf("ProcessMatch: %v", err)
	}
	if out.Status != StatusNeedsSelection {
		t.Fatalf("status = %q, want %q", out.Status, StatusNeedsSelection)
	}

	if _, err := fx.matches.GetByContract(context.Background(), 1); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("get match after needs_selection: err = %v, want ErrNotFound", err)
	}
	if len(fx.board.itemIDs) != 0 {
		t.Errorf("board notified %d times, want 0 before human selection", len(fx.board.itemIDs))
	}
}

func TestProcessMatchMissingField(t *testing.T) {
	fx := newLinkerFixture(t, &fakeSource{})
	storeContractInfo(t, fx.results, 1, `{"projectName":"Main St Plaza","generalContractor":null}`)

	out, err := fx.linker.ProcessMatch(context.Background(), 1)
	if err != nil {
		t.Fatalf("ProcessMatch: %v", err)
	}
	if out.Status != StatusMissingData {
		t.Fatalf("status = %q, want %q", out.Status, StatusMissingData)
	}
	if len(out.MissingFields) != 1 || out.MissingFields[0] != "generalContractor" {
		t.Errorf("missing fields = %v, want [generalContractor]", out.MissingFields)
	}
}

func TestProcessMatchBlankFieldCountsAsMissing(t *testing.T) {
	fx := newLinkerFixture(t, &fakeSource{})
	storeContractInfo(t, fx.results, 1, `{"projectName":"   ","generalContractor":"Acme Builders"}`)

	out, err := fx.linker.ProcessMatch(context.Background(), 1)
	if err != nil {
		t.Fatalf("ProcessMatch: %v", err)
	}
	if out.Status != StatusMissingData {
		t.Fatalf("status = %q, want %q", out.Status, StatusMissingData)
	}
	if len(out.MissingFields) != 1 || out.MissingFields[0] != "projectName" {
		t.Errorf("missing fields = %v, want [projectName]", out.MissingFields)
	}
}

func TestProcessMatchNoAgentResult(t *testing.T) {
	fx := newLinkerFixture(t, &fakeSource{})

	out, err := fx.linker.ProcessMatch(context.Background(), 42)
	if err != nil {
		t.Fatalf("ProcessMatch: %v", err)
	}
	if out.Status != StatusMissingData {
		t.Fatalf("status = %q, want %q", out.Status, StatusMissingData)
	}
	if len(out.MissingFields) != 2 {
		t.Errorf("missing fields = %v, want both when the agent never ran", out.MissingFields)
	}
}

func TestProcessMatchFailedAgentResult(t *testing.T) {
	fx := newLinkerFixture(t, &fakeSource{})
	err := fx.results.Upsert(context.Background(), repository.AgentResult{
		ContractID:   1,
		AgentName:    agents.AgentContractInfo,
		Status:       constants.AgentError,
		ErrorMessage: sql.NullString{String: "model timeout", Valid: true},
	})
	if err != nil {
		t.Fatalf("store failed result: %v", err)
	}

	out, err := fx.linker.ProcessMatch(context.Background(), 1)
	if err != nil {
		t.Fatalf("ProcessMatch: %v", err)
	}
	if out.Status != StatusMissingData || len(out.MissingFields) != 2 {
		t.Errorf("outcome = %+v, want missing_data with both fields", out)
	}
}

func TestSelectMatchRequiresMatchedBy(t *testing.T) {
	fx := newLinkerFixture(t, &fakeSource{})

	err := fx.linker.SelectMatch(context.Background(), 1, estimates.Item{ID: "e1", Name: "Riverside Tower"}, 0.6, "")
	if err == nil {
		t.Fatal("expected error for empty matchedBy")
	}
	if len(fx.board.itemIDs) != 0 {
		t.Error("board must not be notified on a rejected selection")
	}
}

func TestSelectMatchPersistsManual(t *testing.T) {
	fx := newLinkerFixture(t, &fakeSource{})

	item := estimates.Item{ID: "e2", Name: "Riverside Tower", URL: "https://board/e2"}
	if err := fx.linker.SelectMatch(context.Background(), 7, item, 0.62, "ops@example.com"); err != nil {
		t.Fatalf("SelectMatch: %v", err)
	}

	row, err := fx.matches.GetByContract(context.Background(), 7)
	if err != nil {
		t.Fatalf("get persisted match: %v", err)
	}
	if row.MatchType != constants.MatchManual {
		t.Errorf("match type = %q, want %q", row.MatchType, constants.MatchManual)
	}
	if !row.MatchedBy.Valid || row.MatchedBy.String != "ops@example.com" {
		t.Errorf("matched_by = %+v, want ops@example.com", row.MatchedBy)
	}
	if row.Confidence != 0.62 {
		t.Errorf("confidence = %v, want 0.62", row.Confidence)
	}
	if len(fx.board.itemIDs) != 1 || fx.board.itemIDs[0] != "e2" {
		t.Errorf("board notified with %v, want one call for e2", fx.board.itemIDs)
	}
}
