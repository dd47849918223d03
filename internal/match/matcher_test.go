package match

import (
	"context"
	"fmt"
	"testing"

	"github.com/buildhub/contract-reconciler/internal/estimates"
)

type fakeSource struct {
	byName    []estimates.Item
	byKeyword []estimates.Item

	nameErr    error
	keywordErr error

	keywordCalls int
}

func (f *fakeSource) Search(_ context.Context, _ string, _ int) ([]estimates.Item, error) {
	return f.byName, f.nameErr
}

func (f *fakeSource) SearchByKeyword(_ context.Context, _ string) ([]estimates.Item, error) {
	f.keywordCalls++
	return f.byKeyword, f.keywordErr
}

func TestFindMatchAuto(t *testing.T) {
	src := &fakeSource{
		byName: []estimates.Item{
			{ID: "e1", Name: "Main Street Plaza - Acme Builders LLC", URL: "https://board/e1", Contractor: "Acme Builders LLC"},
		},
	}
	m := NewMatcher(src, nil)

	res, err := m.FindMatch(context.Background(), "Main St Plaza", "Acme Builders")
	if err != nil {
		t.Fatalf("FindMatch: %v", err)
	}
	if res.Status != StatusAutoMatched {
		t.Fatalf("status = %q, want %q", res.Status, StatusAutoMatched)
	}
	if res.Estimate == nil || res.Estimate.ItemID != "e1" {
		t.Fatalf("estimate = %+v, want item e1", res.Estimate)
	}
	if res.Confidence < AutoMatchThreshold {
		t.Errorf("confidence = %v, want >= %v", res.Confidence, AutoMatchThreshold)
	}
}

func TestFindMatchNeedsSelection(t *testing.T) {
	src := &fakeSource{
		byName: []estimates.Item{
			{ID: "e1", Name: "Riverside Tower"},
			{ID: "e2", Name: "Riverside Tower", Contractor: "Acme Builders"},
		},
	}
	m := NewMatcher(src, nil)

	res, err := m.FindMatch(context.Background(), "Riverside Plaza", "Acme Builders")
	if err != nil {
		t.Fatalf("FindMatch: %v", err)
	}
	if res.Status != StatusNeedsSelection {
		t.Fatalf("status = %q, want %q", res.Status, StatusNeedsSelection)
	}
	if len(res.Candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(res.Candidates))
	}
	// e2 gets the contractor bonus and must sort first.
	if res.Candidates[0].ItemID != "e2" {
		t.Errorf("top candidate = %q, want e2", res.Candidates[0].ItemID)
	}
	if res.TopConfidence != res.Candidates[0].CombinedScore {
		t.Errorf("top confidence %v != first candidate score %v", res.TopConfidence, res.Candidates[0].CombinedScore)
	}
	if res.TopConfidence >= AutoMatchThreshold || res.TopConfidence < MinConfidence {
		t.Errorf("top confidence %v outside the review band [%v, %v)", res.TopConfidence, MinConfidence, AutoMatchThreshold)
	}
}

func TestFindMatchCandidateCap(t *testing.T) {
	src := &fakeSource{}
	for i := 0; i < MaxCandidates+3; i++ {
		src.byName = append(src.byName, estimates.Item{
			ID:   fmt.Sprintf("e%d", i),
			Name: "Riverside Tower",
		})
	}
	m := NewMatcher(src, nil)

	res, err := m.FindMatch(context.Background(), "Riverside Plaza", "")
	if err != nil {
		t.Fatalf("FindMatch: %v", err)
	}
	if res.Status != StatusNeedsSelection {
		t.Fatalf("status = %q, want %q", res.Status, StatusNeedsSelection)
	}
	if len(res.Candidates) != MaxCandidates {
		t.Errorf("candidates = %d, want capped at %d", len(res.Candidates), MaxCandidates)
	}
}

func TestFindMatchLowConfidenceExcluded(t *testing.T) {
	src := &fakeSource{
		byName: []estimates.Item{
			{ID: "e1", Name: "qq ww zz"},
		},
	}
	m := NewMatcher(src, nil)

	res, err := m.FindMatch(context.Background(), "Riverside Plaza", "")
	if err != nil {
		t.Fatalf("FindMatch: %v", err)
	}
	if res.Status != StatusNoMatch {
		t.Fatalf("status = %q, want %q", res.Status, StatusNoMatch)
	}
	if res.Reason == "" {
		t.Error("no_match result must carry a reason")
	}
}

func TestFindMatchEmptyPool(t *testing.T) {
	m := NewMatcher(&fakeSource{}, nil)

	res, err := m.FindMatch(context.Background(), "Riverside Plaza", "Acme Builders")
	if err != nil {
		t.Fatalf("FindMatch: %v", err)
	}
	if res.Status != StatusNoMatch {
		t.Fatalf("status = %q, want %q", res.Status, StatusNoMatch)
	}
}

func TestFindMatchMergeDedupes(t *testing.T) {
	item := estimates.Item{ID: "dup", Name: "Riverside Tower"}
	src := &fakeSource{
		byName:    []estimates.Item{item},
		byKeyword: []estimates.Item{item},
	}
	m := NewMatcher(src, nil)

	res, err := m.FindMatch(context.Background(), "Riverside Plaza", "Acme Builders")
	if err != nil {
		t.Fatalf("FindMatch: %v", err)
	}
	if res.Status != StatusNeedsSelection {
		t.Fatalf("status = %q, want %q", res.Status, StatusNeedsSelection)
	}
	if len(res.Candidates) != 1 {
		t.Errorf("candidates = %d, want 1 after dedupe", len(res.Candidates))
	}
}

func TestFindMatchSkipsKeywordSearchWithoutContractor(t *testing.T) {
	src := &fakeSource{
		byName: []estimates.Item{{ID: "e1", Name: "Riverside Tower"}},
	}
	m := NewMatcher(src, nil)

	if _, err := m.FindMatch(context.Background(), "Riverside Plaza", "  "); err != nil {
		t.Fatalf("FindMatch: %v", err)
	}
	if src.keywordCalls != 0 {
		t.Errorf("keyword search called %d times, want 0 for blank contractor", src.keywordCalls)
	}
}

func TestFindMatchSearchError(t *testing.T) {
	src := &fakeSource{nameErr: fmt.Errorf("backend down")}
	m := NewMatcher(src, nil)

	if _, err := m.FindMatch(context.Background(), "Riverside Plaza", "Acme Builders"); err == nil {
		t.Fatal("expected error when the candidate search fails")
	}
}

func TestFirstToken(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ABC Construction Inc", "ABC"},
		{"  Acme  ", "Acme"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := firstToken(tt.in); got != tt.want {
			t.Errorf("firstToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
