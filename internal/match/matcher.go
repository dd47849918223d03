package match

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/buildhub/contract-reconciler/internal/estimates"
)

// Matching thresholds.
const (
	// MinConfidence is the floor below which candidates are discarded
	// from every result variant.
	MinConfidence = 0.3
	// AutoMatchThreshold is the combined score at or above which the top
	// candidate is accepted without human review.
	AutoMatchThreshold = 0.8
	// MaxCandidates caps the list offered for human selection.
	MaxCandidates = 5
	// searchLimit is the top-K for the fuzzy name search.
	searchLimit = 10
)

// Result statuses.
const (
	StatusAutoMatched    = "auto_matched"
	StatusNeedsSelection = "needs_selection"
	StatusNoMatch        = "no_match"
)

// Candidate is a scored estimate candidate.
type Candidate struct {
	ItemID          string
	ItemName        string
	ItemURL         string
	Contractor      string // empty if unknown
	ProjectScore    float64
	ContractorScore float64
	CombinedScore   float64
}

// Result is the tagged matching outcome. Exactly one variant applies:
// auto_matched carries Estimate+Confidence, needs_selection carries
// Candidates+TopConfidence, no_match carries Reason.
type Result struct {
	Status        string
	Estimate      *Candidate
	Confidence    float64
	Candidates    []Candidate
	TopConfidence float64
	Reason        string
}

// Matcher searches the estimate pool and classifies the best candidate
// into auto-accept, human-review or no-match tiers.
type Matcher struct {
	source estimates.Source
	logger *slog.Logger
}

func NewMatcher(source estimates.Source, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{source: source, logger: logger}
}

// FindMatch runs the fuzzy project-name search and the contractor
// first-token keyword search in parallel, merges and scores the
// candidates, and classifies the outcome.
func (m *Matcher) FindMatch(ctx context.Context, projectName, contractor string) (Result, error) {
	start := time.Now()

	var byName, byKeyword []estimates.Item
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		byName, err = m.source.Search(gctx, projectName, searchLimit)
		return err
	})
	g.Go(func() error {
		keyword := firstToken(contractor)
		if keyword == "" {
			return nil
		}
		var err error
		byKeyword, err = m.source.SearchByKeyword(gctx, keyword)
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("candidate search: %w", err)
	}

	// First occurrence wins: name-search hits outrank keyword hits when
	// both surface the same item.
	merged := make([]estimates.Item, 0, len(byName)+len(byKeyword))
	seen := make(map[string]struct{}, len(byName)+len(byKeyword))
	for _, item := range append(byName, byKeyword...) {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		merged = append(merged, item)
	}

	candidates := make([]Candidate, 0, len(merged))
	for _, item := range merged {
		s := ScorePair(projectName, contractor, item.Name, item.Contractor)
		if s.Combined < MinConfidence {
			continue
		}
		candidates = append(candidates, Candidate{
			ItemID:          item.ID,
			ItemName:        item.Name,
			ItemURL:         item.URL,
			Contractor:      item.Contractor,
			ProjectScore:    s.Project,
			ContractorScore: s.Contractor,
			CombinedScore:   s.Combined,
		})
	}

	if len(candidates) == 0 {
		m.logger.Info("match.no_match",
			"project", projectName,
			"searched", len(merged),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Result{
			Status: StatusNoMatch,
			Reason: fmt.Sprintf("no candidate above %.2f confidence among %d searched", MinConfidence, len(merged)),
		}, nil
	}

	// Stable sort: equal scores keep merge order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CombinedScore > candidates[j].CombinedScore
	})

	top := candidates[0]
	if top.CombinedScore >= AutoMatchThreshold {
		m.logger.Info("match.auto",
			"project", projectName,
			"estimate", top.ItemName,
			"confidence", top.CombinedScore,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Result{
			Status:     StatusAutoMatched,
			Estimate:   &top,
			Confidence: top.CombinedScore,
		}, nil
	}

	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}
	m.logger.Info("match.needs_selection",
		"project", projectName,
		"candidates", len(candidates),
		"top_confidence", top.CombinedScore,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Result{
		Status:        StatusNeedsSelection,
		Candidates:    candidates,
		TopConfidence: top.CombinedScore,
	}, nil
}

// firstToken returns the first whitespace-delimited token, so
// "ABC Construction Inc" searches as "ABC".
func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
