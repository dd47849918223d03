package match

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"
)

// Combined-score weights. Fixed constants, not runtime-configurable.
const (
	projectWeight    = 0.6
	contractorWeight = 0.4
)

// Score holds the per-field and combined similarity for one candidate,
// all in [0,1].
type Score struct {
	Project    float64
	Contractor float64
	Combined   float64
}

// ScorePair computes the weighted similarity between a contract's
// (project, contractor) pair and a candidate's (name, contractor) pair.
// When the candidate has no known contractor the combined score is the
// project score exactly; the contractor weight is not redistributed.
func ScorePair(contractProject, contractContractor, estimateName, estimateContractor string) Score {
	s := Score{Project: Similarity(contractProject, estimateName)}
	if estimateContractor == "" {
		s.Combined = s.Project
		return s
	}
	s.Contractor = Similarity(contractContractor, estimateContractor)
	s.Combined = projectWeight*s.Project + contractorWeight*s.Contractor
	return s
}

// Similarity is a normalized token-set similarity in [0,1]. Estimate
// names often embed contractor suffixes ("Main Street Plaza - Acme
// Builders LLC"), which a plain edit distance over-penalizes, so the
// score is the best of the whole-string ratio and the ratios between the
// sorted token intersection and each side's full sorted token string.
func Similarity(a, b string) float64 {
	ta, tb := tokens(a), tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	joinedA := strings.Join(ta, " ")
	joinedB := strings.Join(tb, " ")
	best := levenshtein.Similarity(joinedA, joinedB, nil)

	inter := intersect(ta, tb)
	if len(inter) > 0 {
		joined := strings.Join(inter, " ")
		if s := levenshtein.Similarity(joined, joinedA, nil); s > best {
			best = s
		}
		if s := levenshtein.Similarity(joined, joinedB, nil); s > best {
			best = s
		}
	}
	return best
}

// tokens lowercases, strips non-alphanumeric runes and returns the
// sorted word set.
func tokens(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	seen := make(map[string]struct{}, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, t := range b {
		set[t] = struct{}{}
	}
	var out []string
	for _, t := range a {
		if _, ok := set[t]; ok {
			out = append(out, t)
		}
	}
	return out
}
