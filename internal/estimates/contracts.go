package estimates

import "context"

// Item is one candidate estimate from the pool. Contractor is empty when
// the backend does not know it.
type Item struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	Contractor string `json:"contractor,omitempty"`
}

// Source is the candidate-pool behavior the matcher depends on.
type Source interface {
	// Search is a fuzzy top-K search by free text.
	Search(ctx context.Context, query string, limit int) ([]Item, error)
	// SearchByKeyword is an exact keyword search.
	SearchByKeyword(ctx context.Context, keyword string) ([]Item, error)
}

// Board is the system-of-record notification the linker depends on.
// MarkLinked is an idempotent upsert: calling it twice with the same
// target is safe.
type Board interface {
	MarkLinked(ctx context.Context, itemID string, contractID int64) error
}
