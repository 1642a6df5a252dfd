package audit

import "context"

// Store is the append-only persistence contract for audit entries. There is
// deliberately no update or delete on this interface.
type Store interface {
	// Append inserts one entry, assigning ID and Timestamp server-side.
	Append(ctx context.Context, rec Record) (*Entry, error)
	// List returns entries matching the filter, ordered timestamp descending.
	List(ctx context.Context, f Filter, skip, limit int) ([]Entry, error)
	// Count returns the number of entries matching the same predicate List uses.
	Count(ctx context.Context, f Filter) (int64, error)
	// FindByID returns one entry or sentinel.ErrNotFound.
	FindByID(ctx context.Context, id int64) (*Entry, error)
	// Stats aggregates totals, per-action and per-entity counts and the
	// five most active actors (ties broken by user_id ascending).
	Stats(ctx context.Context) (*Stats, error)
}
