package province

import "context"

// Store reads the province reference table.
type Store interface {
	List(ctx context.Context) ([]Provincia, error)
	FindByID(ctx context.Context, id int64) (*Provincia, error)
	NamesByID(ctx context.Context) (map[int64]string, error)
}
