package indicator

import "context"

// Store is the persistence boundary for indicators.
type Store interface {
	Create(ctx context.Context, ind *Indicador) error
	FindByID(ctx context.Context, id int64) (*Indicador, error)
	List(ctx context.Context, f Filter, skip, limit int) ([]Indicador, error)
	Count(ctx context.Context, f Filter) (int64, error)
	Update(ctx context.Context, ind *Indicador) error
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context) (*Stats, error)
}
