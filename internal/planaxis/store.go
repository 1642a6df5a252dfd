package planaxis

import "context"

// Store abstracts axis persistence. Mutations honour a transaction carried in
// the context.
type Store interface {
	Create(ctx context.Context, eixo *Eixo) error
	FindByID(ctx context.Context, id int64) (*Eixo, error)
	List(ctx context.Context, f Filter, skip, limit int) ([]Eixo, error)
	Count(ctx context.Context, f Filter) (int64, error)
	Update(ctx context.Context, eixo *Eixo) error
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context) (*Stats, error)
}
