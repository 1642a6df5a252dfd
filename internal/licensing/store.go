package licensing

import "context"

// Store abstracts licence persistence. Mutations honour a transaction carried
// in the context.
type Store interface {
	Create(ctx context.Context, lic *Licenciamento) error
	FindByID(ctx context.Context, id int64) (*Licenciamento, error)
	List(ctx context.Context, f Filter, skip, limit int) ([]Licenciamento, error)
	Count(ctx context.Context, f Filter) (int64, error)
	Update(ctx context.Context, lic *Licenciamento) error
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context) (*Stats, error)
}
