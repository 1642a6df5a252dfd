package project

import "context"

// Store is the persistence boundary for projects. Implementations do I/O
// only; validation and audit live in the service.
type Store interface {
	Create(ctx context.Context, p *Projeto) error
	FindByID(ctx context.Context, id int64) (*Projeto, error)
	List(ctx context.Context, f Filter, skip, limit int) ([]Projeto, error)
	Count(ctx context.Context, f Filter) (int64, error)
	Update(ctx context.Context, p *Projeto) error
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context) (*Stats, error)
	ProvinceRollup(ctx context.Context) (map[int64]ProvinceStats, error)
}
