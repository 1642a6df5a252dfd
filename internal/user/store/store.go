package store

import (
	"context"

	"aquicultura/internal/user/models"
)

// Store is the persistence contract for users. There is no hard delete:
// Deactivate clears the active flag so historical audit entries keep a valid
// actor reference.
type Store interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []int64) (map[int64]models.User, error)
	List(ctx context.Context, skip, limit int) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
	Deactivate(ctx context.Context, id int64) error
	TouchLastLogin(ctx context.Context, id int64) error
}
