package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"aquicultura/internal/user/models"
	"aquicultura/pkg/platform/sentinel"
)

// InMemory is the test double for the user store. Email uniqueness is
// enforced case-insensitively, matching the citext column in PostgreSQL.
type InMemory struct {
	mu     sync.RWMutex
	users  map[int64]models.User
	nextID int64
}

func NewInMemory() *InMemory {
	return &InMemory{users: make(map[int64]models.User), nextID: 1}
}

func (s *InMemory) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return sentinel.ErrConflict
		}
	}
	user.ID = s.nextID
	user.CreatedAt = time.Now()
	s.nextID++
	s.users[user.ID] = *user
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &user, nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			u := user
			return &u, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindByIDs(_ context.Context, ids []int64) (map[int64]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]models.User)
	for _, id := range ids {
		if user, ok := s.users[id]; ok {
			out[id] = user
		}
	}
	return out, nil
}

func (s *InMemory) List(_ context.Context, skip, limit int) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []models.User
	for _, user := range s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	if skip >= len(users) {
		return nil, nil
	}
	users = users[skip:]
	if limit >= 0 && limit < len(users) {
		users = users[:limit]
	}
	return users, nil
}

func (s *InMemory) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return sentinel.ErrNotFound
	}
	for id, existing := range s.users {
		if id != user.ID && strings.EqualFold(existing.Email, user.Email) {
			return sentinel.ErrConflict
		}
	}
	now := time.Now()
	user.UpdatedAt = &now
	s.users[user.ID] = *user
	return nil
}

func (s *InMemory) Deactivate(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	user.IsActive = false
	now := time.Now()
	user.UpdatedAt = &now
	s.users[id] = user
	return nil
}

func (s *InMemory) TouchLastLogin(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	now := time.Now()
	user.LastLogin = &now
	s.users[id] = user
	return nil
}
