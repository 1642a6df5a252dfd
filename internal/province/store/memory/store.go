package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"aquicultura/internal/province"
	"aquicultura/pkg/platform/sentinel"
)

// Store is the in-memory province store for unit tests and local development.
type Store struct {
	mu        sync.RWMutex
	provinces map[int64]province.Provincia
	nextID    int64
}

func New() *Store {
	return &Store{provinces: make(map[int64]province.Provincia), nextID: 1}
}

// Seed loads the given province names in order, mirroring the schema seed.
func (s *Store) Seed(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, nome := range names {
		s.provinces[s.nextID] = province.Provincia{
			ID:        s.nextID,
			Nome:      nome,
			CreatedAt: time.Now(),
		}
		s.nextID++
	}
}

func (s *Store) List(_ context.Context) ([]province.Provincia, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var provinces []province.Provincia
	for _, p := range s.provinces {
		provinces = append(provinces, p)
	}
	sort.Slice(provinces, func(i, j int) bool { return provinces[i].Nome < provinces[j].Nome })
	return provinces, nil
}

func (s *Store) FindByID(_ context.Context, id int64) (*province.Provincia, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.provinces[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

func (s *Store) NamesByID(_ context.Context) (map[int64]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make(map[int64]string, len(s.provinces))
	for id, p := range s.provinces {
		names[id] = p.Nome
	}
	return names, nil
}
