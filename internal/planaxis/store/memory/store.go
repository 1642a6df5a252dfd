package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"aquicultura/internal/planaxis"
	"aquicultura/pkg/platform/sentinel"
)

// Store is the in-memory axis store for unit tests and local development.
type Store struct {
	mu     sync.RWMutex
	eixos  map[int64]planaxis.Eixo
	nextID int64
}

func New() *Store {
	return &Store{eixos: make(map[int64]planaxis.Eixo), nextID: 1}
}

func clone(eixo planaxis.Eixo) planaxis.Eixo {
	eixo.Marcos = slices.Clone(eixo.Marcos)
	return eixo
}

func (s *Store) Create(_ context.Context, eixo *planaxis.Eixo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	eixo.ID = s.nextID
	eixo.CreatedAt = time.Now()
	s.nextID++
	s.eixos[eixo.ID] = clone(*eixo)
	return nil
}

func (s *Store) FindByID(_ context.Context, id int64) (*planaxis.Eixo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	eixo, ok := s.eixos[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	eixo = clone(eixo)
	return &eixo, nil
}

func matches(f planaxis.Filter, eixo planaxis.Eixo) bool {
	if f.ProjetoID != nil && eixo.ProjetoID != *f.ProjetoID {
		return false
	}
	if f.Periodo != "" && eixo.Periodo != f.Periodo {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		for _, field := range []string{eixo.What, eixo.Why, eixo.Where, eixo.Who, eixo.How} {
			if strings.Contains(strings.ToLower(field), needle) {
				return true
			}
		}
		return false
	}
	return true
}

func (s *Store) List(_ context.Context, f planaxis.Filter, skip, limit int) ([]planaxis.Eixo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []planaxis.Eixo
	for _, eixo := range s.eixos {
		if matches(f, eixo) {
			filtered = append(filtered, clone(eixo))
		}
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].ID < filtered[j].ID })

	if skip >= len(filtered) {
		return nil, nil
	}
	filtered = filtered[skip:]
	if limit >= 0 && limit < len(filtered) {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

func (s *Store) Count(_ context.Context, f planaxis.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, eixo := range s.eixos {
		if matches(f, eixo) {
			count++
		}
	}
	return count, nil
}

func (s *Store) Update(_ context.Context, eixo *planaxis.Eixo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.eixos[eixo.ID]; !ok {
		return sentinel.ErrNotFound
	}
	now := time.Now()
	eixo.UpdatedAt = &now
	s.eixos[eixo.ID] = clone(*eixo)
	return nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.eixos[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.eixos, id)
	return nil
}

func (s *Store) Stats(_ context.Context) (*planaxis.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &planaxis.Stats{
		PorPeriodo:          make(map[planaxis.Periodo]int64),
		OrcamentoPorPeriodo: make(map[planaxis.Periodo]float64),
	}
	projetos := make(map[int64]struct{})
	for _, eixo := range s.eixos {
		stats.TotalEixos++
		stats.PorPeriodo[eixo.Periodo]++
		stats.OrcamentoPorPeriodo[eixo.Periodo] += eixo.HowMuchKz
		projetos[eixo.ProjetoID] = struct{}{}
	}
	stats.ProjetosComEixos = int64(len(projetos))
	return stats, nil
}
