package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"aquicultura/internal/indicator"
	"aquicultura/pkg/platform/sentinel"
)

// Store is the in-memory indicator store for unit tests and local
// development.
type Store struct {
	mu         sync.RWMutex
	indicators map[int64]indicator.Indicador
	nextID     int64
}

func New() *Store {
	return &Store{indicators: make(map[int64]indicator.Indicador), nextID: 1}
}

func (s *Store) Create(_ context.Context, ind *indicator.Indicador) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ind.ID = s.nextID
	ind.CreatedAt = time.Now()
	s.nextID++
	s.indicators[ind.ID] = *ind
	return nil
}

func (s *Store) FindByID(_ context.Context, id int64) (*indicator.Indicador, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ind, ok := s.indicators[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &ind, nil
}

func matches(f indicator.Filter, ind indicator.Indicador) bool {
	if f.ProjetoID != nil && ind.ProjetoID != *f.ProjetoID {
		return false
	}
	if f.Periodo != "" && ind.PeriodoReferencia != f.Periodo {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(ind.Nome), needle) &&
			!strings.Contains(strings.ToLower(ind.FonteDados), needle) {
			return false
		}
	}
	return true
}

func (s *Store) List(_ context.Context, f indicator.Filter, skip, limit int) ([]indicator.Indicador, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []indicator.Indicador
	for _, ind := range s.indicators {
		if matches(f, ind) {
			filtered = append(filtered, ind)
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

func (s *Store) Count(_ context.Context, f indicator.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, ind := range s.indicators {
		if matches(f, ind) {
			count++
		}
	}
	return count, nil
}

func (s *Store) Update(_ context.Context, ind *indicator.Indicador) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.indicators[ind.ID]; !ok {
		return sentinel.ErrNotFound
	}
	now := time.Now()
	ind.UpdatedAt = &now
	s.indicators[ind.ID] = *ind
	return nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.indicators[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.indicators, id)
	return nil
}

func (s *Store) Stats(_ context.Context) (*indicator.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &indicator.Stats{PorTrimestre: make(map[indicator.Trimestre]int64)}
	var totalMeta, totalActual float64
	for _, ind := range s.indicators {
		stats.TotalIndicadores++
		stats.PorTrimestre[ind.PeriodoReferencia]++
		totalMeta += ind.Meta
		totalActual += ind.ValorActual
	}
	if totalMeta > 0 {
		stats.ExecucaoMediaPercentual = totalActual / totalMeta * 100
	}
	return stats, nil
}
