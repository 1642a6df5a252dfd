package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"aquicultura/internal/licensing"
	"aquicultura/pkg/platform/sentinel"
)

// Store is the in-memory licence store for unit tests and local development.
type Store struct {
	mu       sync.RWMutex
	licences map[int64]licensing.Licenciamento
	nextID   int64
}

func New() *Store {
	return &Store{licences: make(map[int64]licensing.Licenciamento), nextID: 1}
}

func (s *Store) Create(_ context.Context, lic *licensing.Licenciamento) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lic.ID = s.nextID
	lic.CreatedAt = time.Now()
	s.nextID++
	s.licences[lic.ID] = *lic
	return nil
}

func (s *Store) FindByID(_ context.Context, id int64) (*licensing.Licenciamento, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lic, ok := s.licences[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &lic, nil
}

func matches(f licensing.Filter, lic licensing.Licenciamento) bool {
	if f.ProjetoID != nil && lic.ProjetoID != *f.ProjetoID {
		return false
	}
	if f.Status != "" && lic.Status != f.Status {
		return false
	}
	if f.Entidade != "" && lic.EntidadeResponsavel != f.Entidade {
		return false
	}
	if f.Search != "" {
		if lic.Observacoes == nil {
			return false
		}
		if !strings.Contains(strings.ToLower(*lic.Observacoes), strings.ToLower(f.Search)) {
			return false
		}
	}
	return true
}

func (s *Store) List(_ context.Context, f licensing.Filter, skip, limit int) ([]licensing.Licenciamento, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []licensing.Licenciamento
	for _, lic := range s.licences {
		if matches(f, lic) {
			filtered = append(filtered, lic)
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

func (s *Store) Count(_ context.Context, f licensing.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, lic := range s.licences {
		if matches(f, lic) {
			count++
		}
	}
	return count, nil
}

func (s *Store) Update(_ context.Context, lic *licensing.Licenciamento) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.licences[lic.ID]; !ok {
		return sentinel.ErrNotFound
	}
	now := time.Now()
	lic.UpdatedAt = &now
	s.licences[lic.ID] = *lic
	return nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.licences[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.licences, id)
	return nil
}

func (s *Store) Stats(_ context.Context) (*licensing.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &licensing.Stats{
		PorStatus:   make(map[licensing.StatusLicenciamento]int64),
		PorEntidade: make(map[licensing.EntidadeResponsavel]int64),
	}
	var decided, totalDays int64
	for _, lic := range s.licences {
		stats.TotalLicenciamentos++
		stats.PorStatus[lic.Status]++
		stats.PorEntidade[lic.EntidadeResponsavel]++
		if lic.DataDecisao != nil {
			decided++
			totalDays += int64(lic.DataDecisao.Sub(lic.DataSubmissao).Hours() / 24)
		}
	}
	if decided > 0 {
		stats.TempoMedioProcessamentoDias = float64(totalDays) / float64(decided)
	}
	return stats, nil
}
