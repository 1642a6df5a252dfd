package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"aquicultura/internal/project"
	"aquicultura/pkg/platform/sentinel"
)

// Store is the in-memory project store for unit tests and local development.
// It mirrors the PostgreSQL predicate semantics: List and Count share one
// matcher, listings are ordered by id ascending.
type Store struct {
	mu       sync.RWMutex
	projects map[int64]project.Projeto
	nextID   int64
}

func New() *Store {
	return &Store{projects: make(map[int64]project.Projeto), nextID: 1}
}

func (s *Store) Create(_ context.Context, p *project.Projeto) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.nextID
	p.CreatedAt = time.Now()
	s.nextID++
	s.projects[p.ID] = *p
	return nil
}

func (s *Store) FindByID(_ context.Context, id int64) (*project.Projeto, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

func matches(f project.Filter, p project.Projeto) bool {
	if f.ProvinciaID != nil && p.ProvinciaID != *f.ProvinciaID {
		return false
	}
	if f.Tipo != "" && p.Tipo != f.Tipo {
		return false
	}
	if f.Fonte != "" && p.FonteFinanciamento != f.Fonte {
		return false
	}
	if f.Estado != "" && p.Estado != f.Estado {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		hit := strings.Contains(strings.ToLower(p.Nome), needle) ||
			strings.Contains(strings.ToLower(p.Responsavel), needle)
		if !hit && p.Descricao != nil {
			hit = strings.Contains(strings.ToLower(*p.Descricao), needle)
		}
		if !hit {
			return false
		}
	}
	return true
}

func (s *Store) List(_ context.Context, f project.Filter, skip, limit int) ([]project.Projeto, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []project.Projeto
	for _, p := range s.projects {
		if matches(f, p) {
			filtered = append(filtered, p)
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

func (s *Store) Count(_ context.Context, f project.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, p := range s.projects {
		if matches(f, p) {
			count++
		}
	}
	return count, nil
}

func (s *Store) Update(_ context.Context, p *project.Projeto) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	now := time.Now()
	p.UpdatedAt = &now
	s.projects[p.ID] = *p
	return nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.projects, id)
	return nil
}

func (s *Store) Stats(_ context.Context) (*project.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &project.Stats{
		PorEstado: make(map[project.Estado]int64),
		PorTipo:   make(map[project.Tipo]int64),
		PorFonte:  make(map[project.Fonte]int64),
	}
	for _, p := range s.projects {
		stats.TotalProjetos++
		stats.PorEstado[p.Estado]++
		stats.PorTipo[p.Tipo]++
		stats.PorFonte[p.FonteFinanciamento]++
		stats.OrcamentoPrevistoKz += p.OrcamentoPrevistoKz
		stats.OrcamentoExecutadoKz += p.OrcamentoExecutadoKz
	}
	return stats, nil
}

func (s *Store) ProvinceRollup(_ context.Context) (map[int64]project.ProvinceStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rollup := make(map[int64]project.ProvinceStats)
	for _, p := range s.projects {
		ps, ok := rollup[p.ProvinciaID]
		if !ok {
			ps = project.ProvinceStats{PorEstado: make(map[project.Estado]int64)}
		}
		ps.Total++
		ps.PorEstado[p.Estado]++
		ps.OrcamentoPrevistoKz += p.OrcamentoPrevistoKz
		ps.OrcamentoExecutadoKz += p.OrcamentoExecutadoKz
		rollup[p.ProvinciaID] = ps
	}
	return rollup, nil
}
