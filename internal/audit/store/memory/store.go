package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"aquicultura/internal/audit"
	"aquicultura/pkg/platform/sentinel"
)

// Store is an in-memory audit store for unit tests and local development.
// It mirrors the PostgreSQL predicate semantics exactly: List and Count share
// one matcher, ordering is timestamp descending with id as tiebreaker.
type Store struct {
	mu      sync.RWMutex
	entries []audit.Entry
	nextID  int64

	// Now is swappable so tests can control entry timestamps.
	Now func() time.Time

	// FailAppends simulates an unavailable store.
	FailAppends bool
}

func New() *Store {
	return &Store{nextID: 1, Now: time.Now}
}

func (s *Store) Append(_ context.Context, rec audit.Record) (*audit.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailAppends {
		return nil, sentinel.ErrUnavailable
	}

	entry := audit.Entry{
		ID:        s.nextID,
		UserID:    rec.UserID,
		Acao:      rec.Acao,
		Timestamp: s.Now(),
	}
	if rec.Papel != "" {
		papel := rec.Papel
		entry.Papel = &papel
	}
	if rec.Entidade != "" {
		entidade := rec.Entidade
		entry.Entidade = &entidade
	}
	entry.EntidadeID = rec.EntidadeID
	if rec.IP != "" {
		ip := rec.IP
		entry.IP = &ip
	}
	if rec.Detalhes != "" {
		detalhes := rec.Detalhes
		entry.Detalhes = &detalhes
	}

	s.nextID++
	s.entries = append(s.entries, entry)
	return &entry, nil
}

func matches(f audit.Filter, e audit.Entry) bool {
	if f.UserID != nil && (e.UserID == nil || *e.UserID != *f.UserID) {
		return false
	}
	if f.Acao != "" && e.Acao != f.Acao {
		return false
	}
	if f.Entidade != "" && (e.Entidade == nil || *e.Entidade != f.Entidade) {
		return false
	}
	if f.From != nil && e.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Timestamp.After(*f.To) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		hit := strings.Contains(strings.ToLower(string(e.Acao)), needle)
		if !hit && e.Detalhes != nil {
			hit = strings.Contains(strings.ToLower(*e.Detalhes), needle)
		}
		if !hit && e.Entidade != nil {
			hit = strings.Contains(strings.ToLower(*e.Entidade), needle)
		}
		if !hit {
			return false
		}
	}
	return true
}

func (s *Store) List(_ context.Context, f audit.Filter, skip, limit int) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []audit.Entry
	for _, e := range s.entries {
		if matches(f, e) {
			filtered = append(filtered, e)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if !filtered[i].Timestamp.Equal(filtered[j].Timestamp) {
			return filtered[i].Timestamp.After(filtered[j].Timestamp)
		}
		return filtered[i].ID > filtered[j].ID
	})

	if skip >= len(filtered) {
		return nil, nil
	}
	filtered = filtered[skip:]
	if limit >= 0 && limit < len(filtered) {
		filtered = filtered[:limit]
	}
	return append([]audit.Entry{}, filtered...), nil
}

func (s *Store) Count(_ context.Context, f audit.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, e := range s.entries {
		if matches(f, e) {
			count++
		}
	}
	return count, nil
}

func (s *Store) FindByID(_ context.Context, id int64) (*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.ID == id {
			entry := e
			return &entry, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *Store) Stats(_ context.Context) (*audit.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &audit.Stats{
		TotalLogs:   int64(len(s.entries)),
		PorAcao:     make(map[audit.Action]int64),
		PorEntidade: make(map[string]int64),
	}
	perActor := make(map[int64]int64)
	for _, e := range s.entries {
		stats.PorAcao[e.Acao]++
		if e.Entidade != nil {
			stats.PorEntidade[*e.Entidade]++
		}
		if e.UserID != nil {
			perActor[*e.UserID]++
		}
	}

	for userID, total := range perActor {
		stats.UsuariosMaisAtivos = append(stats.UsuariosMaisAtivos, audit.ActorActivity{
			UserID:     userID,
			TotalAcoes: total,
		})
	}
	sort.Slice(stats.UsuariosMaisAtivos, func(i, j int) bool {
		a, b := stats.UsuariosMaisAtivos[i], stats.UsuariosMaisAtivos[j]
		if a.TotalAcoes != b.TotalAcoes {
			return a.TotalAcoes > b.TotalAcoes
		}
		return a.UserID < b.UserID
	})
	if len(stats.UsuariosMaisAtivos) > 5 {
		stats.UsuariosMaisAtivos = stats.UsuariosMaisAtivos[:5]
	}
	return stats, nil
}
