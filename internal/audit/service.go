package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"

	"aquicultura/internal/platform/metrics"
	"aquicultura/internal/user/models"
	domainerrors "aquicultura/pkg/domainerrors"
	"aquicultura/pkg/platform/sentinel"
)

// exportMaxRows bounds memory on CSV export; the filtered-list path has no
// enforced upper limit but exports fetch everything in one pass.
const exportMaxRows = 10000

// ActorDirectory resolves actor identities for CSV export. The user store
// implements this; audit stays decoupled from user persistence.
type ActorDirectory interface {
	FindByIDs(ctx context.Context, ids []int64) (map[int64]models.User, error)
}

// Service is the audit subsystem facade: one append path used by every
// mutating operation, plus the read/projection layer for the admin UI.
type Service struct {
	store   Store
	actors  ActorDirectory
	metrics *metrics.Metrics
}

func NewService(store Store, actors ActorDirectory, m *metrics.Metrics) *Service {
	return &Service{store: store, actors: actors, metrics: m}
}

// Record appends one entry. A failed append is never swallowed: when the
// caller runs inside a transaction the whole unit of work rolls back, and
// outside one the error still surfaces to the client.
func (s *Service) Record(ctx context.Context, rec Record) (*Entry, error) {
	if !rec.Acao.Valid() {
		return nil, domainerrors.New(domainerrors.CodeBadRequest, fmt.Sprintf("unknown audit action %q", rec.Acao))
	}
	entry, err := s.store.Append(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("record audit entry: %w", err)
	}
	if s.metrics != nil {
		s.metrics.AuditEntries.WithLabelValues(string(rec.Acao)).Inc()
	}
	return entry, nil
}

// List returns one page of matching entries, most recent first.
func (s *Service) List(ctx context.Context, f Filter, skip, limit int) ([]Entry, error) {
	return s.store.List(ctx, f, skip, limit)
}

// Count returns the total matching rows using the same predicate as List.
func (s *Service) Count(ctx context.Context, f Filter) (int64, error) {
	return s.store.Count(ctx, f)
}

// Get returns one entry by id.
func (s *Service) Get(ctx context.Context, id int64) (*Entry, error) {
	entry, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerrors.New(domainerrors.CodeNotFound, "audit log not found")
		}
		return nil, fmt.Errorf("get audit entry: %w", err)
	}
	return entry, nil
}

// Stats aggregates the dashboard view. Every member of the closed action set
// is present in PorAcao, zero or not.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit stats: %w", err)
	}
	for _, action := range Actions() {
		if _, ok := stats.PorAcao[action]; !ok {
			stats.PorAcao[action] = 0
		}
	}
	return stats, nil
}

// ExportCSV serializes all entries matching the filter, capped at
// exportMaxRows. Actor names resolve through the directory; entries without
// an actor carry the "Sistema" sentinel.
func (s *Service) ExportCSV(ctx context.Context, f Filter) ([]byte, error) {
	entries, err := s.store.List(ctx, f, 0, exportMaxRows)
	if err != nil {
		return nil, fmt.Errorf("export audit entries: %w", err)
	}

	var actorIDs []int64
	seen := make(map[int64]bool)
	for _, e := range entries {
		if e.UserID != nil && !seen[*e.UserID] {
			seen[*e.UserID] = true
			actorIDs = append(actorIDs, *e.UserID)
		}
	}
	actors := make(map[int64]models.User)
	if len(actorIDs) > 0 && s.actors != nil {
		actors, err = s.actors.FindByIDs(ctx, actorIDs)
		if err != nil {
			return nil, fmt.Errorf("resolve audit actors: %w", err)
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"ID", "Data/Hora", "Utilizador", "Email", "Ação", "Entidade", "ID Entidade", "IP", "Detalhes"}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, e := range entries {
		name, email := "Sistema", ""
		if e.UserID != nil {
			if actor, ok := actors[*e.UserID]; ok {
				name, email = actor.FullName, actor.Email
			}
		}
		row := []string{
			strconv.FormatInt(e.ID, 10),
			e.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			name,
			email,
			string(e.Acao),
			deref(e.Entidade),
			formatID(e.EntidadeID),
			deref(e.IP),
			deref(e.Detalhes),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}
