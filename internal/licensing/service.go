package licensing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"aquicultura/internal/audit"
	"aquicultura/internal/project"
	"aquicultura/internal/user/models"
	domainerrors "aquicultura/pkg/domainerrors"
	"aquicultura/pkg/platform/sentinel"
	"aquicultura/pkg/platform/tx"
	"aquicultura/pkg/requestcontext"
)

// Auditor is the slice of the audit service the licensing service needs.
type Auditor interface {
	Record(ctx context.Context, rec audit.Record) (*audit.Entry, error)
}

// ProjectDirectory confirms a parent project exists before a licence is
// attached to it. The project store satisfies this.
type ProjectDirectory interface {
	FindByID(ctx context.Context, projetoID int64) (*project.Projeto, error)
}

// Service owns licence rules. Every mutation and its audit entry share one
// unit of work.
type Service struct {
	store    Store
	auditor  Auditor
	runner   tx.Runner
	projects ProjectDirectory
	now      func() time.Time
}

func NewService(store Store, auditor Auditor, runner tx.Runner, projects ProjectDirectory) *Service {
	return &Service{
		store:    store,
		auditor:  auditor,
		runner:   runner,
		projects: projects,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateInput carries the fields for a new licence request.
type CreateInput struct {
	ProjetoID           int64               `json:"projeto_id"`
	Status              StatusLicenciamento `json:"status"`
	EntidadeResponsavel EntidadeResponsavel `json:"entidade_responsavel"`
	DataSubmissao       time.Time           `json:"data_submissao"`
	Observacoes         *string             `json:"observacoes"`
}

// UpdateInput carries optional fields; nil means unchanged. Status moves
// through UpdateStatus, not here.
type UpdateInput struct {
	EntidadeResponsavel *EntidadeResponsavel `json:"entidade_responsavel"`
	DataSubmissao       *time.Time           `json:"data_submissao"`
	Observacoes         *string              `json:"observacoes"`
}

func (s *Service) Create(ctx context.Context, actor *models.User, in CreateInput) (*Licenciamento, error) {
	switch {
	case in.ProjetoID <= 0:
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "projeto_id is required")
	case !in.EntidadeResponsavel.Valid():
		return nil, domainerrors.New(domainerrors.CodeBadRequest, fmt.Sprintf("unknown entidade_responsavel %q", in.EntidadeResponsavel))
	case in.DataSubmissao.IsZero():
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "data_submissao is required")
	}
	if in.Status == "" {
		in.Status = StatusPendente
	}
	if !in.Status.Valid() {
		return nil, domainerrors.New(domainerrors.CodeBadRequest, fmt.Sprintf("unknown status %q", in.Status))
	}

	if s.projects != nil {
		if _, err := s.projects.FindByID(ctx, in.ProjetoID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, domainerrors.New(domainerrors.CodeNotFound, "project not found")
			}
			return nil, err
		}
	}

	lic := &Licenciamento{
		ProjetoID:           in.ProjetoID,
		Status:              in.Status,
		EntidadeResponsavel: in.EntidadeResponsavel,
		DataSubmissao:       in.DataSubmissao,
		Observacoes:         in.Observacoes,
	}
	if lic.Status.Decided() {
		now := s.now()
		lic.DataDecisao = &now
	}

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, lic); err != nil {
			return err
		}
		_, err := s.auditor.Record(ctx, audit.Record{
			UserID:     actorID(actor),
			Papel:      actorRole(actor),
			Acao:       audit.ActionCreate,
			Entidade:   "Licenciamento",
			EntidadeID: &lic.ID,
			IP:         requestcontext.ClientIP(ctx),
			Detalhes:   fmt.Sprintf("Created licence for project %d", lic.ProjetoID),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return lic, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Licenciamento, error) {
	lic, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerrors.New(domainerrors.CodeNotFound, "licence not found")
		}
		return nil, err
	}
	return lic, nil
}

func (s *Service) List(ctx context.Context, f Filter, skip, limit int) ([]Licenciamento, error) {
	return s.store.List(ctx, f, skip, limit)
}

func (s *Service) Update(ctx context.Context, actor *models.User, id int64, in UpdateInput) (*Licenciamento, error) {
	lic, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var changes []audit.FieldChange
	if in.EntidadeResponsavel != nil {
		if !in.EntidadeResponsavel.Valid() {
			return nil, domainerrors.New(domainerrors.CodeBadRequest, fmt.Sprintf("unknown entidade_responsavel %q", *in.EntidadeResponsavel))
		}
		changes = audit.Changed(changes, "entidade_responsavel", string(lic.EntidadeResponsavel), string(*in.EntidadeResponsavel))
		lic.EntidadeResponsavel = *in.EntidadeResponsavel
	}
	if in.DataSubmissao != nil {
		changes = audit.Changed(changes, "data_submissao", formatDate(lic.DataSubmissao), formatDate(*in.DataSubmissao))
		lic.DataSubmissao = *in.DataSubmissao
	}
	if in.Observacoes != nil {
		changes = audit.Changed(changes, "observacoes", deref(lic.Observacoes), *in.Observacoes)
		lic.Observacoes = in.Observacoes
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Update(ctx, lic); err != nil {
			return err
		}
		detalhes := fmt.Sprintf("Updated licence for project %d", lic.ProjetoID)
		if diff := audit.FormatChanges(changes); diff != "" {
			detalhes = fmt.Sprintf("Updated licence for project %d (%s)", lic.ProjetoID, diff)
		}
		_, err := s.auditor.Record(ctx, audit.Record{
			UserID:     actorID(actor),
			Papel:      actorRole(actor),
			Acao:       audit.ActionUpdate,
			Entidade:   "Licenciamento",
			EntidadeID: &id,
			IP:         requestcontext.ClientIP(ctx),
			Detalhes:   detalhes,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return lic, nil
}

// UpdateStatus moves the licence through its lifecycle. Reaching a decided
// status stamps the decision date.
func (s *Service) UpdateStatus(ctx context.Context, actor *models.User, id int64, status StatusLicenciamento, observacoes *string) (*Licenciamento, error) {
	if !status.Valid() {
		return nil, domainerrors.New(domainerrors.CodeBadRequest, fmt.Sprintf("unknown status %q", status))
	}

	lic, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	oldStatus := lic.Status
	lic.Status = status
	if observacoes != nil {
		lic.Observacoes = observacoes
	}
	if status.Decided() {
		now := s.now()
		lic.DataDecisao = &now
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Update(ctx, lic); err != nil {
			return err
		}
		_, err := s.auditor.Record(ctx, audit.Record{
			UserID:     actorID(actor),
			Papel:      actorRole(actor),
			Acao:       audit.ActionStatusChange,
			Entidade:   "Licenciamento",
			EntidadeID: &id,
			IP:         requestcontext.ClientIP(ctx),
			Detalhes:   fmt.Sprintf("status: %s -> %s", oldStatus, status),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return lic, nil
}

func (s *Service) Delete(ctx context.Context, actor *models.User, id int64) error {
	lic, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Delete(ctx, id); err != nil {
			return err
		}
		_, err := s.auditor.Record(ctx, audit.Record{
			UserID:     actorID(actor),
			Papel:      actorRole(actor),
			Acao:       audit.ActionDelete,
			Entidade:   "Licenciamento",
			EntidadeID: &id,
			IP:         requestcontext.ClientIP(ctx),
			Detalhes:   fmt.Sprintf("Deleted licence for project %d", lic.ProjetoID),
		})
		return err
	})
}

// Stats returns the dashboard aggregate with every status and entidade
// present, the approval rate over all requests, and the mean processing time
// over decided ones.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("licensing stats: %w", err)
	}
	for _, st := range Statuses() {
		if _, ok := stats.PorStatus[st]; !ok {
			stats.PorStatus[st] = 0
		}
	}
	for _, e := range Entidades() {
		if _, ok := stats.PorEntidade[e]; !ok {
			stats.PorEntidade[e] = 0
		}
	}
	if stats.TotalLicenciamentos > 0 {
		rate := float64(stats.PorStatus[StatusAprovado]) / float64(stats.TotalLicenciamentos) * 100
		stats.TaxaAprovacao = math.Round(rate*100) / 100
	}
	stats.TempoMedioProcessamentoDias = math.Round(stats.TempoMedioProcessamentoDias*10) / 10
	return stats, nil
}

func actorID(actor *models.User) *int64 {
	if actor == nil {
		return nil
	}
	return &actor.ID
}

func actorRole(actor *models.User) string {
	if actor == nil {
		return ""
	}
	return string(actor.Role)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
