package planaxis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"aquicultura/internal/audit"
	"aquicultura/internal/project"
	"aquicultura/internal/user/models"
	domainerrors "aquicultura/pkg/domainerrors"
	"aquicultura/pkg/platform/sentinel"
	"aquicultura/pkg/platform/tx"
	"aquicultura/pkg/requestcontext"
)

// Upper bound on axes fetched when grouping a project's plan.
const groupMaxRows = 1000

// Auditor is the slice of the audit service the planning service needs.
type Auditor interface {
	Record(ctx context.Context, rec audit.Record) (*audit.Entry, error)
}

// ProjectDirectory confirms a parent project exists before an axis is
// attached to it. The project store satisfies this.
type ProjectDirectory interface {
	FindByID(ctx context.Context, projetoID int64) (*project.Projeto, error)
}

// Service owns 5W2H axis rules. Every mutation and its audit entry share one
// unit of work.
type Service struct {
	store    Store
	auditor  Auditor
	runner   tx.Runner
	projects ProjectDirectory
}

func NewService(store Store, auditor Auditor, runner tx.Runner, projects ProjectDirectory) *Service {
	return &Service{store: store, auditor: auditor, runner: runner, projects: projects}
}

// CreateInput carries the fields for a new axis.
type CreateInput struct {
	ProjetoID int64    `json:"projeto_id"`
	What      string   `json:"what"`
	Why       string   `json:"why"`
	Where     string   `json:"where"`
	When      string   `json:"when"`
	Who       string   `json:"who"`
	How       string   `json:"how"`
	HowMuchKz float64  `json:"how_much_kz"`
	Marcos    []string `json:"marcos"`
	Periodo   Periodo  `json:"periodo"`
}

// UpdateInput carries optional fields; nil means unchanged.
type UpdateInput struct {
	What      *string   `json:"what"`
	Why       *string   `json:"why"`
	Where     *string   `json:"where"`
	When      *string   `json:"when"`
	Who       *string   `json:"who"`
	How       *string   `json:"how"`
	HowMuchKz *float64  `json:"how_much_kz"`
	Marcos    *[]string `json:"marcos"`
	Periodo   *Periodo  `json:"periodo"`
}

func (s *Service) Create(ctx context.Context, actor *models.User, in CreateInput) (*Eixo, error) {
	switch {
	case in.ProjetoID <= 0:
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "projeto_id is required")
	case in.What == "" || in.Why == "" || in.Where == "" || in.When == "" || in.Who == "" || in.How == "":
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "all 5W fields and how are required")
	case in.HowMuchKz < 0:
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "how_much_kz must not be negative")
	case !in.Periodo.Valid():
		return nil, domainerrors.New(domainerrors.CodeBadRequest, fmt.Sprintf("unknown periodo %q", in.Periodo))
	}

	if s.projects != nil {
		if _, err := s.projects.FindByID(ctx, in.ProjetoID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, domainerrors.New(domainerrors.CodeNotFound, "project not found")
			}
			return nil, err
		}
	}

	eixo := &Eixo{
		ProjetoID: in.ProjetoID,
		What:      in.What,
		Why:       in.Why,
		Where:     in.Where,
		When:      in.When,
		Who:       in.Who,
		How:       in.How,
		HowMuchKz: in.HowMuchKz,
		Marcos:    in.Marcos,
		Periodo:   in.Periodo,
	}
	if eixo.Marcos == nil {
		eixo.Marcos = []string{}
	}

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, eixo); err != nil {
			return err
		}
		_, err := s.auditor.Record(ctx, audit.Record{
			UserID:     actorID(actor),
			Papel:      actorRole(actor),
			Acao:       audit.ActionCreate,
			Entidade:   "Eixo5W2H",
			EntidadeID: &eixo.ID,
			IP:         requestcontext.ClientIP(ctx),
			Detalhes:   fmt.Sprintf("Created axis for project %d, period %s", eixo.ProjetoID, eixo.Periodo),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return eixo, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Eixo, error) {
	eixo, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerrors.New(domainerrors.CodeNotFound, "axis not found")
		}
		return nil, err
	}
	return eixo, nil
}

func (s *Service) List(ctx context.Context, f Filter, skip, limit int) ([]Eixo, error) {
	return s.store.List(ctx, f, skip, limit)
}

func (s *Service) Update(ctx context.Context, actor *models.User, id int64, in UpdateInput) (*Eixo, error) {
	eixo, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var changes []audit.FieldChange
	if in.What != nil {
		changes = audit.Changed(changes, "what", eixo.What, *in.What)
		eixo.What = *in.What
	}
	if in.Why != nil {
		changes = audit.Changed(changes, "why", eixo.Why, *in.Why)
		eixo.Why = *in.Why
	}
	if in.Where != nil {
		changes = audit.Changed(changes, "where", eixo.Where, *in.Where)
		eixo.Where = *in.Where
	}
	if in.When != nil {
		changes = audit.Changed(changes, "when", eixo.When, *in.When)
		eixo.When = *in.When
	}
	if in.Who != nil {
		changes = audit.Changed(changes, "who", eixo.Who, *in.Who)
		eixo.Who = *in.Who
	}
	if in.How != nil {
		changes = audit.Changed(changes, "how", eixo.How, *in.How)
		eixo.How = *in.How
	}
	if in.HowMuchKz != nil {
		if *in.HowMuchKz < 0 {
			return nil, domainerrors.New(domainerrors.CodeBadRequest, "how_much_kz must not be negative")
		}
		changes = audit.Changed(changes, "how_much_kz", formatKz(eixo.HowMuchKz), formatKz(*in.HowMuchKz))
		eixo.HowMuchKz = *in.HowMuchKz
	}
	if in.Marcos != nil {
		changes = audit.Changed(changes, "marcos", strings.Join(eixo.Marcos, ", "), strings.Join(*in.Marcos, ", "))
		eixo.Marcos = *in.Marcos
	}
	if in.Periodo != nil {
		if !in.Periodo.Valid() {
			return nil, domainerrors.New(domainerrors.CodeBadRequest, fmt.Sprintf("unknown periodo %q", *in.Periodo))
		}
		changes = audit.Changed(changes, "periodo", string(eixo.Periodo), string(*in.Periodo))
		eixo.Periodo = *in.Periodo
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Update(ctx, eixo); err != nil {
			return err
		}
		detalhes := fmt.Sprintf("Updated axis for project %d", eixo.ProjetoID)
		if diff := audit.FormatChanges(changes); diff != "" {
			detalhes = fmt.Sprintf("Updated axis for project %d (%s)", eixo.ProjetoID, diff)
		}
		_, err := s.auditor.Record(ctx, audit.Record{
			UserID:     actorID(actor),
			Papel:      actorRole(actor),
			Acao:       audit.ActionUpdate,
			Entidade:   "Eixo5W2H",
			EntidadeID: &id,
			IP:         requestcontext.ClientIP(ctx),
			Detalhes:   detalhes,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return eixo, nil
}

func (s *Service) Delete(ctx context.Context, actor *models.User, id int64) error {
	eixo, err := s.Get(ctx, id)
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
			Entidade:   "Eixo5W2H",
			EntidadeID: &id,
			IP:         requestcontext.ClientIP(ctx),
			Detalhes:   fmt.Sprintf("Deleted axis for project %d", eixo.ProjetoID),
		})
		return err
	})
}

// ByProjectPeriodo groups a project's axes by period. Every period appears in
// the result even when empty, so the 18-month plan renders whole.
func (s *Service) ByProjectPeriodo(ctx context.Context, projetoID int64) (map[Periodo][]Eixo, error) {
	eixos, err := s.store.List(ctx, Filter{ProjetoID: &projetoID}, 0, groupMaxRows)
	if err != nil {
		return nil, err
	}

	grouped := make(map[Periodo][]Eixo, len(Periodos()))
	for _, p := range Periodos() {
		grouped[p] = []Eixo{}
	}
	for _, eixo := range eixos {
		grouped[eixo.Periodo] = append(grouped[eixo.Periodo], eixo)
	}
	return grouped, nil
}

// Stats returns the dashboard aggregate with every period present.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("axis stats: %w", err)
	}
	for _, p := range Periodos() {
		if _, ok := stats.PorPeriodo[p]; !ok {
			stats.PorPeriodo[p] = 0
		}
		if _, ok := stats.OrcamentoPorPeriodo[p]; !ok {
			stats.OrcamentoPorPeriodo[p] = 0
		}
	}
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

func formatKz(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
