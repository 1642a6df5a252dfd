package planaxis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"aquicultura/internal/audit"
	auditmemory "aquicultura/internal/audit/store/memory"
	"aquicultura/internal/planaxis"
	planaxismemory "aquicultura/internal/planaxis/store/memory"
	"aquicultura/internal/project"
	projectmemory "aquicultura/internal/project/store/memory"
	"aquicultura/internal/user/models"
	domainerrors "aquicultura/pkg/domainerrors"
	"aquicultura/pkg/platform/tx"
)

type PlanAxisServiceSuite struct {
	suite.Suite
	auditLog *auditmemory.Store
	svc      *planaxis.Service
	ctx      context.Context
	actor    *models.User
	projeto  *project.Projeto
}

func TestPlanAxisServiceSuite(t *testing.T) {
	suite.Run(t, new(PlanAxisServiceSuite))
}

func (s *PlanAxisServiceSuite) SetupTest() {
	s.auditLog = auditmemory.New()
	auditor := audit.NewService(s.auditLog, nil, nil)
	projectStore := projectmemory.New()
	projects := project.NewService(projectStore, auditor, tx.Passthrough{}, nil)
	s.svc = planaxis.NewService(planaxismemory.New(), auditor, tx.Passthrough{}, projectStore)
	s.ctx = context.Background()
	s.actor = &models.User{ID: 3, Role: models.RoleGestaoDados, IsActive: true}

	p, err := projects.Create(s.ctx, s.actor, project.CreateInput{
		Nome:                "Projeto Base",
		ProvinciaID:         1,
		Tipo:                project.TipoComunitario,
		FonteFinanciamento:  project.FonteFACRA,
		Responsavel:         "Marta",
		OrcamentoPrevistoKz: 3000000,
		DataInicioPrevista:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		DataFimPrevista:     time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	s.Require().NoError(err)
	s.projeto = p
}

func (s *PlanAxisServiceSuite) input() planaxis.CreateInput {
	return planaxis.CreateInput{
		ProjetoID: s.projeto.ID,
		What:      "Construir tanques de alevinagem",
		Why:       "Garantir produção local de alevinos",
		Where:     "Cacuaco",
		When:      "Primeiro semestre",
		Who:       "Equipa técnica do IPA",
		How:       "Empreitada supervisionada",
		HowMuchKz: 450000,
		Marcos:    []string{"Terreno preparado", "Tanques concluídos"},
		Periodo:   planaxis.Periodo0a6,
	}
}

func (s *PlanAxisServiceSuite) lastEntry() audit.Entry {
	entries, err := s.auditLog.List(s.ctx, audit.Filter{}, 0, 1)
	s.Require().NoError(err)
	s.Require().NotEmpty(entries)
	return entries[0]
}

func (s *PlanAxisServiceSuite) TestCreateAudits() {
	eixo, err := s.svc.Create(s.ctx, s.actor, s.input())
	s.Require().NoError(err)
	s.Equal([]string{"Terreno preparado", "Tanques concluídos"}, eixo.Marcos)

	entry := s.lastEntry()
	s.Equal(audit.ActionCreate, entry.Acao)
	s.Equal("Eixo5W2H", *entry.Entidade)
	s.Equal(eixo.ID, *entry.EntidadeID)
	s.Contains(*entry.Detalhes, "period 0-6")
}

func (s *PlanAxisServiceSuite) TestCreateDefaultsMarcos() {
	in := s.input()
	in.Marcos = nil
	eixo, err := s.svc.Create(s.ctx, s.actor, in)
	s.Require().NoError(err)
	s.NotNil(eixo.Marcos)
	s.Empty(eixo.Marcos)
}

func (s *PlanAxisServiceSuite) TestCreateValidation() {
	for name, mutate := range map[string]func(*planaxis.CreateInput){
		"missing projeto": func(in *planaxis.CreateInput) { in.ProjetoID = 0 },
		"missing what":    func(in *planaxis.CreateInput) { in.What = "" },
		"missing who":     func(in *planaxis.CreateInput) { in.Who = "" },
		"negative cost":   func(in *planaxis.CreateInput) { in.HowMuchKz = -1 },
		"bad periodo":     func(in *planaxis.CreateInput) { in.Periodo = "19-24" },
	} {
		in := s.input()
		mutate(&in)
		_, err := s.svc.Create(s.ctx, s.actor, in)
		s.True(domainerrors.Is(err, domainerrors.CodeBadRequest), name)
	}
}

func (s *PlanAxisServiceSuite) TestCreateRequiresExistingProject() {
	in := s.input()
	in.ProjetoID = 999
	_, err := s.svc.Create(s.ctx, s.actor, in)
	s.True(domainerrors.Is(err, domainerrors.CodeNotFound))
}

func (s *PlanAxisServiceSuite) TestUpdateFieldDiff() {
	eixo, err := s.svc.Create(s.ctx, s.actor, s.input())
	s.Require().NoError(err)

	cost := 600000.0
	periodo := planaxis.Periodo7a12
	_, err = s.svc.Update(s.ctx, s.actor, eixo.ID, planaxis.UpdateInput{
		HowMuchKz: &cost,
		Periodo:   &periodo,
	})
	s.Require().NoError(err)

	entry := s.lastEntry()
	s.Equal(audit.ActionUpdate, entry.Acao)
	s.Contains(*entry.Detalhes, "how_much_kz: 450000.00 -> 600000.00")
	s.Contains(*entry.Detalhes, "periodo: 0-6 -> 7-12")
}

func (s *PlanAxisServiceSuite) TestDelete() {
	eixo, err := s.svc.Create(s.ctx, s.actor, s.input())
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Delete(s.ctx, s.actor, eixo.ID))

	_, err = s.svc.Get(s.ctx, eixo.ID)
	s.True(domainerrors.Is(err, domainerrors.CodeNotFound))
	s.Equal(audit.ActionDelete, s.lastEntry().Acao)
}

func (s *PlanAxisServiceSuite) TestListSearch() {
	_, err := s.svc.Create(s.ctx, s.actor, s.input())
	s.Require().NoError(err)

	other := s.input()
	other.What = "Formar piscicultores"
	other.Who = "Extensionistas da DNA"
	other.Periodo = planaxis.Periodo7a12
	_, err = s.svc.Create(s.ctx, s.actor, other)
	s.Require().NoError(err)

	list, err := s.svc.List(s.ctx, planaxis.Filter{Search: "extensionistas"}, 0, 100)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal("Formar piscicultores", list[0].What)

	list, err = s.svc.List(s.ctx, planaxis.Filter{Periodo: planaxis.Periodo0a6}, 0, 100)
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *PlanAxisServiceSuite) TestByProjectPeriodoIncludesEmptyPeriods() {
	_, err := s.svc.Create(s.ctx, s.actor, s.input())
	s.Require().NoError(err)

	second := s.input()
	second.What = "Instalar fábrica de ração"
	second.Periodo = planaxis.Periodo13a18
	_, err = s.svc.Create(s.ctx, s.actor, second)
	s.Require().NoError(err)

	grouped, err := s.svc.ByProjectPeriodo(s.ctx, s.projeto.ID)
	s.Require().NoError(err)
	s.Len(grouped, len(planaxis.Periodos()))
	s.Len(grouped[planaxis.Periodo0a6], 1)
	s.Empty(grouped[planaxis.Periodo7a12])
	s.Len(grouped[planaxis.Periodo13a18], 1)
}

func (s *PlanAxisServiceSuite) TestStats() {
	_, err := s.svc.Create(s.ctx, s.actor, s.input())
	s.Require().NoError(err)

	second := s.input()
	second.HowMuchKz = 150000
	second.Periodo = planaxis.Periodo7a12
	_, err = s.svc.Create(s.ctx, s.actor, second)
	s.Require().NoError(err)

	stats, err := s.svc.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), stats.TotalEixos)
	s.Equal(int64(1), stats.ProjetosComEixos)
	s.Len(stats.PorPeriodo, len(planaxis.Periodos()))
	s.Equal(int64(1), stats.PorPeriodo[planaxis.Periodo0a6])
	s.Zero(stats.PorPeriodo[planaxis.Periodo13a18])
	s.InDelta(450000, stats.OrcamentoPorPeriodo[planaxis.Periodo0a6], 0.001)
	s.InDelta(150000, stats.OrcamentoPorPeriodo[planaxis.Periodo7a12], 0.001)
}
