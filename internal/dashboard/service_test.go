package dashboard_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"aquicultura/internal/audit"
	auditmemory "aquicultura/internal/audit/store/memory"
	"aquicultura/internal/dashboard"
	"aquicultura/internal/indicator"
	indicatormemory "aquicultura/internal/indicator/store/memory"
	"aquicultura/internal/licensing"
	licensingmemory "aquicultura/internal/licensing/store/memory"
	"aquicultura/internal/planaxis"
	planaxismemory "aquicultura/internal/planaxis/store/memory"
	"aquicultura/internal/project"
	projectmemory "aquicultura/internal/project/store/memory"
	"aquicultura/internal/province"
	provincememory "aquicultura/internal/province/store/memory"
	"aquicultura/internal/user/models"
	"aquicultura/pkg/platform/tx"
)

type DashboardServiceSuite struct {
	suite.Suite
	svc      *dashboard.Service
	projects *project.Service
	licences *licensing.Service
	ctx      context.Context
	actor    *models.User
}

func TestDashboardServiceSuite(t *testing.T) {
	suite.Run(t, new(DashboardServiceSuite))
}

func (s *DashboardServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.actor = &models.User{ID: 1, Role: models.RoleGestaoDados, IsActive: true}

	auditStore := auditmemory.New()
	auditor := audit.NewService(auditStore, nil, nil)

	projectStore := projectmemory.New()
	provinceStore := provincememory.New()
	provinceStore.Seed("Luanda", "Benguela", "Namibe")

	s.projects = project.NewService(projectStore, auditor, tx.Passthrough{}, provinceStore)
	indicators := indicator.NewService(indicatormemory.New(), auditor, tx.Passthrough{}, projectStore)
	s.licences = licensing.NewService(licensingmemory.New(), auditor, tx.Passthrough{}, projectStore)
	plans := planaxis.NewService(planaxismemory.New(), auditor, tx.Passthrough{}, projectStore)
	provinces := province.NewService(provinceStore, projectStore)

	s.svc = dashboard.NewService(s.projects, indicators, s.licences, plans, provinces, auditor)
}

func (s *DashboardServiceSuite) seed() {
	p, err := s.projects.Create(s.ctx, s.actor, project.CreateInput{
		Nome:                 "Aquicultura Familiar",
		ProvinciaID:          1,
		Tipo:                 project.TipoComunitario,
		FonteFinanciamento:   project.FonteFADEPA,
		Estado:               project.EstadoEmExecucao,
		Responsavel:          "Ana",
		OrcamentoPrevistoKz:  1000000,
		OrcamentoExecutadoKz: 400000,
		DataInicioPrevista:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		DataFimPrevista:      time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	s.Require().NoError(err)

	_, err = s.licences.Create(s.ctx, s.actor, licensing.CreateInput{
		ProjetoID:           p.ID,
		EntidadeResponsavel: licensing.EntidadeIPA,
		DataSubmissao:       time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	s.Require().NoError(err)
}

func (s *DashboardServiceSuite) TestOverviewAggregates() {
	s.seed()

	overview, err := s.svc.Overview(s.ctx, s.actor)
	s.Require().NoError(err)

	s.Equal(int64(1), overview.Projetos.TotalProjetos)
	s.Equal(int64(1), overview.Licenciamentos.PorStatus[licensing.StatusPendente])
	s.Zero(overview.Indicadores.TotalIndicadores)
	s.NotNil(overview.Eixos)
	s.Len(overview.Mapa, 3)

	s.Equal(int64(1), overview.Resumo.TotalProjetos)
	s.Equal(int64(1), overview.Resumo.ProjetosAtivos)
	s.Equal(1, overview.Resumo.TotalProvinciasCobertas)
	s.Equal(int64(1), overview.Resumo.LicencasPendentes)
	s.Zero(overview.Resumo.LicencasAprovadas)
}

func (s *DashboardServiceSuite) TestAuditStatsOnlyForRoot() {
	s.seed()

	overview, err := s.svc.Overview(s.ctx, s.actor)
	s.Require().NoError(err)
	s.Nil(overview.Auditoria)

	root := &models.User{ID: 2, Role: models.RoleRoot, IsActive: true}
	overview, err = s.svc.Overview(s.ctx, root)
	s.Require().NoError(err)
	s.Require().NotNil(overview.Auditoria)
	s.Positive(overview.Auditoria.TotalLogs)
}

func (s *DashboardServiceSuite) TestOverviewEmptySystem() {
	overview, err := s.svc.Overview(s.ctx, s.actor)
	s.Require().NoError(err)

	s.Zero(overview.Resumo.TotalProjetos)
	s.Zero(overview.Resumo.TotalProvinciasCobertas)
	s.Len(overview.Mapa, 3)
}
