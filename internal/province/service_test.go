package province_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"aquicultura/internal/audit"
	auditmemory "aquicultura/internal/audit/store/memory"
	"aquicultura/internal/project"
	projectmemory "aquicultura/internal/project/store/memory"
	"aquicultura/internal/province"
	provincememory "aquicultura/internal/province/store/memory"
	"aquicultura/internal/user/models"
	domainerrors "aquicultura/pkg/domainerrors"
	"aquicultura/pkg/platform/tx"
)

type ProvinceServiceSuite struct {
	suite.Suite
	provinces *provincememory.Store
	projects  *project.Service
	svc       *province.Service
	ctx       context.Context
	actor     *models.User
}

func TestProvinceServiceSuite(t *testing.T) {
	suite.Run(t, new(ProvinceServiceSuite))
}

func (s *ProvinceServiceSuite) SetupTest() {
	s.provinces = provincememory.New()
	s.provinces.Seed("Luanda", "Benguela", "Namibe")

	projectStore := projectmemory.New()
	auditor := audit.NewService(auditmemory.New(), nil, nil)
	s.projects = project.NewService(projectStore, auditor, tx.Passthrough{}, s.provinces)
	s.svc = province.NewService(s.provinces, projectStore)
	s.ctx = context.Background()
	s.actor = &models.User{ID: 1, Role: models.RoleRoot, IsActive: true}
}

func (s *ProvinceServiceSuite) addProject(provinciaID int64, estado project.Estado, previsto, executado float64) {
	in := project.CreateInput{
		Nome:                 "Projeto",
		ProvinciaID:          provinciaID,
		Tipo:                 project.TipoComunitario,
		FonteFinanciamento:   project.FonteAFAP2,
		Estado:               estado,
		Responsavel:          "Ana",
		OrcamentoPrevistoKz:  previsto,
		OrcamentoExecutadoKz: executado,
		DataInicioPrevista:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		DataFimPrevista:      time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	_, err := s.projects.Create(s.ctx, s.actor, in)
	s.Require().NoError(err)
}

func (s *ProvinceServiceSuite) TestListSortedByName() {
	provinces, err := s.svc.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(provinces, 3)
	s.Equal("Benguela", provinces[0].Nome)
	s.Equal("Luanda", provinces[1].Nome)
	s.Equal("Namibe", provinces[2].Nome)
}

func (s *ProvinceServiceSuite) TestGet() {
	p, err := s.svc.Get(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal("Luanda", p.Nome)

	_, err = s.svc.Get(s.ctx, 99)
	s.True(domainerrors.Is(err, domainerrors.CodeNotFound))
}

func (s *ProvinceServiceSuite) TestMapIncludesEmptyProvinces() {
	s.addProject(1, project.EstadoEmExecucao, 1000000, 250000)
	s.addProject(1, project.EstadoPlaneado, 500000, 0)

	entries, err := s.svc.Map(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)

	byName := make(map[string]province.MapEntry)
	for _, e := range entries {
		byName[e.Nome] = e
	}

	luanda := byName["Luanda"]
	s.Equal(int64(2), luanda.TotalProjetos)
	s.Equal(int64(1), luanda.Estatisticas.EmExecucao)
	s.Equal(int64(1), luanda.Estatisticas.Planeado)
	s.InDelta(1500000, luanda.OrcamentoTotalKz, 0.01)
	s.InDelta(16.67, luanda.ExecucaoPercentual, 0.01)
	s.Equal("blue", luanda.Cor)
	s.InDelta(-8.8, luanda.Coordenadas.Lat, 0.01)

	// A province with no projects still renders, gray and zeroed.
	namibe := byName["Namibe"]
	s.Zero(namibe.TotalProjetos)
	s.Equal("gray", namibe.Cor)
	s.Zero(namibe.ExecucaoPercentual)
}

func (s *ProvinceServiceSuite) TestMapColorPrecedence() {
	s.addProject(2, project.EstadoConcluido, 100, 100)
	s.addProject(3, project.EstadoSuspenso, 100, 0)

	entries, err := s.svc.Map(s.ctx)
	s.Require().NoError(err)

	byName := make(map[string]province.MapEntry)
	for _, e := range entries {
		byName[e.Nome] = e
	}
	s.Equal("green", byName["Benguela"].Cor)
	s.Equal("red", byName["Namibe"].Cor)
}
