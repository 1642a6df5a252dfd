package licensing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"aquicultura/internal/audit"
	auditmemory "aquicultura/internal/audit/store/memory"
	"aquicultura/internal/licensing"
	licensingmemory "aquicultura/internal/licensing/store/memory"
	"aquicultura/internal/project"
	projectmemory "aquicultura/internal/project/store/memory"
	"aquicultura/internal/user/models"
	domainerrors "aquicultura/pkg/domainerrors"
	"aquicultura/pkg/platform/tx"
)

type LicensingServiceSuite struct {
	suite.Suite
	auditLog *auditmemory.Store
	svc      *licensing.Service
	ctx      context.Context
	actor    *models.User
	projeto  *project.Projeto
}

func TestLicensingServiceSuite(t *testing.T) {
	suite.Run(t, new(LicensingServiceSuite))
}

func (s *LicensingServiceSuite) SetupTest() {
	s.auditLog = auditmemory.New()
	auditor := audit.NewService(s.auditLog, nil, nil)
	projectStore := projectmemory.New()
	projects := project.NewService(projectStore, auditor, tx.Passthrough{}, nil)
	s.svc = licensing.NewService(licensingmemory.New(), auditor, tx.Passthrough{}, projectStore)
	s.ctx = context.Background()
	s.actor = &models.User{ID: 3, Role: models.RoleGestaoDados, IsActive: true}

	p, err := projects.Create(s.ctx, s.actor, project.CreateInput{
		Nome:                "Projeto Base",
		ProvinciaID:         1,
		Tipo:                project.TipoEmpresarial,
		FonteFinanciamento:  project.FonteAFAP2,
		Responsavel:         "Carlos",
		OrcamentoPrevistoKz: 2000000,
		DataInicioPrevista:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		DataFimPrevista:     time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	s.Require().NoError(err)
	s.projeto = p
}

func (s *LicensingServiceSuite) input() licensing.CreateInput {
	return licensing.CreateInput{
		ProjetoID:           s.projeto.ID,
		EntidadeResponsavel: licensing.EntidadeIPA,
		DataSubmissao:       time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	}
}

func (s *LicensingServiceSuite) lastEntry() audit.Entry {
	entries, err := s.auditLog.List(s.ctx, audit.Filter{}, 0, 1)
	s.Require().NoError(err)
	s.Require().NotEmpty(entries)
	return entries[0]
}

func (s *LicensingServiceSuite) TestCreateDefaultsToPendente() {
	lic, err := s.svc.Create(s.ctx, s.actor, s.input())
	s.Require().NoError(err)
	s.Equal(licensing.StatusPendente, lic.Status)
	s.Nil(lic.DataDecisao)

	entry := s.lastEntry()
	s.Equal(audit.ActionCreate, entry.Acao)
	s.Equal("Licenciamento", *entry.Entidade)
	s.Equal(lic.ID, *entry.EntidadeID)
}

func (s *LicensingServiceSuite) TestCreateValidation() {
	for name, mutate := range map[string]func(*licensing.CreateInput){
		"missing projeto":   func(in *licensing.CreateInput) { in.ProjetoID = 0 },
		"bad entidade":      func(in *licensing.CreateInput) { in.EntidadeResponsavel = "MINAGRI" },
		"missing submissao": func(in *licensing.CreateInput) { in.DataSubmissao = time.Time{} },
		"bad status":        func(in *licensing.CreateInput) { in.Status = "ARQUIVADO" },
	} {
		in := s.input()
		mutate(&in)
		_, err := s.svc.Create(s.ctx, s.actor, in)
		s.True(domainerrors.Is(err, domainerrors.CodeBadRequest), name)
	}
}

func (s *LicensingServiceSuite) TestCreateRequiresExistingProject() {
	in := s.input()
	in.ProjetoID = 999
	_, err := s.svc.Create(s.ctx, s.actor, in)
	s.True(domainerrors.Is(err, domainerrors.CodeNotFound))
}

func (s *LicensingServiceSuite) TestUpdateStatusApprovalStampsDecision() {
	lic, err := s.svc.Create(s.ctx, s.actor, s.input())
	s.Require().NoError(err)

	obs := "Documentação completa"
	updated, err := s.svc.UpdateStatus(s.ctx, s.actor, lic.ID, licensing.StatusAprovado, &obs)
	s.Require().NoError(err)
	s.Equal(licensing.StatusAprovado, updated.Status)
	s.Require().NotNil(updated.DataDecisao)
	s.Require().NotNil(updated.Observacoes)
	s.Equal(obs, *updated.Observacoes)

	entry := s.lastEntry()
	s.Equal(audit.ActionStatusChange, entry.Acao)
	s.Equal("status: PENDENTE -> APROVADO", *entry.Detalhes)
}

func (s *LicensingServiceSuite) TestUpdateStatusEmAnaliseKeepsDecisionOpen() {
	lic, err := s.svc.Create(s.ctx, s.actor, s.input())
	s.Require().NoError(err)

	updated, err := s.svc.UpdateStatus(s.ctx, s.actor, lic.ID, licensing.StatusEmAnalise, nil)
	s.Require().NoError(err)
	s.Nil(updated.DataDecisao)
}

func (s *LicensingServiceSuite) TestUpdateStatusRejectsUnknown() {
	lic, err := s.svc.Create(s.ctx, s.actor, s.input())
	s.Require().NoError(err)

	_, err = s.svc.UpdateStatus(s.ctx, s.actor, lic.ID, "ARQUIVADO", nil)
	s.True(domainerrors.Is(err, domainerrors.CodeBadRequest))
}

func (s *LicensingServiceSuite) TestUpdateFieldDiff() {
	lic, err := s.svc.Create(s.ctx, s.actor, s.input())
	s.Require().NoError(err)

	entidade := licensing.EntidadeDNA
	_, err = s.svc.Update(s.ctx, s.actor, lic.ID, licensing.UpdateInput{EntidadeResponsavel: &entidade})
	s.Require().NoError(err)

	entry := s.lastEntry()
	s.Equal(audit.ActionUpdate, entry.Acao)
	s.Contains(*entry.Detalhes, "entidade_responsavel: IPA -> DNA")
}

func (s *LicensingServiceSuite) TestDelete() {
	lic, err := s.svc.Create(s.ctx, s.actor, s.input())
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Delete(s.ctx, s.actor, lic.ID))

	_, err = s.svc.Get(s.ctx, lic.ID)
	s.True(domainerrors.Is(err, domainerrors.CodeNotFound))
	s.Equal(audit.ActionDelete, s.lastEntry().Acao)
}

func (s *LicensingServiceSuite) TestListFilters() {
	first, err := s.svc.Create(s.ctx, s.actor, s.input())
	s.Require().NoError(err)

	obs := "Aguarda parecer técnico"
	second := s.input()
	second.EntidadeResponsavel = licensing.EntidadeDNA
	second.Observacoes = &obs
	_, err = s.svc.Create(s.ctx, s.actor, second)
	s.Require().NoError(err)

	list, err := s.svc.List(s.ctx, licensing.Filter{Entidade: licensing.EntidadeIPA}, 0, 100)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(first.ID, list[0].ID)

	list, err = s.svc.List(s.ctx, licensing.Filter{Search: "parecer"}, 0, 100)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(licensing.EntidadeDNA, list[0].EntidadeResponsavel)
}

func (s *LicensingServiceSuite) TestStats() {
	submitted := time.Now().UTC().Add(-10 * 24 * time.Hour)

	in := s.input()
	in.DataSubmissao = submitted
	lic, err := s.svc.Create(s.ctx, s.actor, in)
	s.Require().NoError(err)
	_, err = s.svc.UpdateStatus(s.ctx, s.actor, lic.ID, licensing.StatusAprovado, nil)
	s.Require().NoError(err)

	other := s.input()
	other.EntidadeResponsavel = licensing.EntidadeDNRM
	_, err = s.svc.Create(s.ctx, s.actor, other)
	s.Require().NoError(err)

	stats, err := s.svc.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), stats.TotalLicenciamentos)
	s.Len(stats.PorStatus, len(licensing.Statuses()))
	s.Len(stats.PorEntidade, len(licensing.Entidades()))
	s.Equal(int64(1), stats.PorStatus[licensing.StatusAprovado])
	s.Equal(int64(1), stats.PorStatus[licensing.StatusPendente])
	s.Zero(stats.PorStatus[licensing.StatusNegado])
	s.Equal(int64(1), stats.PorEntidade[licensing.EntidadeIPA])

	// one approved out of two, decided after ten days
	s.InDelta(50, stats.TaxaAprovacao, 0.01)
	s.InDelta(10, stats.TempoMedioProcessamentoDias, 0.11)
}
