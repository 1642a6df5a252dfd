package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"aquicultura/internal/audit"
	auditmemory "aquicultura/internal/audit/store/memory"
	"aquicultura/internal/user/models"
	"aquicultura/internal/user/store"
	domainerrors "aquicultura/pkg/domainerrors"
	"aquicultura/pkg/platform/tx"
)

type UserServiceSuite struct {
	suite.Suite
	users    *store.InMemory
	auditLog *auditmemory.Store
	svc      *Service
	ctx      context.Context
	admin    *models.User
}

func TestUserServiceSuite(t *testing.T) {
	suite.Run(t, new(UserServiceSuite))
}

func (s *UserServiceSuite) SetupTest() {
	s.users = store.NewInMemory()
	s.auditLog = auditmemory.New()
	s.svc = New(s.users, audit.NewService(s.auditLog, nil, nil), tx.Passthrough{})
	s.ctx = context.Background()

	admin, err := s.svc.Create(s.ctx, nil, CreateInput{
		Email:    "root@aquicultura.ao",
		Password: "admin123456",
		FullName: "Administrador",
		Role:     models.RoleRoot,
	})
	s.Require().NoError(err)
	s.admin = admin
}

func (s *UserServiceSuite) lastEntry() audit.Entry {
	entries, err := s.auditLog.List(s.ctx, audit.Filter{}, 0, 1)
	s.Require().NoError(err)
	s.Require().NotEmpty(entries)
	return entries[0]
}

func (s *UserServiceSuite) TestCreateHashesPasswordAndAudits() {
	user, err := s.svc.Create(s.ctx, s.admin, CreateInput{
		Email:    "gestor@aquicultura.ao",
		Password: "secret-password",
		FullName: "Gestor de Dados",
		Role:     models.RoleGestaoDados,
	})
	s.Require().NoError(err)
	s.NotEqual("secret-password", user.HashedPassword)
	s.True(user.IsActive)

	entry := s.lastEntry()
	s.Equal(audit.ActionCreate, entry.Acao)
	s.Equal("User", *entry.Entidade)
	s.Equal(user.ID, *entry.EntidadeID)
	s.Equal(s.admin.ID, *entry.UserID)
	s.Equal(string(models.RoleRoot), *entry.Papel)
	s.Contains(*entry.Detalhes, "gestor@aquicultura.ao")
	s.Contains(*entry.Detalhes, "GESTAO_DADOS")
}

func (s *UserServiceSuite) TestCreateDuplicateEmail() {
	_, err := s.svc.Create(s.ctx, s.admin, CreateInput{
		Email:    "ROOT@aquicultura.ao",
		Password: "x12345678",
		FullName: "Duplicado",
	})
	s.Require().Error(err)
	s.True(domainerrors.Is(err, domainerrors.CodeBadRequest))

	// Failed create leaves no audit entry.
	count, err := s.auditLog.Count(s.ctx, audit.Filter{Entidade: "User"})
	s.Require().NoError(err)
	s.Equal(int64(1), count) // only the admin bootstrap from SetupTest
}

func (s *UserServiceSuite) TestCreateRejectsUnknownRole() {
	_, err := s.svc.Create(s.ctx, s.admin, CreateInput{
		Email:    "x@aquicultura.ao",
		Password: "x12345678",
		FullName: "X",
		Role:     "SUPERUSER",
	})
	s.Require().Error(err)
	s.True(domainerrors.Is(err, domainerrors.CodeBadRequest))
}

func (s *UserServiceSuite) TestUpdateLogsFieldDiff() {
	role := models.RoleGestaoDados
	name := "Administrador Geral"
	_, err := s.svc.Update(s.ctx, s.admin, s.admin.ID, UpdateInput{
		FullName: &name,
		Role:     &role,
	})
	s.Require().NoError(err)

	entry := s.lastEntry()
	s.Equal(audit.ActionUpdate, entry.Acao)
	s.Contains(*entry.Detalhes, "full_name: Administrador -> Administrador Geral")
	s.Contains(*entry.Detalhes, "role: ROOT -> GESTAO_DADOS")

	// Single entry for the multi-field update.
	count, err := s.auditLog.Count(s.ctx, audit.Filter{Acao: audit.ActionUpdate})
	s.Require().NoError(err)
	s.Equal(int64(1), count)
}

func (s *UserServiceSuite) TestDeleteIsSoftAndPreservesAuditTrail() {
	user, err := s.svc.Create(s.ctx, s.admin, CreateInput{
		Email:    "viewer@aquicultura.ao",
		Password: "x12345678",
		FullName: "Visualizador",
		Role:     models.RoleVisualizacao,
	})
	s.Require().NoError(err)

	before, err := s.auditLog.Count(s.ctx, audit.Filter{})
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Delete(s.ctx, s.admin, user.ID))

	// Row still exists, only deactivated.
	got, err := s.svc.Get(s.ctx, user.ID)
	s.Require().NoError(err)
	s.False(got.IsActive)

	// Audit trail grew by exactly the DELETE entry; nothing was removed.
	after, err := s.auditLog.Count(s.ctx, audit.Filter{})
	s.Require().NoError(err)
	s.Equal(before+1, after)

	entry := s.lastEntry()
	s.Equal(audit.ActionDelete, entry.Acao)
	s.Contains(*entry.Detalhes, "Deactivated user viewer@aquicultura.ao")
}

func (s *UserServiceSuite) TestChangePasswordVerifiesOld() {
	err := s.svc.ChangePassword(s.ctx, s.admin, "wrong-password", "new-password-1")
	s.Require().Error(err)
	s.True(domainerrors.Is(err, domainerrors.CodeBadRequest))

	s.Require().NoError(s.svc.ChangePassword(s.ctx, s.admin, "admin123456", "new-password-1"))

	_, err = s.svc.Authenticate(s.ctx, "root@aquicultura.ao", "new-password-1")
	s.Require().NoError(err)

	entry := s.lastEntry()
	s.Equal(audit.ActionUpdate, entry.Acao)
	s.Equal("Password changed", *entry.Detalhes)
}

func (s *UserServiceSuite) TestAuthenticate() {
	user, err := s.svc.Authenticate(s.ctx, "root@aquicultura.ao", "admin123456")
	s.Require().NoError(err)
	s.Equal(s.admin.ID, user.ID)

	_, err = s.svc.Authenticate(s.ctx, "root@aquicultura.ao", "bad")
	s.True(domainerrors.Is(err, domainerrors.CodeUnauthorized))

	_, err = s.svc.Authenticate(s.ctx, "nobody@aquicultura.ao", "bad")
	s.True(domainerrors.Is(err, domainerrors.CodeUnauthorized))
}

func (s *UserServiceSuite) TestGetNotFound() {
	_, err := s.svc.Get(s.ctx, 999)
	s.Require().Error(err)
	s.True(domainerrors.Is(err, domainerrors.CodeNotFound))
}
