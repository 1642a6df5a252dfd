package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"aquicultura/internal/audit"
	"aquicultura/internal/user/models"
	"aquicultura/internal/user/store"
	domainerrors "aquicultura/pkg/domainerrors"
	"aquicultura/pkg/platform/sentinel"
	"aquicultura/pkg/platform/tx"
	"aquicultura/pkg/requestcontext"
)

// Auditor is the slice of the audit service the user service needs.
type Auditor interface {
	Record(ctx context.Context, rec audit.Record) (*audit.Entry, error)
}

// Service owns user lifecycle rules: unique emails, bcrypt credentials, soft
// delete only. Every mutation and its audit entry share one unit of work.
type Service struct {
	users   store.Store
	auditor Auditor
	runner  tx.Runner
}

func New(users store.Store, auditor Auditor, runner tx.Runner) *Service {
	return &Service{users: users, auditor: auditor, runner: runner}
}

// CreateInput carries the fields an administrator supplies for a new user.
type CreateInput struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	FullName string      `json:"full_name"`
	Role     models.Role `json:"role"`
	IsActive *bool       `json:"is_active"`
}

// UpdateInput carries optional fields; nil means unchanged.
type UpdateInput struct {
	Email    *string      `json:"email"`
	FullName *string      `json:"full_name"`
	Role     *models.Role `json:"role"`
	IsActive *bool        `json:"is_active"`
	Password *string      `json:"password"`
}

func (s *Service) Create(ctx context.Context, actor *models.User, in CreateInput) (*models.User, error) {
	if in.Email == "" || in.Password == "" || in.FullName == "" {
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "email, password and full_name are required")
	}
	if in.Role == "" {
		in.Role = models.RoleVisualizacao
	}
	if !in.Role.Valid() {
		return nil, domainerrors.New(domainerrors.CodeBadRequest, fmt.Sprintf("unknown role %q", in.Role))
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:          in.Email,
		HashedPassword: string(hashed),
		FullName:       in.FullName,
		Role:           in.Role,
		IsActive:       true,
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return domainerrors.New(domainerrors.CodeBadRequest, "email already registered")
			}
			return err
		}
		_, err := s.auditor.Record(ctx, audit.Record{
			UserID:     actorID(actor),
			Papel:      actorRole(actor),
			Acao:       audit.ActionCreate,
			Entidade:   "User",
			EntidadeID: &user.ID,
			IP:         requestcontext.ClientIP(ctx),
			Detalhes:   fmt.Sprintf("Created user %s with role %s", user.Email, user.Role),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerrors.New(domainerrors.CodeNotFound, "user not found")
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) List(ctx context.Context, skip, limit int) ([]models.User, error) {
	return s.users.List(ctx, skip, limit)
}

func (s *Service) Update(ctx context.Context, actor *models.User, id int64, in UpdateInput) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var changes []audit.FieldChange
	if in.Email != nil {
		changes = audit.Changed(changes, "email", user.Email, *in.Email)
		user.Email = *in.Email
	}
	if in.FullName != nil {
		changes = audit.Changed(changes, "full_name", user.FullName, *in.FullName)
		user.FullName = *in.FullName
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, domainerrors.New(domainerrors.CodeBadRequest, fmt.Sprintf("unknown role %q", *in.Role))
		}
		changes = audit.Changed(changes, "role", string(user.Role), string(*in.Role))
		user.Role = *in.Role
	}
	if in.IsActive != nil {
		changes = audit.Changed(changes, "is_active", strconv.FormatBool(user.IsActive), strconv.FormatBool(*in.IsActive))
		user.IsActive = *in.IsActive
	}
	if in.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.HashedPassword = string(hashed)
		changes = append(changes, audit.FieldChange{Campo: "password", Antes: "***", Depois: "***"})
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.Update(ctx, user); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return domainerrors.New(domainerrors.CodeBadRequest, "email already registered")
			}
			return err
		}
		detalhes := fmt.Sprintf("Updated user %s", user.Email)
		if diff := audit.FormatChanges(changes); diff != "" {
			detalhes = fmt.Sprintf("Updated user %s (%s)", user.Email, diff)
		}
		_, err := s.auditor.Record(ctx, audit.Record{
			UserID:     actorID(actor),
			Papel:      actorRole(actor),
			Acao:       audit.ActionUpdate,
			Entidade:   "User",
			EntidadeID: &id,
			IP:         requestcontext.ClientIP(ctx),
			Detalhes:   detalhes,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Delete deactivates the user. The row and every audit entry referencing it
// remain untouched.
func (s *Service) Delete(ctx context.Context, actor *models.User, id int64) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.Deactivate(ctx, id); err != nil {
			return err
		}
		_, err := s.auditor.Record(ctx, audit.Record{
			UserID:     actorID(actor),
			Papel:      actorRole(actor),
			Acao:       audit.ActionDelete,
			Entidade:   "User",
			EntidadeID: &id,
			IP:         requestcontext.ClientIP(ctx),
			Detalhes:   fmt.Sprintf("Deactivated user %s", user.Email),
		})
		return err
	})
}

// ChangePassword is the self-service path; it verifies the current password
// before accepting the new one.
func (s *Service) ChangePassword(ctx context.Context, actor *models.User, oldPassword, newPassword string) error {
	user, err := s.Get(ctx, actor.ID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(oldPassword)) != nil {
		return domainerrors.New(domainerrors.CodeBadRequest, "incorrect password")
	}
	if newPassword == "" {
		return domainerrors.New(domainerrors.CodeBadRequest, "new password is required")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.HashedPassword = string(hashed)

	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.Update(ctx, user); err != nil {
			return err
		}
		_, err := s.auditor.Record(ctx, audit.Record{
			UserID:     &user.ID,
			Papel:      string(user.Role),
			Acao:       audit.ActionUpdate,
			Entidade:   "User",
			EntidadeID: &user.ID,
			IP:         requestcontext.ClientIP(ctx),
			Detalhes:   "Password changed",
		})
		return err
	})
}

// Authenticate verifies credentials without recording audit; the auth service
// owns the LOGIN entry.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerrors.New(domainerrors.CodeUnauthorized, "incorrect email or password")
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)) != nil {
		return nil, domainerrors.New(domainerrors.CodeUnauthorized, "incorrect email or password")
	}
	return user, nil
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
