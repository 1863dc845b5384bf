package users

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/riasas/ria-backend/pkg/enums"
	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
	"github.com/riasas/ria-backend/pkg/logger"
	"github.com/riasas/ria-backend/pkg/pagination"

	"github.com/riasas/ria-backend/pkg/db/models"
)

// RoleChange reports the before/after of a role update, for audit trails.
type RoleChange struct {
	User    *UserDTO
	OldRole enums.UserRole
	NewRole enums.UserRole
}

// Service manages tenant accounts and the admin operations on them.
type Service interface {
	Create(ctx context.Context, dto CreateUserDTO) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]UserDTO, *pagination.Result, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name string) (*UserDTO, error)
	ChangeRole(ctx context.Context, id uuid.UUID, role enums.UserRole) (*RoleChange, error)
	Suspend(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	Activate(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error
}

type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
}

type service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repo required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{repo: params.Repo, logg: params.Logger}, nil
}

func (s *service) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	dto.Email = strings.ToLower(strings.TrimSpace(dto.Email))
	if dto.Email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if dto.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if dto.PasswordHash == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password hash is required")
	}

	if _, err := s.repo.FindByEmail(ctx, dto.Email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check email")
	}

	user := dto.ToModel()
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}
	return user, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.load(ctx, id)
}

func (s *service) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]UserDTO, *pagination.Result, error) {
	params = params.Normalize()
	rows, total, err := s.repo.List(ctx, filter, params.Offset(), params.Limit)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	dtos := make([]UserDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	return dtos, &pagination.Result{Total: total, Page: params.Page, Limit: params.Limit}, nil
}

func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, name string) (*UserDTO, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Name = name
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
	}
	return FromModel(user), nil
}

func (s *service) ChangeRole(ctx context.Context, id uuid.UUID, role enums.UserRole) (*RoleChange, error) {
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	oldRole := user.Role
	user.Role = role
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user role")
	}
	return &RoleChange{User: FromModel(user), OldRole: oldRole, NewRole: role}, nil
}

func (s *service) Suspend(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	return s.setStatus(ctx, id, enums.UserStatusSuspended)
}

func (s *service) Activate(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	return s.setStatus(ctx, id, enums.UserStatusActive)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user")
	}
	s.logg.Info(s.logg.WithUserID(ctx, id.String()), "user deleted")
	return nil
}

func (s *service) SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error {
	if customerID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if err := s.repo.SetStripeCustomerID(ctx, id, customerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist customer id")
	}
	return nil
}

func (s *service) setStatus(ctx context.Context, id uuid.UUID, status enums.UserStatus) (*UserDTO, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Status = status
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user status")
	}
	return FromModel(user), nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}
