package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/riasas/ria-backend/internal/subscriptions"
	"github.com/riasas/ria-backend/internal/users"
	pkgauth "github.com/riasas/ria-backend/pkg/auth"
	"github.com/riasas/ria-backend/pkg/config"
	"github.com/riasas/ria-backend/pkg/db/models"
	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
	"github.com/riasas/ria-backend/pkg/logger"
	"github.com/riasas/ria-backend/pkg/security"
)

type userService interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name string) (*users.UserDTO, error)
}

type subscriptionBootstrap interface {
	CreateDefault(ctx context.Context, userID uuid.UUID) (*subscriptions.SubscriptionDTO, error)
}

// Credentials is the authenticated session handed back to clients.
type Credentials struct {
	User  *users.UserDTO `json:"user"`
	Token string         `json:"token"`
}

// Service handles registration and credential verification.
type Service interface {
	Register(ctx context.Context, name, email, password string) (*Credentials, error)
	Login(ctx context.Context, email, password string) (*Credentials, error)
	Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, name string) (*users.UserDTO, error)
}

type ServiceParams struct {
	Users         userService
	Subscriptions subscriptionBootstrap
	JWT           config.JWTConfig
	Password      config.PasswordConfig
	Logger        *logger.Logger
}

type service struct {
	users       userService
	subs        subscriptionBootstrap
	jwtConfig   config.JWTConfig
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users service required")
	}
	if params.Subscriptions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscriptions service required")
	}
	if params.JWT.Secret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "jwt secret required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{
		users:       params.Users,
		subs:        params.Subscriptions,
		jwtConfig:   params.JWT,
		passwordCfg: params.Password,
		logg:        params.Logger,
	}, nil
}

// Register creates the account and its default free subscription, then
// returns a fresh access token.
func (s *service) Register(ctx context.Context, name, email, password string) (*Credentials, error) {
	if len(password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.subs.CreateDefault(ctx, user.ID); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user registered")
	return s.issueCredentials(user)
}

// Login verifies the password against the stored hash. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *service) Login(ctx context.Context, email, password string) (*Credentials, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, err
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	return s.issueCredentials(user)
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return users.FromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, name string) (*users.UserDTO, error) {
	return s.users.UpdateProfile(ctx, userID, name)
}

func (s *service) issueCredentials(user *models.User) (*Credentials, error) {
	token, err := pkgauth.MintAccessToken(s.jwtConfig, time.Now().UTC(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	return &Credentials{User: users.FromModel(user), Token: token}, nil
}
