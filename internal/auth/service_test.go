package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/riasas/ria-backend/internal/subscriptions"
	"github.com/riasas/ria-backend/internal/users"
	pkgauth "github.com/riasas/ria-backend/pkg/auth"
	"github.com/riasas/ria-backend/pkg/config"
	"github.com/riasas/ria-backend/pkg/db/models"
	"github.com/riasas/ria-backend/pkg/enums"
	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
	"github.com/riasas/ria-backend/pkg/logger"
	"github.com/riasas/ria-backend/pkg/security"
)

type stubUserService struct {
	byEmail map[string]*models.User
	created []*models.User
}

func newStubUserService() *stubUserService {
	return &stubUserService{byEmail: map[string]*models.User{}}
}

func (s *stubUserService) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	if _, ok := s.byEmail[dto.Email]; ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	}
	user := dto.ToModel()
	user.ID = uuid.New()
	s.byEmail[user.Email] = user
	s.created = append(s.created, user)
	return user, nil
}

func (s *stubUserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, user := range s.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
}

func (s *stubUserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.byEmail[email]; ok {
		return user, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
}

func (s *stubUserService) UpdateProfile(ctx context.Context, id uuid.UUID, name string) (*users.UserDTO, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Name = name
	return users.FromModel(user), nil
}

type stubBootstrap struct {
	createdFor []uuid.UUID
}

func (s *stubBootstrap) CreateDefault(ctx context.Context, userID uuid.UUID) (*subscriptions.SubscriptionDTO, error) {
	s.createdFor = append(s.createdFor, userID)
	return &subscriptions.SubscriptionDTO{UserID: userID, Plan: "free"}, nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret-0123456789abcdef",
		Issuer:            "ria-backend-test",
		ExpirationMinutes: 15,
	}
}

func newAuthService(t *testing.T, usersSvc *stubUserService, bootstrap *stubBootstrap) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Users:         usersSvc,
		Subscriptions: bootstrap,
		JWT:           testJWTConfig(),
		Password:      config.PasswordConfig{},
		Logger:        logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestRegisterCreatesAccountWithDefaultSubscription(t *testing.T) {
	usersSvc := newStubUserService()
	bootstrap := &stubBootstrap{}
	svc := newAuthService(t, usersSvc, bootstrap)

	creds, err := svc.Register(context.Background(), "Ada", "ada@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(usersSvc.created) != 1 {
		t.Fatalf("expected one user, got %d", len(usersSvc.created))
	}
	if len(bootstrap.createdFor) != 1 || bootstrap.createdFor[0] != usersSvc.created[0].ID {
		t.Fatal("expected default subscription for the new user")
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), creds.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != usersSvc.created[0].ID || claims.Role != enums.UserRoleUser {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	usersSvc := newStubUserService()
	svc := newAuthService(t, usersSvc, &stubBootstrap{})

	_, err := svc.Register(context.Background(), "Ada", "ada@example.com", "short")
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION, got %v", err)
	}
	if len(usersSvc.created) != 0 {
		t.Fatal("short password must not create a user")
	}
}

func TestLoginVerifiesPassword(t *testing.T) {
	usersSvc := newStubUserService()
	hash, err := security.HashPassword("s3cret-pass", config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{
		ID:           uuid.New(),
		Name:         "Ada",
		Email:        "ada@example.com",
		PasswordHash: hash,
		Role:         enums.UserRoleUser,
	}
	usersSvc.byEmail[user.Email] = user
	svc := newAuthService(t, usersSvc, &stubBootstrap{})

	creds, err := svc.Login(context.Background(), "ada@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if creds.User.ID != user.ID || creds.Token == "" {
		t.Fatal("expected credentials for the user")
	}

	_, err = svc.Login(context.Background(), "ada@example.com", "wrong-pass")
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
}

func TestLoginUnknownEmailIsUnauthorized(t *testing.T) {
	svc := newAuthService(t, newStubUserService(), &stubBootstrap{})

	_, err := svc.Login(context.Background(), "ghost@example.com", "whatever")
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
}
