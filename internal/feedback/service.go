package feedback

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/riasas/ria-backend/pkg/db/models"
	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
	"github.com/riasas/ria-backend/pkg/logger"
	"github.com/riasas/ria-backend/pkg/pagination"
)

// Feedback lifecycle statuses.
const (
	StatusNew      = "new"
	StatusRead     = "read"
	StatusReplied  = "replied"
	StatusArchived = "archived"
)

// Feedback types. TypeCancellation entries are written by the subscription
// cancel flow to capture the churn reason.
const (
	TypeGeneral      = "general"
	TypeBug          = "bug"
	TypeFeature      = "feature"
	TypeCancellation = "cancellation"
)

func validStatus(status string) bool {
	switch status {
	case StatusNew, StatusRead, StatusReplied, StatusArchived:
		return true
	}
	return false
}

func validType(kind string) bool {
	switch kind {
	case TypeGeneral, TypeBug, TypeFeature, TypeCancellation:
		return true
	}
	return false
}

type SubmitInput struct {
	Type    string `json:"type"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type Service interface {
	Submit(ctx context.Context, userID uuid.UUID, input SubmitInput) (*FeedbackDTO, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]FeedbackDTO, *pagination.Result, error)
	List(ctx context.Context, status string, params pagination.Params) ([]FeedbackDTO, *pagination.Result, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*FeedbackDTO, error)
	Respond(ctx context.Context, id uuid.UUID, response string) (*FeedbackDTO, error)
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
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "feedback repo required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{repo: params.Repo, logg: params.Logger}, nil
}

func (s *service) Submit(ctx context.Context, userID uuid.UUID, input SubmitInput) (*FeedbackDTO, error) {
	input.Type = strings.TrimSpace(strings.ToLower(input.Type))
	input.Subject = strings.TrimSpace(input.Subject)
	input.Message = strings.TrimSpace(input.Message)

	if input.Type == "" {
		input.Type = TypeGeneral
	}
	if !validType(input.Type) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown feedback type")
	}
	if input.Message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message is required")
	}

	entry := &models.Feedback{
		UserID:  userID,
		Type:    input.Type,
		Subject: input.Subject,
		Message: input.Message,
		Status:  StatusNew,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create feedback")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"user_id": userID.String(), "type": entry.Type}), "feedback submitted")
	dto := fromModel(entry)
	return &dto, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]FeedbackDTO, *pagination.Result, error) {
	params = params.Normalize()
	rows, total, err := s.repo.ListByUser(ctx, userID, params.Offset(), params.Limit)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list feedback")
	}
	return toDTOs(rows), &pagination.Result{Total: total, Page: params.Page, Limit: params.Limit}, nil
}

func (s *service) List(ctx context.Context, status string, params pagination.Params) ([]FeedbackDTO, *pagination.Result, error) {
	if status != "" && !validStatus(status) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown feedback status")
	}
	params = params.Normalize()
	rows, total, err := s.repo.List(ctx, status, params.Offset(), params.Limit)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list feedback")
	}
	return toDTOs(rows), &pagination.Result{Total: total, Page: params.Page, Limit: params.Limit}, nil
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*FeedbackDTO, error) {
	if !validStatus(status) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown feedback status")
	}
	entry, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	entry.Status = status
	if err := s.repo.Update(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update feedback")
	}
	dto := fromModel(entry)
	return &dto, nil
}

func (s *service) Respond(ctx context.Context, id uuid.UUID, response string) (*FeedbackDTO, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "response is required")
	}
	entry, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry.Response = &response
	entry.RespondedAt = &now
	entry.Status = StatusReplied
	if err := s.repo.Update(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update feedback")
	}

	s.logg.Info(s.logg.WithField(ctx, "feedback_id", id.String()), "feedback responded")
	dto := fromModel(entry)
	return &dto, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Feedback, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "feedback not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load feedback")
	}
	return entry, nil
}
