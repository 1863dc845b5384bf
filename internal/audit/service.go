package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/riasas/ria-backend/pkg/db/models"
	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
	"github.com/riasas/ria-backend/pkg/logger"
	"github.com/riasas/ria-backend/pkg/pagination"
)

// Actions recorded by the admin surface.
const (
	ActionSuspendUser        = "SUSPEND_USER"
	ActionActivateUser       = "ACTIVATE_USER"
	ActionDeleteUser         = "DELETE_USER"
	ActionChangeRole         = "CHANGE_ROLE"
	ActionAssignPlan         = "ASSIGN_PLAN"
	ActionCancelSubscription = "CANCEL_SUBSCRIPTION"
	ActionUpdatePlan         = "UPDATE_PLAN"
	ActionUpdateSettings     = "UPDATE_SETTINGS"
	ActionUpdateFeedback     = "UPDATE_FEEDBACK"
)

// Actor identifies who performed an action. It is always passed explicitly;
// there is no ambient request state behind Record.
type Actor struct {
	ID    *uuid.UUID
	Email string
	IP    string
}

// EntryDTO is the transport shape of one audit row.
type EntryDTO struct {
	ID         uuid.UUID       `json:"id"`
	ActorID    *uuid.UUID      `json:"actorId,omitempty"`
	ActorEmail string          `json:"actorEmail"`
	Action     string          `json:"action"`
	Target     *string         `json:"target,omitempty"`
	IPAddress  string          `json:"ipAddress,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

func fromModel(m *models.AuditLog) EntryDTO {
	return EntryDTO{
		ID:         m.ID,
		ActorID:    m.ActorID,
		ActorEmail: m.ActorEmail,
		Action:     m.Action,
		Target:     m.Target,
		IPAddress:  m.IPAddress,
		Metadata:   m.Metadata,
		CreatedAt:  m.CreatedAt,
	}
}

// Service is the append-only audit trail.
type Service interface {
	Record(ctx context.Context, actor Actor, action string, target *string, metadata any) error
	List(ctx context.Context, params pagination.Params) ([]EntryDTO, *pagination.Result, error)
	Recent(ctx context.Context, limit int) ([]EntryDTO, error)
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
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "audit repo required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{repo: params.Repo, logg: params.Logger}, nil
}

func (s *service) Record(ctx context.Context, actor Actor, action string, target *string, metadata any) error {
	if action == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "action is required")
	}
	if actor.Email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor email is required")
	}

	var raw json.RawMessage
	if metadata != nil {
		encoded, err := json.Marshal(metadata)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode audit metadata")
		}
		raw = encoded
	}

	entry := &models.AuditLog{
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		Action:     action,
		Target:     target,
		IPAddress:  actor.IP,
		Metadata:   raw,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write audit entry")
	}
	return nil
}

func (s *service) List(ctx context.Context, params pagination.Params) ([]EntryDTO, *pagination.Result, error) {
	params = params.Normalize()
	rows, total, err := s.repo.List(ctx, params.Offset(), params.Limit)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit entries")
	}
	dtos := make([]EntryDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, fromModel(&rows[i]))
	}
	return dtos, &pagination.Result{Total: total, Page: params.Page, Limit: params.Limit}, nil
}

func (s *service) Recent(ctx context.Context, limit int) ([]EntryDTO, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recent audit entries")
	}
	dtos := make([]EntryDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, fromModel(&rows[i]))
	}
	return dtos, nil
}
