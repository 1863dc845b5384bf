package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/riasas/ria-backend/api/middleware"
	"github.com/riasas/ria-backend/internal/audit"
	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
)

func currentUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

// currentActor builds the audit actor from the authenticated request.
func currentActor(r *http.Request) audit.Actor {
	actor := audit.Actor{
		Email: middleware.EmailFromContext(r.Context()),
		IP:    middleware.ClientIP(r),
	}
	if id, err := currentUserID(r); err == nil {
		actor.ID = &id
	}
	return actor
}
