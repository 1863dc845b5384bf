package admin

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/riasas/ria-backend/api/middleware"
	"github.com/riasas/ria-backend/internal/audit"
)

// requestActor captures who is performing an admin action, taken from the
// authenticated request context rather than ambient state.
func requestActor(r *http.Request) audit.Actor {
	actor := audit.Actor{
		Email: middleware.EmailFromContext(r.Context()),
		IP:    middleware.ClientIP(r),
	}
	if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			actor.ID = &id
		}
	}
	return actor
}
