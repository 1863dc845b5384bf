package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/riasas/ria-backend/api/responses"
	"github.com/riasas/ria-backend/api/validators"
	"github.com/riasas/ria-backend/internal/audit"
	"github.com/riasas/ria-backend/internal/feedback"
	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
	"github.com/riasas/ria-backend/pkg/logger"
)

type feedbackStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type feedbackRespondRequest struct {
	Response string `json:"response" validate:"required,max=5000"`
}

func FeedbackList(svc feedback.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "feedback service unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, result, err := svc.List(r.Context(), r.URL.Query().Get("status"), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, items, result)
	}
}

func FeedbackUpdateStatus(svc feedback.Service, auditSvc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "feedback service unavailable"))
			return
		}

		feedbackID, err := validators.ParsePathUUID(chi.URLParam(r, "feedbackId"), "feedbackId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload feedbackStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.UpdateStatus(r.Context(), feedbackID, payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target := feedbackID.String()
		if err := auditSvc.Record(r.Context(), requestActor(r), audit.ActionUpdateFeedback, &target, map[string]string{"status": payload.Status}); err != nil {
			logg.Error(r.Context(), "record feedback status audit entry", err)
		}
		responses.WriteSuccess(w, updated)
	}
}

func FeedbackRespond(svc feedback.Service, auditSvc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "feedback service unavailable"))
			return
		}

		feedbackID, err := validators.ParsePathUUID(chi.URLParam(r, "feedbackId"), "feedbackId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload feedbackRespondRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Respond(r.Context(), feedbackID, payload.Response)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target := feedbackID.String()
		if err := auditSvc.Record(r.Context(), requestActor(r), audit.ActionUpdateFeedback, &target, nil); err != nil {
			logg.Error(r.Context(), "record feedback respond audit entry", err)
		}
		responses.WriteSuccess(w, updated)
	}
}
