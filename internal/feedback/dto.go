package feedback

import (
	"time"

	"github.com/google/uuid"

	"github.com/riasas/ria-backend/pkg/db/models"
)

type FeedbackDTO struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"userId"`
	Type        string     `json:"type"`
	Subject     string     `json:"subject,omitempty"`
	Message     string     `json:"message"`
	Status      string     `json:"status"`
	Response    *string    `json:"response,omitempty"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func fromModel(m *models.Feedback) FeedbackDTO {
	return FeedbackDTO{
		ID:          m.ID,
		UserID:      m.UserID,
		Type:        m.Type,
		Subject:     m.Subject,
		Message:     m.Message,
		Status:      m.Status,
		Response:    m.Response,
		RespondedAt: m.RespondedAt,
		CreatedAt:   m.CreatedAt,
	}
}

func toDTOs(rows []models.Feedback) []FeedbackDTO {
	dtos := make([]FeedbackDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, fromModel(&rows[i]))
	}
	return dtos
}
