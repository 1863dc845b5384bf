package models

import (
	"time"

	"github.com/google/uuid"
)

// Feedback captures user-submitted feedback, including the reason and free
// text collected when a subscription is canceled.
type Feedback struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index"`
	Type        string     `gorm:"column:type;not null"`
	Subject     string     `gorm:"column:subject"`
	Message     string     `gorm:"column:message"`
	Status      string     `gorm:"column:status;not null;default:'new'"`
	Response    *string    `gorm:"column:response"`
	RespondedAt *time.Time `gorm:"column:responded_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
