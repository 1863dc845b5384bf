package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditLog is an append-only record of an admin action. Rows are written once
// and never updated or deleted.
type AuditLog struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ActorID    *uuid.UUID      `gorm:"column:actor_id;type:uuid;index"`
	ActorEmail string          `gorm:"column:actor_email;not null"`
	Action     string          `gorm:"column:action;not null;index"`
	Target     *string         `gorm:"column:target"`
	IPAddress  string          `gorm:"column:ip_address"`
	Metadata   json.RawMessage `gorm:"column:metadata;type:jsonb"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}
