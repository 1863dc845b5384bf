package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Setting stores one named configuration section as a JSON document. Writes
// replace the whole section; the most recent write wins.
type Setting struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Section   string          `gorm:"column:section;not null;uniqueIndex"`
	Value     json.RawMessage `gorm:"column:value;type:jsonb;not null"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
