package models

import (
	"time"

	"github.com/google/uuid"
)

// Client is a billable customer of a tenant.
type Client struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Name       string    `gorm:"column:name;not null"`
	Email      string    `gorm:"column:email"`
	Phone      string    `gorm:"column:phone"`
	Address    string    `gorm:"column:address"`
	City       string    `gorm:"column:city"`
	PostalCode string    `gorm:"column:postal_code"`
	Country    string    `gorm:"column:country"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
