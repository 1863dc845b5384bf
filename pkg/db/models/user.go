package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/riasas/ria-backend/pkg/enums"
)

// User is a tenant account. StripeCustomerID is set lazily the first time the
// billing gateway needs a customer for the user.
type User struct {
	ID               uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name             string           `gorm:"column:name;not null"`
	Email            string           `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash     string           `gorm:"column:password_hash;not null"`
	Role             enums.UserRole   `gorm:"column:role;not null;default:'user'"`
	Status           enums.UserStatus `gorm:"column:status;not null;default:'active'"`
	StripeCustomerID *string          `gorm:"column:stripe_customer_id;uniqueIndex"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// IsSuperadmin reports whether the user may access the admin surface.
func (u *User) IsSuperadmin() bool {
	return u.Role == enums.UserRoleSuperadmin
}
