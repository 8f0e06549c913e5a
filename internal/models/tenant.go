package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is a company. Its founding user is always the implicit owner.
type Tenant struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	FoundingUserID uuid.UUID `json:"founding_user_id" db:"founding_user_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
