package models

import "github.com/google/uuid"

// Identity is the read-only profile projection joined onto memberships for display.
type Identity struct {
	SubjectID      uuid.UUID `json:"subject_id"`
	DisplayName    string    `json:"display_name"`
	AvatarURL      string    `json:"avatar_url,omitempty"`
	ContactAddress string    `json:"contact_address"`
}
