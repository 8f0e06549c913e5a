package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

// Assignable reports whether the role may be given through invite or role change.
func (r Role) Assignable() bool {
	return r == RoleAdmin || r == RoleViewer
}

func (r Role) Valid() bool {
	return r == RoleOwner || r.Assignable()
}

type MembershipStatus string

const (
	StatusPending  MembershipStatus = "pending"
	StatusAccepted MembershipStatus = "accepted"
	StatusDeclined MembershipStatus = "declined"
)

// Terminal reports whether the status no longer blocks a new invitation.
func (s MembershipStatus) Terminal() bool {
	return s == StatusDeclined
}

type Membership struct {
	ID           uuid.UUID        `json:"id" db:"id"`
	TenantID     uuid.UUID        `json:"tenant_id" db:"tenant_id"`
	SubjectID    *uuid.UUID       `json:"subject_id,omitempty" db:"subject_id"`
	Role         Role             `json:"role" db:"role"`
	Status       MembershipStatus `json:"status" db:"status"`
	InvitedBy    *uuid.UUID       `json:"invited_by,omitempty" db:"invited_by"`
	InvitedEmail *string          `json:"invited_email,omitempty" db:"invited_email"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
}

// HasSubject reports whether the membership is resolved to the given subject.
func (m *Membership) HasSubject(id uuid.UUID) bool {
	return m.SubjectID != nil && *m.SubjectID == id
}

// RosterEntry is one display-ready row of a company's member directory.
type RosterEntry struct {
	MembershipID   uuid.UUID        `json:"membership_id"`
	TenantID       uuid.UUID        `json:"tenant_id"`
	SubjectID      *uuid.UUID       `json:"subject_id,omitempty"`
	Role           Role             `json:"role"`
	Status         MembershipStatus `json:"status"`
	DisplayName    string           `json:"display_name"`
	AvatarURL      string           `json:"avatar_url,omitempty"`
	ContactAddress string           `json:"contact_address,omitempty"`
	InvitedBy      *uuid.UUID       `json:"invited_by,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	// Synthesized marks the owner row derived from the tenant record.
	Synthesized bool `json:"synthesized,omitempty"`
}
