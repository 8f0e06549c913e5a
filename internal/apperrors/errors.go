// Package apperrors holds the sentinel errors shared by the membership core.
// Transport layers map them to status codes with errors.Is.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrForbidden            = errors.New("not permitted")
	ErrDuplicateInvitation  = errors.New("already invited or already a member")
	ErrInvalidRole          = errors.New("invalid role")
	ErrNotFound             = errors.New("membership not found")
	ErrTenantNotFound       = errors.New("company not found")
	ErrDirectoryUnavailable = errors.New("member directory unavailable")
	ErrDeliveryFailed       = errors.New("invitation delivery failed")

	ErrInvalidContact = errors.New("invalid contact address")
	ErrInvalidState   = errors.New("invalid membership state")
	ErrInvalidInput   = errors.New("invalid input arguments")
)

// ErrOwnerRole is the Forbidden case for owner targets. It matches ErrForbidden
// under errors.Is and carries its own message.
var ErrOwnerRole = fmt.Errorf("%w: the owner cannot be changed or removed", ErrForbidden)
