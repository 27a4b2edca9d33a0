package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Specific errors below wrap one of these so callers can
// branch with errors.Is on the kind.
var (
	ErrValidation         = errors.New("validation error")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrDuplicateRequest   = errors.New("duplicate request")
	ErrUnknownTransaction = errors.New("unknown transaction")
	ErrPersistence        = errors.New("persistence error")
)

// Membership errors
var (
	ErrGroupNotFound   = fmt.Errorf("%w: group", ErrNotFound)
	ErrRequestNotFound = fmt.Errorf("%w: pending membership request", ErrNotFound)
	ErrNotAMember      = fmt.Errorf("%w: not a group member", ErrUnauthorized)
	ErrAlreadyMember   = fmt.Errorf("%w: already a group member", ErrDuplicateRequest)
	ErrNotGroupAdmin   = fmt.Errorf("%w: not the group admin", ErrUnauthorized)
	ErrGroupNameTaken  = fmt.Errorf("%w: group name already taken", ErrDuplicateRequest)
)

// Loan errors
var (
	ErrLoanNotFound  = fmt.Errorf("%w: loan", ErrNotFound)
	ErrInvalidAmount = fmt.Errorf("%w: amount must be greater than 0", ErrValidation)
	ErrAdminRequired = fmt.Errorf("%w: admin role required", ErrUnauthorized)
	ErrNotLoanOwner  = fmt.Errorf("%w: loan belongs to another member", ErrUnauthorized)
)

// Savings errors
var (
	ErrDepositNotFound    = fmt.Errorf("%w: deposit", ErrUnknownTransaction)
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayTimeout     = fmt.Errorf("%w: timed out", ErrGatewayUnavailable)
	ErrGatewayRejected    = fmt.Errorf("%w: request rejected", ErrGatewayUnavailable)
)

// User errors
var (
	ErrMemberNotFound       = fmt.Errorf("%w: member", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("%w: notification", ErrNotFound)
	ErrMeetingNotFound      = fmt.Errorf("%w: meeting", ErrNotFound)
)

// Persistence wraps a store failure so it matches ErrPersistence while
// keeping the cause inspectable.
func Persistence(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

// Invalid builds a validation error with a message
func Invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
