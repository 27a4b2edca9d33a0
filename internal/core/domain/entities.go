package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Role represents an application-level role
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Actor is the already-authenticated caller of a workflow operation
type Actor struct {
	MemberID uint
	Role     Role
}

// IsAdmin reports whether the actor holds the admin role
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// MembershipStatus is the state of a MembershipRequest
type MembershipStatus string

const (
	MembershipPending  MembershipStatus = "pending"
	MembershipAdmitted MembershipStatus = "admitted"
	MembershipRejected MembershipStatus = "rejected"
)

// MembershipDecision is what a group admin decides on a request
type MembershipDecision string

const (
	DecisionAdmit  MembershipDecision = "admit"
	DecisionReject MembershipDecision = "reject"
)

// Resolved returns the status a pending request moves to
func (d MembershipDecision) Resolved() (MembershipStatus, error) {
	switch d {
	case DecisionAdmit:
		return MembershipAdmitted, nil
	case DecisionReject:
		return MembershipRejected, nil
	}
	return "", Invalid("unknown membership decision %q", string(d))
}

// LoanStatus is the state of a Loan
type LoanStatus string

const (
	LoanPending  LoanStatus = "pending"
	LoanApproved LoanStatus = "approved"
	LoanRejected LoanStatus = "rejected"
	LoanPaid     LoanStatus = "paid"
)

// LoanDecision is what an admin decides on a pending loan
type LoanDecision string

const (
	DecisionApprove LoanDecision = "approve"
	DecisionDecline LoanDecision = "reject"
)

// Resolved returns the status a pending loan moves to
func (d LoanDecision) Resolved() (LoanStatus, error) {
	switch d {
	case DecisionApprove:
		return LoanApproved, nil
	case DecisionDecline:
		return LoanRejected, nil
	}
	return "", Invalid("unknown loan decision %q", string(d))
}

var loanTransitions = map[LoanStatus][]LoanStatus{
	LoanPending:  {LoanApproved, LoanRejected},
	LoanApproved: {LoanPaid},
}

// CanTransition reports whether from -> to is an edge of the loan state machine
func (s LoanStatus) CanTransition(to LoanStatus) bool {
	for _, next := range loanTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckLoanTransition returns ErrInvalidTransition when from -> to is not allowed
func CheckLoanTransition(from, to LoanStatus) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: loan %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// PaymentStatus is the state of a savings deposit routed through the gateway
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// IsTerminal reports whether no further status change is expected
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentCompleted || s == PaymentFailed
}

var hundred = decimal.NewFromInt(100)

// CalculateTotalDue returns principal scaled by (1 + ratePercent/100).
// ratePercent is a percentage: 5 means 5%.
func CalculateTotalDue(principal, ratePercent decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(ratePercent.Div(hundred))
	return principal.Mul(factor).Round(2)
}

// IsFullyPaid reports whether totalPaid covers totalDue
func IsFullyPaid(totalPaid, totalDue decimal.Decimal) bool {
	return totalPaid.GreaterThanOrEqual(totalDue)
}

// RequireAmount validates a positive monetary amount
func RequireAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// Clock is overridden in tests
var Clock = time.Now
