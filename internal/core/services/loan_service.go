package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sacco-hub/internal/adapters/persistence/models"
	"sacco-hub/internal/adapters/persistence/repositories"
	"sacco-hub/internal/config"
	"sacco-hub/internal/core/domain"
	"sacco-hub/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LoanService governs the loan lifecycle: request, decision and repayment
type LoanService struct {
	tx         repositories.Transactor
	loanRepo   repositories.LoanRepository
	memberRepo repositories.MemberRepository
	groupRepo  repositories.GroupRepository
	notifier   *NotificationService
	cfg        *config.Config
}

// NewLoanService creates a new loan service
func NewLoanService(
	tx repositories.Transactor,
	loanRepo repositories.LoanRepository,
	memberRepo repositories.MemberRepository,
	groupRepo repositories.GroupRepository,
	notifier *NotificationService,
	cfg *config.Config,
) *LoanService {
	return &LoanService{
		tx:         tx,
		loanRepo:   loanRepo,
		memberRepo: memberRepo,
		groupRepo:  groupRepo,
		notifier:   notifier,
		cfg:        cfg,
	}
}

// RequestLoanInput represents a loan request
type RequestLoanInput struct {
	Amount          decimal.Decimal
	Purpose         string
	RepaymentPeriod int   // months, 0 uses the configured default
	GroupID         *uint // optional, borrower must be on the roster
}

// PaymentResult is the outcome of RecordPayment. Duplicate is true when the
// reference had already been recorded and nothing changed.
type PaymentResult struct {
	Loan      *models.Loan        `json:"loan"`
	Payment   *models.LoanPayment `json:"payment"`
	Duplicate bool                `json:"duplicate"`
}

// InterestRate returns the configured rate as a percentage
func (s *LoanService) InterestRate() decimal.Decimal {
	return decimal.NewFromFloat(s.cfg.Sacco.LoanInterestRate)
}

// RequestLoan creates a pending loan at the configured interest rate
func (s *LoanService) RequestLoan(ctx context.Context, memberID uint, input RequestLoanInput) (*models.Loan, error) {
	if err := domain.RequireAmount(input.Amount); err != nil {
		return nil, err
	}
	if input.RepaymentPeriod < 0 {
		return nil, domain.Invalid("repayment period must not be negative")
	}

	period := input.RepaymentPeriod
	if period == 0 {
		period = s.cfg.Sacco.DefaultRepaymentMonth
	}

	rate := s.InterestRate()
	loan := &models.Loan{
		MemberID:        memberID,
		GroupID:         input.GroupID,
		Amount:          input.Amount,
		InterestRate:    rate,
		RepaymentPeriod: period,
		Purpose:         strings.TrimSpace(input.Purpose),
		Status:          domain.LoanPending,
		TotalRepayment:  domain.CalculateTotalDue(input.Amount, rate),
		TotalPaid:       decimal.Zero,
		RequestedAt:     domain.Clock(),
	}

	box := s.notifier.newOutbox()
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		member, err := s.memberRepo.GetByID(ctx, memberID)
		if err != nil {
			return storeErr(err, domain.ErrMemberNotFound)
		}

		if input.GroupID != nil {
			ok, err := s.groupRepo.IsMember(ctx, *input.GroupID, memberID)
			if err != nil {
				return domain.Persistence(err)
			}
			if !ok {
				return domain.ErrNotAMember
			}
		}

		if err := s.loanRepo.Create(ctx, loan); err != nil {
			return domain.Persistence(err)
		}

		admins, err := s.memberRepo.ListAdminIDs(ctx)
		if err != nil {
			return domain.Persistence(err)
		}
		text := loanRequestedText(loan.ID, member.Username, loan.Amount)
		for _, adminID := range admins {
			if err := box.notify(ctx, adminID, text); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	box.flush()
	logger.L().Infow("✅ Loan requested", "loan", loan.ID, "member", memberID, "amount", loan.Amount.String())
	return loan, nil
}

// DecideLoan approves or rejects a pending loan. Requires the admin role.
func (s *LoanService) DecideLoan(ctx context.Context, loanID uint, decision domain.LoanDecision, actor domain.Actor) (*models.Loan, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrAdminRequired
	}
	to, err := decision.Resolved()
	if err != nil {
		return nil, err
	}

	box := s.notifier.newOutbox()
	var loan *models.Loan

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		rows, err := s.loanRepo.Decide(ctx, loanID, to, actor.MemberID, domain.Clock())
		if err != nil {
			return domain.Persistence(err)
		}

		loan, err = s.loanRepo.GetByID(ctx, loanID)
		if err != nil {
			return storeErr(err, domain.ErrLoanNotFound)
		}
		if rows == 0 {
			// someone else decided first, or the loan was never pending
			return domain.CheckLoanTransition(loan.Status, to)
		}

		return box.notify(ctx, loan.MemberID, loanStatusText(loan.ID, string(to)))
	})
	if err != nil {
		return nil, err
	}

	box.flush()
	logger.L().Infow("✅ Loan decided", "loan", loanID, "status", to, "admin", actor.MemberID)
	return loan, nil
}

// RecordPayment adds a repayment to an approved loan. Only admins record
// repayments, after the money has been received. The loan row is locked
// for the whole transaction so concurrent payments cannot lose updates.
// Re-submitting the same reference for the same loan is a no-op.
func (s *LoanService) RecordPayment(ctx context.Context, actor domain.Actor, loanID uint, amount decimal.Decimal, reference string) (*PaymentResult, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrAdminRequired
	}
	if err := domain.RequireAmount(amount); err != nil {
		return nil, err
	}

	reference = strings.TrimSpace(reference)
	if reference == "" {
		reference = uuid.NewString()
	}

	box := s.notifier.newOutbox()
	result := &PaymentResult{}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		loan, err := s.loanRepo.GetByIDForUpdate(ctx, loanID)
		if err != nil {
			return storeErr(err, domain.ErrLoanNotFound)
		}
		result.Loan = loan

		existing, err := s.loanRepo.GetPaymentByReference(ctx, reference)
		switch {
		case err == nil && existing.LoanID == loanID:
			result.Payment = existing
			result.Duplicate = true
			return nil
		case err == nil:
			return fmt.Errorf("%w: payment reference %s belongs to another loan", domain.ErrDuplicateRequest, reference)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return domain.Persistence(err)
		}

		if loan.Status != domain.LoanApproved {
			return fmt.Errorf("%w: cannot record payment on a %s loan", domain.ErrInvalidTransition, loan.Status)
		}

		payment := &models.LoanPayment{
			LoanID:     loanID,
			RecordedBy: actor.MemberID,
			Amount:     amount,
			Reference:  reference,
		}
		if err := s.loanRepo.CreatePayment(ctx, payment); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: payment reference %s", domain.ErrDuplicateRequest, reference)
			}
			return domain.Persistence(err)
		}
		result.Payment = payment

		loan.TotalPaid = loan.TotalPaid.Add(amount)
		if loan.IsFullyPaid() {
			if err := domain.CheckLoanTransition(loan.Status, domain.LoanPaid); err != nil {
				return err
			}
			now := domain.Clock()
			loan.Status = domain.LoanPaid
			loan.PaidAt = &now
			if err := box.notify(ctx, loan.MemberID, loanPaidText(loan.ID)); err != nil {
				return err
			}
		}

		if err := s.loanRepo.UpdateRepayment(ctx, loan); err != nil {
			return domain.Persistence(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	box.flush()
	if !result.Duplicate {
		logger.L().Infow("✅ Loan payment recorded",
			"loan", loanID,
			"amount", amount.String(),
			"total_paid", result.Loan.TotalPaid.String(),
			"status", result.Loan.Status,
		)
	}
	return result, nil
}

// GetLoan returns a loan visible to the actor (borrower or admin)
func (s *LoanService) GetLoan(ctx context.Context, actor domain.Actor, loanID uint) (*models.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, storeErr(err, domain.ErrLoanNotFound)
	}
	if loan.MemberID != actor.MemberID && !actor.IsAdmin() {
		return nil, domain.ErrNotLoanOwner
	}
	return loan, nil
}

// ListMyLoans lists the loans of a borrower
func (s *LoanService) ListMyLoans(ctx context.Context, memberID uint) ([]*models.Loan, error) {
	loans, err := s.loanRepo.ListByMember(ctx, memberID)
	if err != nil {
		return nil, domain.Persistence(err)
	}
	return loans, nil
}

// ListLoans lists loans by status for admins. An empty status lists all.
func (s *LoanService) ListLoans(ctx context.Context, actor domain.Actor, status domain.LoanStatus, offset, limit int) ([]*models.Loan, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, domain.ErrAdminRequired
	}
	switch status {
	case "", domain.LoanPending, domain.LoanApproved, domain.LoanRejected, domain.LoanPaid:
	default:
		return nil, 0, domain.Invalid("unknown loan status %q", string(status))
	}

	loans, total, err := s.loanRepo.ListByStatus(ctx, status, offset, limit)
	if err != nil {
		return nil, 0, domain.Persistence(err)
	}
	return loans, total, nil
}

// ListPayments lists the payments of a loan visible to the actor
func (s *LoanService) ListPayments(ctx context.Context, actor domain.Actor, loanID uint) ([]*models.LoanPayment, error) {
	if _, err := s.GetLoan(ctx, actor, loanID); err != nil {
		return nil, err
	}
	payments, err := s.loanRepo.ListPayments(ctx, loanID)
	if err != nil {
		return nil, domain.Persistence(err)
	}
	return payments, nil
}
