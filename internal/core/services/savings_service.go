package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sacco-hub/internal/adapters/persistence/models"
	"sacco-hub/internal/adapters/persistence/repositories"
	"sacco-hub/internal/config"
	"sacco-hub/internal/core/domain"
	"sacco-hub/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	reasonGatewayTimeout  = "gateway timeout"
	reasonGatewayRejected = "gateway rejected the request"
	reasonGatewayFailed   = "payment failed at gateway"
	reasonExpired         = "no confirmation received from gateway"

	staleBatchSize = 100

	refStoreAttempts = 3
	refStoreBackoff  = 50 * time.Millisecond
)

// SavingsService records deposits and reconciles gateway confirmations
type SavingsService struct {
	tx          repositories.Transactor
	savingsRepo repositories.SavingsRepository
	memberRepo  repositories.MemberRepository
	gateway     PaymentGateway
	notifier    *NotificationService
	cfg         *config.Config
}

// NewSavingsService creates a new savings service
func NewSavingsService(
	tx repositories.Transactor,
	savingsRepo repositories.SavingsRepository,
	memberRepo repositories.MemberRepository,
	gateway PaymentGateway,
	notifier *NotificationService,
	cfg *config.Config,
) *SavingsService {
	return &SavingsService{
		tx:          tx,
		savingsRepo: savingsRepo,
		memberRepo:  memberRepo,
		gateway:     gateway,
		notifier:    notifier,
		cfg:         cfg,
	}
}

// SavingsSummary is a member's running totals plus latest deposits
type SavingsSummary struct {
	Savings        decimal.Decimal          `json:"savings"`
	Earnings       decimal.Decimal          `json:"earnings"`
	RecentDeposits []*models.SavingsDeposit `json:"recent_deposits"`
}

// InitiateDeposit records a pending deposit and asks the gateway to collect
// it from the payer's phone. The gateway call runs outside any transaction.
// A gateway failure leaves the record failed, never pending. Amounts must be
// whole shillings so the credited amount equals the amount charged.
func (s *SavingsService) InitiateDeposit(ctx context.Context, memberID uint, amount decimal.Decimal, phone string) (*models.SavingsDeposit, error) {
	if err := domain.RequireAmount(amount); err != nil {
		return nil, err
	}
	if !amount.IsInteger() {
		return nil, domain.Invalid("deposit amount must be whole shillings, got %s", amount)
	}

	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		return nil, storeErr(err, domain.ErrMemberNotFound)
	}

	phone = strings.TrimSpace(phone)
	if phone == "" {
		phone = member.Phone
	}
	if phone == "" {
		return nil, domain.Invalid("phone number is required")
	}

	deposit := &models.SavingsDeposit{
		MemberID:       memberID,
		Amount:         amount,
		Phone:          phone,
		IdempotencyKey: uuid.NewString(),
		PaymentStatus:  domain.PaymentPending,
	}
	if err := s.savingsRepo.Create(ctx, deposit); err != nil {
		return nil, domain.Persistence(err)
	}

	ref, gwErr := s.gateway.InitiateTransaction(ctx, phone, amount, deposit.IdempotencyKey)
	if gwErr != nil {
		reason := reasonGatewayRejected
		if errors.Is(gwErr, domain.ErrGatewayTimeout) {
			reason = reasonGatewayTimeout
		}
		if _, err := s.savingsRepo.Transition(ctx, deposit.ID, domain.PaymentPending, domain.PaymentFailed, reason, domain.Clock()); err != nil {
			// the reconciliation job will expire it
			logger.L().Errorw("❌ Could not mark deposit failed", "deposit", deposit.ID, "error", err)
		} else {
			deposit.PaymentStatus = domain.PaymentFailed
			deposit.FailureReason = reason
		}
		logger.L().Warnw("⚠️ Deposit initiation failed", "deposit", deposit.ID, "error", gwErr)
		return deposit, gwErr
	}

	if err := s.storeTransactionRef(ctx, deposit.ID, ref); err != nil {
		// the payer has a prompt we cannot match to a deposit
		logger.L().Errorw("❌ Gateway reference not stored", "deposit", deposit.ID, "member", memberID, "ref", ref, "error", err)
		return nil, domain.Persistence(err)
	}
	deposit.TransactionRef = &ref

	logger.L().Infow("✅ Deposit initiated", "deposit", deposit.ID, "member", memberID, "ref", ref)
	return deposit, nil
}

// storeTransactionRef retries the write because the gateway has already
// accepted the push. It ignores cancellation of the request context.
func (s *SavingsService) storeTransactionRef(ctx context.Context, depositID uint, ref string) error {
	ctx = context.WithoutCancel(ctx)

	var err error
	for attempt := 1; attempt <= refStoreAttempts; attempt++ {
		if err = s.savingsRepo.SetTransactionRef(ctx, depositID, ref); err == nil {
			return nil
		}
		logger.L().Warnw("⚠️ Storing gateway reference failed", "deposit", depositID, "attempt", attempt, "error", err)
		if attempt < refStoreAttempts {
			time.Sleep(time.Duration(attempt) * refStoreBackoff)
		}
	}
	return err
}

// ConfirmDeposit applies the gateway's asynchronous result. Repeating the
// same status for a reference is a no-op, so duplicate callbacks credit once.
func (s *SavingsService) ConfirmDeposit(ctx context.Context, transactionRef string, status domain.PaymentStatus) (*models.SavingsDeposit, error) {
	if status != domain.PaymentCompleted && status != domain.PaymentFailed {
		return nil, domain.Invalid("confirmation status must be completed or failed")
	}
	if strings.TrimSpace(transactionRef) == "" {
		return nil, domain.ErrDepositNotFound
	}

	box := s.notifier.newOutbox()
	var deposit *models.SavingsDeposit

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		deposit, err = s.savingsRepo.GetByTransactionRefForUpdate(ctx, transactionRef)
		if err != nil {
			return storeErr(err, domain.ErrDepositNotFound)
		}

		if deposit.PaymentStatus == status {
			return nil
		}
		if deposit.PaymentStatus.IsTerminal() {
			return fmt.Errorf("%w: deposit already %s", domain.ErrInvalidTransition, deposit.PaymentStatus)
		}

		reason := ""
		if status == domain.PaymentFailed {
			reason = reasonGatewayFailed
		}
		now := domain.Clock()
		rows, err := s.savingsRepo.Transition(ctx, deposit.ID, domain.PaymentPending, status, reason, now)
		if err != nil {
			return domain.Persistence(err)
		}
		if rows == 0 {
			// a concurrent callback resolved it first
			return nil
		}
		deposit.PaymentStatus = status
		deposit.FailureReason = reason

		if status == domain.PaymentFailed {
			return box.notify(ctx, deposit.MemberID, depositFailedText(deposit.Amount, reason))
		}

		deposit.CompletedAt = &now
		if err := s.memberRepo.AddSavings(ctx, deposit.MemberID, deposit.Amount); err != nil {
			return storeErr(err, domain.ErrMemberNotFound)
		}
		return box.notify(ctx, deposit.MemberID, depositCompletedText(deposit.Amount))
	})
	if err != nil {
		return nil, err
	}

	box.flush()
	logger.L().Infow("✅ Deposit confirmed", "ref", transactionRef, "status", deposit.PaymentStatus)
	return deposit, nil
}

// ExpireStaleDeposits fails deposits that have been pending longer than the
// configured TTL and returns how many were expired
func (s *SavingsService) ExpireStaleDeposits(ctx context.Context) (int, error) {
	cutoff := domain.Clock().Add(-s.cfg.MPesa.PendingTTL)
	stale, err := s.savingsRepo.ListStalePending(ctx, cutoff, staleBatchSize)
	if err != nil {
		return 0, domain.Persistence(err)
	}

	expired := 0
	for _, deposit := range stale {
		box := s.notifier.newOutbox()
		changed := false
		err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			rows, err := s.savingsRepo.Transition(ctx, deposit.ID, domain.PaymentPending, domain.PaymentFailed, reasonExpired, domain.Clock())
			if err != nil {
				return domain.Persistence(err)
			}
			if rows == 0 {
				return nil
			}
			changed = true
			return box.notify(ctx, deposit.MemberID, depositFailedText(deposit.Amount, reasonExpired))
		})
		if err != nil {
			logger.L().Errorw("❌ Expire deposit failed", "deposit", deposit.ID, "error", err)
			continue
		}
		box.flush()
		if changed {
			expired++
		}
	}

	return expired, nil
}

// GetSummary returns savings and earnings totals with the latest deposits
func (s *SavingsService) GetSummary(ctx context.Context, memberID uint) (*SavingsSummary, error) {
	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		return nil, storeErr(err, domain.ErrMemberNotFound)
	}

	recent, _, err := s.savingsRepo.ListByMember(ctx, memberID, 0, 5)
	if err != nil {
		return nil, domain.Persistence(err)
	}

	return &SavingsSummary{
		Savings:        member.Savings,
		Earnings:       member.Earnings,
		RecentDeposits: recent,
	}, nil
}

// ListDeposits lists a member's deposits, newest first
func (s *SavingsService) ListDeposits(ctx context.Context, memberID uint, offset, limit int) ([]*models.SavingsDeposit, int64, error) {
	deposits, total, err := s.savingsRepo.ListByMember(ctx, memberID, offset, limit)
	if err != nil {
		return nil, 0, domain.Persistence(err)
	}
	return deposits, total, nil
}
