package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"sacco-hub/internal/adapters/persistence/models"
	"sacco-hub/internal/adapters/persistence/repositories"
	"sacco-hub/internal/core/domain"
	"sacco-hub/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSavingsService_DepositCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.member(t, "alice", domain.RoleMember)

	deposit, err := f.svc.Savings.InitiateDeposit(ctx, alice.MemberID, dec("100"), "")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, deposit.PaymentStatus)
	require.NotNil(t, deposit.TransactionRef)
	assert.Equal(t, []string{"0712345678"}, f.gw.payers, "falls back to the member's phone")

	confirmed, err := f.svc.Savings.ConfirmDeposit(ctx, *deposit.TransactionRef, domain.PaymentCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCompleted, confirmed.PaymentStatus)

	// a replayed callback credits once
	_, err = f.svc.Savings.ConfirmDeposit(ctx, *deposit.TransactionRef, domain.PaymentCompleted)
	require.NoError(t, err)

	summary, err := f.svc.Savings.GetSummary(ctx, alice.MemberID)
	require.NoError(t, err)
	assert.True(t, summary.Savings.Equal(dec("100")), "got %s", summary.Savings)
	require.Len(t, summary.RecentDeposits, 1)
	assert.Equal(t, domain.PaymentCompleted, summary.RecentDeposits[0].PaymentStatus)
	assert.EqualValues(t, 1, f.unread(t, alice.MemberID))

	_, err = f.svc.Savings.ConfirmDeposit(ctx, *deposit.TransactionRef, domain.PaymentFailed)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestSavingsService_DepositFailedCallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.member(t, "alice", domain.RoleMember)

	deposit, err := f.svc.Savings.InitiateDeposit(ctx, alice.MemberID, dec("40"), "0799000111")
	require.NoError(t, err)
	assert.Equal(t, []string{"0799000111"}, f.gw.payers)

	failed, err := f.svc.Savings.ConfirmDeposit(ctx, *deposit.TransactionRef, domain.PaymentFailed)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentFailed, failed.PaymentStatus)
	assert.NotEmpty(t, failed.FailureReason)

	summary, err := f.svc.Savings.GetSummary(ctx, alice.MemberID)
	require.NoError(t, err)
	assert.True(t, summary.Savings.IsZero())
}

func TestSavingsService_ConfirmDeposit_Invalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Savings.ConfirmDeposit(ctx, "ws_CO_missing", domain.PaymentCompleted)
	assert.ErrorIs(t, err, domain.ErrUnknownTransaction)

	_, err = f.svc.Savings.ConfirmDeposit(ctx, "", domain.PaymentCompleted)
	assert.ErrorIs(t, err, domain.ErrUnknownTransaction)

	_, err = f.svc.Savings.ConfirmDeposit(ctx, "ws_CO_missing", domain.PaymentPending)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSavingsService_GatewayFailure(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason string
	}{
		{"timeout", fmt.Errorf("%w: deadline exceeded", domain.ErrGatewayTimeout), reasonGatewayTimeout},
		{"rejected", fmt.Errorf("%w: bad phone", domain.ErrGatewayRejected), reasonGatewayRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			alice := f.member(t, "alice", domain.RoleMember)
			f.gw.err = tt.err

			deposit, err := f.svc.Savings.InitiateDeposit(ctx, alice.MemberID, dec("100"), "")
			assert.ErrorIs(t, err, tt.err)
			require.NotNil(t, deposit)
			assert.Equal(t, domain.PaymentFailed, deposit.PaymentStatus)
			assert.Equal(t, tt.reason, deposit.FailureReason)

			// never left pending
			stored, _, err := f.svc.Savings.ListDeposits(ctx, alice.MemberID, 0, 10)
			require.NoError(t, err)
			require.Len(t, stored, 1)
			assert.Equal(t, domain.PaymentFailed, stored[0].PaymentStatus)
			assert.Nil(t, stored[0].TransactionRef)
		})
	}
}

func TestSavingsService_InitiateDeposit_Invalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.member(t, "alice", domain.RoleMember)

	_, err := f.svc.Savings.InitiateDeposit(ctx, alice.MemberID, dec("0"), "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.Savings.InitiateDeposit(ctx, 9999, dec("10"), "0712345678")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// the gateway charges whole shillings only
	for _, amount := range []string{"0.001", "100.555", "99.5"} {
		_, err = f.svc.Savings.InitiateDeposit(ctx, alice.MemberID, dec(amount), "")
		assert.ErrorIs(t, err, domain.ErrValidation, amount)
	}

	assert.Zero(t, f.gw.calls)
	_, total, err := f.svc.Savings.ListDeposits(ctx, alice.MemberID, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

// flakyRefRepo fails the first failures calls to SetTransactionRef
type flakyRefRepo struct {
	repositories.SavingsRepository
	failures int
	calls    int
}

func (r *flakyRefRepo) SetTransactionRef(ctx context.Context, id uint, ref string) error {
	r.calls++
	if r.calls <= r.failures {
		return errors.New("connection reset")
	}
	return r.SavingsRepository.SetTransactionRef(ctx, id, ref)
}

func TestSavingsService_StoreTransactionRef(t *testing.T) {
	newSavings := func(f *fixture, repo repositories.SavingsRepository) *SavingsService {
		return NewSavingsService(
			repositories.NewTransactor(f.db),
			repo,
			repositories.NewMemberRepository(f.db),
			f.gw,
			f.svc.Notification,
			f.cfg,
		)
	}

	t.Run("retried until stored", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		alice := f.member(t, "alice", domain.RoleMember)
		repo := &flakyRefRepo{SavingsRepository: repositories.NewSavingsRepository(f.db), failures: refStoreAttempts - 1}

		deposit, err := newSavings(f, repo).InitiateDeposit(ctx, alice.MemberID, dec("100"), "")
		require.NoError(t, err)
		assert.Equal(t, refStoreAttempts, repo.calls)

		// the callback finds the deposit
		confirmed, err := f.svc.Savings.ConfirmDeposit(ctx, *deposit.TransactionRef, domain.PaymentCompleted)
		require.NoError(t, err)
		assert.Equal(t, deposit.ID, confirmed.ID)
	})

	t.Run("lost reference is logged", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		prev := logger.L()
		logger.Set(zap.New(core).Sugar())
		t.Cleanup(func() { logger.Set(prev) })

		f := newFixture(t)
		ctx := context.Background()
		alice := f.member(t, "alice", domain.RoleMember)
		repo := &flakyRefRepo{SavingsRepository: repositories.NewSavingsRepository(f.db), failures: refStoreAttempts}

		_, err := newSavings(f, repo).InitiateDeposit(ctx, alice.MemberID, dec("100"), "")
		assert.ErrorIs(t, err, domain.ErrPersistence)
		assert.Equal(t, refStoreAttempts, repo.calls)

		entries := logs.FilterField(zap.String("ref", "ws_CO_"+firstKey(t, f, alice.MemberID))).All()
		require.Len(t, entries, 1)
		assert.Equal(t, zap.ErrorLevel, entries[0].Level)
	})
}

func firstKey(t *testing.T, f *fixture, memberID uint) string {
	t.Helper()
	var deposit models.SavingsDeposit
	require.NoError(t, f.db.Where("member_id = ?", memberID).First(&deposit).Error)
	return deposit.IdempotencyKey
}

func TestSavingsService_ExpireStaleDeposits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.member(t, "alice", domain.RoleMember)

	deposit, err := f.svc.Savings.InitiateDeposit(ctx, alice.MemberID, dec("100"), "")
	require.NoError(t, err)

	n, err := f.svc.Savings.ExpireStaleDeposits(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "fresh deposits stay pending")

	withClock(t, time.Now().Add(time.Hour))

	n, err = f.svc.Savings.ExpireStaleDeposits(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.svc.Savings.ExpireStaleDeposits(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// a late success callback cannot revive it
	_, err = f.svc.Savings.ConfirmDeposit(ctx, *deposit.TransactionRef, domain.PaymentCompleted)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.EqualValues(t, 1, f.unread(t, alice.MemberID))
}
