package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"sacco-hub/internal/core/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMembershipService_ConcurrentDecisions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chair := f.member(t, "chair", domain.RoleMember)
	bob := f.member(t, "bob", domain.RoleMember)
	g := f.group(t, "savers", chair)

	_, err := f.svc.Membership.RequestMembership(ctx, bob.MemberID, g.ID)
	require.NoError(t, err)

	const deciders = 6
	errs := make([]error, deciders)
	var wg sync.WaitGroup
	for i := 0; i < deciders; i++ {
		decision := domain.DecisionAdmit
		if i%2 == 1 {
			decision = domain.DecisionReject
		}
		wg.Add(1)
		go func(i int, decision domain.MembershipDecision) {
			defer wg.Done()
			_, errs[i] = f.svc.Membership.DecideMembership(ctx, g.ID, bob.MemberID, decision, chair.MemberID)
		}(i, decision)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		// sqlite may refuse a writer outright; that loses nothing
		assert.True(t,
			errors.Is(err, domain.ErrRequestNotFound) || errors.Is(err, domain.ErrPersistence),
			"unexpected error: %v", err)
	}
	assert.Equal(t, 1, won, "only the first decision wins")
	assert.EqualValues(t, 1, f.unread(t, bob.MemberID), "one decision, one notification")

	roster, err := f.svc.Membership.ListRoster(ctx, g.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(roster), 2)
}

func TestLoanService_ConcurrentPayments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.member(t, "admin", domain.RoleAdmin)
	alice := f.member(t, "alice", domain.RoleMember)

	loan, err := f.svc.Loan.RequestLoan(ctx, alice.MemberID, RequestLoanInput{Amount: dec("1000")})
	require.NoError(t, err)
	_, err = f.svc.Loan.DecideLoan(ctx, loan.ID, domain.DecisionApprove, admin)
	require.NoError(t, err)

	const payers = 10
	errs := make([]error, payers)
	var wg sync.WaitGroup
	for i := 0; i < payers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Loan.RecordPayment(ctx, admin, loan.ID, dec("10"), fmt.Sprintf("pay-%d", i))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		// a writer refused by sqlite rolls back whole; nothing is half applied
		assert.ErrorIs(t, err, domain.ErrPersistence)
	}
	require.Positive(t, succeeded)

	stored, err := f.svc.Loan.GetLoan(ctx, admin, loan.ID)
	require.NoError(t, err)
	want := decimal.NewFromInt(int64(10 * succeeded))
	assert.True(t, stored.TotalPaid.Equal(want), "total_paid %s, want %s", stored.TotalPaid, want)

	payments, err := f.svc.Loan.ListPayments(ctx, admin, loan.ID)
	require.NoError(t, err)
	assert.Len(t, payments, succeeded)
}
