package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"sacco-hub/internal/adapters/persistence/models"
	"sacco-hub/internal/config"
	"sacco-hub/internal/core/domain"
	"sacco-hub/internal/pkg/password"
	"sacco-hub/internal/pkg/testdb"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type stubGateway struct {
	mu     sync.Mutex
	err    error
	calls  int
	payers []string
}

func (g *stubGateway) InitiateTransaction(_ context.Context, payer string, _ decimal.Decimal, reference string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls++
	g.payers = append(g.payers, payer)
	if g.err != nil {
		return "", g.err
	}
	return "ws_CO_" + reference, nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *recordingMailer) Send(_ context.Context, to, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return nil
}

type fixture struct {
	db  *gorm.DB
	cfg *config.Config
	gw  *stubGateway
	svc *Services
}

func testConfig() *config.Config {
	return &config.Config{
		AppMode: "dev",
		JWT: config.JWTConfig{
			Secret:           "test-secret",
			RefreshSecret:    "test-refresh-secret",
			AccessTokenMins:  15,
			RefreshTokenDays: 7,
		},
		Sacco: config.SaccoConfig{
			LoanInterestRate:      5,
			DefaultRepaymentMonth: 12,
			PageSize:              20,
			ChatHistoryLimit:      100,
		},
		MPesa: config.MPesaConfig{PendingTTL: 15 * time.Minute},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	password.Cost = bcrypt.MinCost

	db := testdb.New(t)
	cfg := testConfig()
	gw := &stubGateway{}
	svc := New(db, cfg, gw, nil)
	t.Cleanup(svc.Notification.Wait)

	return &fixture{db: db, cfg: cfg, gw: gw, svc: svc}
}

// member inserts an active member with a known phone and returns its actor
func (f *fixture) member(t *testing.T, username string, role domain.Role) domain.Actor {
	t.Helper()
	m := &models.Member{
		Username: username,
		Email:    username + "@sacco.test",
		Phone:    "0712345678",
		Password: "unused",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, f.db.Create(m).Error)
	return domain.Actor{MemberID: m.ID, Role: role}
}

// group creates a group administered by admin with the given extra roster members
func (f *fixture) group(t *testing.T, name string, admin domain.Actor, members ...domain.Actor) *models.Group {
	t.Helper()
	ctx := context.Background()

	g, err := f.svc.Membership.CreateGroup(ctx, admin, CreateGroupInput{Name: name})
	require.NoError(t, err)
	for _, m := range members {
		_, err := f.svc.Membership.RequestMembership(ctx, m.MemberID, g.ID)
		require.NoError(t, err)
		_, err = f.svc.Membership.DecideMembership(ctx, g.ID, m.MemberID, domain.DecisionAdmit, admin.MemberID)
		require.NoError(t, err)
	}
	return g
}

func (f *fixture) unread(t *testing.T, memberID uint) int64 {
	t.Helper()
	n, err := f.svc.Notification.CountUnread(context.Background(), memberID)
	require.NoError(t, err)
	return n
}

// withClock pins domain.Clock for the duration of the test
func withClock(t *testing.T, now time.Time) {
	t.Helper()
	prev := domain.Clock
	domain.Clock = func() time.Time { return now }
	t.Cleanup(func() { domain.Clock = prev })
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
