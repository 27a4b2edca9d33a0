package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"sacco-hub/internal/adapters/http/middleware"
	"sacco-hub/internal/adapters/http/routes"
	"sacco-hub/internal/adapters/persistence/models"
	"sacco-hub/internal/config"
	"sacco-hub/internal/core/domain"
	"sacco-hub/internal/core/services"
	"sacco-hub/internal/pkg/password"
	"sacco-hub/internal/pkg/testdb"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type stubGateway struct {
	mu  sync.Mutex
	err error
}

func (g *stubGateway) InitiateTransaction(_ context.Context, _ string, _ decimal.Decimal, reference string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	return "ws_CO_" + reference, nil
}

const callbackToken = "cb-secret"

type apiResult struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testServer struct {
	app *fiber.App
	db  *gorm.DB
	gw  *stubGateway
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	password.Cost = bcrypt.MinCost

	cfg := &config.Config{
		AppMode:          "dev",
		RateLimitEnabled: false,
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
		MPesa: config.MPesaConfig{PendingTTL: 15 * time.Minute, CallbackToken: callbackToken},
	}

	db := testdb.New(t)
	gw := &stubGateway{}
	svc := services.New(db, cfg, gw, nil)

	app := fiber.New(fiber.Config{ErrorHandler: middleware.CustomErrorHandler})
	middleware.Setup(app, cfg)
	routes.Setup(app, svc, cfg)

	return &testServer{app: app, db: db, gw: gw}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string) (int, apiResult) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out apiResult
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

// register signs up a member and returns its access token
func (s *testServer) register(t *testing.T, username string) string {
	t.Helper()
	status, res := s.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": username,
		"email":    username + "@sacco.test",
		"phone":    "0712345678",
		"password": "password123",
	}, "")
	require.Equal(t, http.StatusCreated, status, res.Error)

	var data struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &data))
	return data.AccessToken
}

// admin registers a member, grants the admin role and logs in again
func (s *testServer) admin(t *testing.T, username string) string {
	t.Helper()
	s.register(t, username)
	require.NoError(t, s.db.Model(&models.Member{}).
		Where("username = ?", username).
		Update("role", domain.RoleAdmin).Error)

	status, res := s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": username,
		"password": "password123",
	}, "")
	require.Equal(t, http.StatusOK, status, res.Error)

	var data struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &data))
	return data.AccessToken
}

func decode(t *testing.T, raw json.RawMessage, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, out), string(raw))
}

func TestRoot(t *testing.T) {
	s := newServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthFlow(t *testing.T) {
	s := newServer(t)

	status, res := s.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": "al",
		"email":    "not-an-email",
		"password": "short",
	}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, res.Success)

	token := s.register(t, "alice")

	status, _ = s.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": "alice",
		"email":    "alice2@sacco.test",
		"password": "password123",
	}, "")
	assert.Equal(t, http.StatusConflict, status)

	status, res = s.do(t, http.MethodGet, "/api/v1/me", nil, token)
	require.Equal(t, http.StatusOK, status)
	var me struct {
		Member struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"member"`
	}
	decode(t, res.Data, &me)
	assert.Equal(t, "alice", me.Member.Username)
	assert.Equal(t, "member", me.Member.Role)

	status, _ = s.do(t, http.MethodGet, "/api/v1/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/me", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "alice",
		"password": "wrong-password",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, res = s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "alice",
		"password": "password123",
	}, "")
	require.Equal(t, http.StatusOK, status)
	var pair struct {
		RefreshToken string `json:"refresh_token"`
	}
	decode(t, res.Data, &pair)

	status, _ = s.do(t, http.MethodPost, "/api/v1/auth/refresh", map[string]string{"refresh_token": pair.RefreshToken}, "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodPost, "/api/v1/auth/refresh", map[string]string{"refresh_token": pair.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, status, "rotated token is spent")
}

func TestAdminRoutes(t *testing.T) {
	s := newServer(t)
	member := s.register(t, "alice")
	admin := s.admin(t, "boss")

	status, _ := s.do(t, http.MethodGet, "/api/v1/admin/users", nil, member)
	assert.Equal(t, http.StatusForbidden, status)

	status, res := s.do(t, http.MethodGet, "/api/v1/admin/users", nil, admin)
	require.Equal(t, http.StatusOK, status)
	var page struct {
		Data []map[string]interface{} `json:"data"`
		Meta struct {
			Total int64 `json:"total"`
		} `json:"meta"`
	}
	decode(t, res.Data, &page)
	assert.EqualValues(t, 2, page.Meta.Total)
	assert.Len(t, page.Data, 2)

	status, _ = s.do(t, http.MethodGet, "/api/v1/admin/dashboard", nil, admin)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodPatch, "/api/v1/admin/users/1/role", map[string]string{"role": "root"}, admin)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodPatch, "/api/v1/admin/users/1/role", map[string]string{"role": "admin"}, admin)
	assert.Equal(t, http.StatusOK, status)
}

func TestLoanFlow(t *testing.T) {
	s := newServer(t)
	member := s.register(t, "alice")
	admin := s.admin(t, "boss")

	status, _ := s.do(t, http.MethodPost, "/api/v1/loans", map[string]interface{}{"amount": 0}, member)
	assert.Equal(t, http.StatusBadRequest, status)

	status, res := s.do(t, http.MethodPost, "/api/v1/loans", map[string]interface{}{"amount": 500, "purpose": "stock"}, member)
	require.Equal(t, http.StatusCreated, status, res.Error)
	var created struct {
		Loan struct {
			ID             uint   `json:"id"`
			Status         string `json:"status"`
			TotalRepayment string `json:"total_repayment"`
		} `json:"loan"`
	}
	decode(t, res.Data, &created)
	assert.Equal(t, "pending", created.Loan.Status)
	assert.Equal(t, "525", created.Loan.TotalRepayment)
	loanPath := fmt.Sprintf("/api/v1/loans/%d", created.Loan.ID)
	decisionPath := fmt.Sprintf("/api/v1/admin/loans/%d/decision", created.Loan.ID)
	paymentsPath := fmt.Sprintf("/api/v1/admin/loans/%d/payments", created.Loan.ID)

	status, _ = s.do(t, http.MethodPost, paymentsPath, map[string]interface{}{"amount": 100}, admin)
	assert.Equal(t, http.StatusConflict, status, "pending loans take no payments")

	status, _ = s.do(t, http.MethodPost, decisionPath, map[string]string{"decision": "approve"}, member)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodPost, decisionPath, map[string]string{"decision": "approve"}, admin)
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodPost, decisionPath, map[string]string{"decision": "reject"}, admin)
	assert.Equal(t, http.StatusConflict, status)

	// the borrower cannot record their own repayment
	status, _ = s.do(t, http.MethodPost, paymentsPath, map[string]interface{}{"amount": 525, "reference": "self"}, member)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodPost, paymentsPath, map[string]interface{}{"amount": 300, "reference": "r-1"}, admin)
	assert.Equal(t, http.StatusCreated, status)

	status, res = s.do(t, http.MethodPost, paymentsPath, map[string]interface{}{"amount": 300, "reference": "r-1"}, admin)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Payment already recorded", res.Message)

	status, _ = s.do(t, http.MethodPost, paymentsPath, map[string]interface{}{"amount": 225, "reference": "r-2"}, admin)
	assert.Equal(t, http.StatusCreated, status)

	status, _ = s.do(t, http.MethodGet, loanPath+"/payments", nil, member)
	assert.Equal(t, http.StatusOK, status)

	status, res = s.do(t, http.MethodGet, loanPath, nil, member)
	require.Equal(t, http.StatusOK, status)
	var got struct {
		Loan struct {
			Status    string `json:"status"`
			TotalPaid string `json:"total_paid"`
			Balance   string `json:"balance"`
		} `json:"loan"`
	}
	decode(t, res.Data, &got)
	assert.Equal(t, "paid", got.Loan.Status)
	assert.Equal(t, "525", got.Loan.TotalPaid)
	assert.Equal(t, "0", got.Loan.Balance)

	status, _ = s.do(t, http.MethodPost, paymentsPath, map[string]interface{}{"amount": 1, "reference": "r-3"}, admin)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/loans/9999", nil, member)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/loans/abc", nil, member)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestGroupFlow(t *testing.T) {
	s := newServer(t)
	chair := s.register(t, "chair")
	bob := s.register(t, "bob")

	status, res := s.do(t, http.MethodPost, "/api/v1/groups", map[string]string{"name": "Savers"}, chair)
	require.Equal(t, http.StatusCreated, status, res.Error)
	var created struct {
		Group struct {
			ID uint `json:"id"`
		} `json:"group"`
	}
	decode(t, res.Data, &created)
	groupPath := fmt.Sprintf("/api/v1/groups/%d", created.Group.ID)

	status, _ = s.do(t, http.MethodPost, "/api/v1/groups", map[string]string{"name": "Savers"}, bob)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = s.do(t, http.MethodPost, groupPath+"/messages", map[string]string{"content": "hi"}, bob)
	assert.Equal(t, http.StatusForbidden, status, "chat is roster only")

	status, _ = s.do(t, http.MethodPost, groupPath+"/join", nil, bob)
	require.Equal(t, http.StatusCreated, status)

	status, _ = s.do(t, http.MethodPost, groupPath+"/join", nil, bob)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = s.do(t, http.MethodGet, groupPath+"/requests", nil, bob)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodPost, groupPath+"/requests/2/decision", map[string]string{"decision": "admit"}, chair)
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodPost, groupPath+"/requests/2/decision", map[string]string{"decision": "admit"}, chair)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.do(t, http.MethodPost, groupPath+"/messages", map[string]string{"content": "hi"}, bob)
	assert.Equal(t, http.StatusCreated, status)

	status, _ = s.do(t, http.MethodPost, groupPath+"/meetings", map[string]string{
		"title": "AGM",
		"date":  time.Now().AddDate(0, 0, 1).Format("2006-01-02"),
		"time":  "10:00",
	}, bob)
	assert.Equal(t, http.StatusCreated, status)

	status, _ = s.do(t, http.MethodPost, groupPath+"/meetings", map[string]string{
		"title": "AGM",
		"date":  "tomorrow",
		"time":  "10:00",
	}, bob)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/groups/9999", nil, bob)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDepositAndCallback(t *testing.T) {
	s := newServer(t)
	member := s.register(t, "alice")

	status, res := s.do(t, http.MethodPost, "/api/v1/savings/deposits", map[string]interface{}{"amount": 100}, member)
	require.Equal(t, http.StatusAccepted, status, res.Error)
	var started struct {
		Deposit map[string]interface{} `json:"deposit"`
	}
	decode(t, res.Data, &started)
	assert.Equal(t, "pending", started.Deposit["payment_status"])
	assert.NotContains(t, started.Deposit, "transaction_ref")
	assert.NotContains(t, started.Deposit, "idempotency_key")

	var deposit models.SavingsDeposit
	require.NoError(t, s.db.Last(&deposit).Error)
	require.NotNil(t, deposit.TransactionRef)
	ref := *deposit.TransactionRef

	post := func(path, ref string, code int) (int, []byte) {
		body := map[string]interface{}{
			"Body": map[string]interface{}{
				"stkCallback": map[string]interface{}{
					"MerchantRequestID": "m-1",
					"CheckoutRequestID": ref,
					"ResultCode":        code,
					"ResultDesc":        "done",
				},
			},
		}
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		resp, err := s.app.Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()

		out, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, out
	}
	callback := func(ref string, code int) int {
		status, raw := post("/api/v1/payments/mpesa/callback/"+callbackToken, ref, code)
		var ack struct {
			ResultCode int `json:"ResultCode"`
		}
		require.NoError(t, json.Unmarshal(raw, &ack), string(raw))
		assert.Zero(t, ack.ResultCode)
		return status
	}
	savings := func() string {
		status, res := s.do(t, http.MethodGet, "/api/v1/savings/summary", nil, member)
		require.Equal(t, http.StatusOK, status)
		var summary struct {
			Savings string `json:"savings"`
		}
		decode(t, res.Data, &summary)
		return summary.Savings
	}

	// callbacks without the shared token never touch a deposit
	status, _ = post("/api/v1/payments/mpesa/callback/guess", ref, 0)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = post("/api/v1/payments/mpesa/callback", ref, 0)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "0", savings())

	assert.Equal(t, http.StatusOK, callback(ref, 0))
	assert.Equal(t, http.StatusOK, callback(ref, 0), "replays are acknowledged")
	assert.Equal(t, http.StatusOK, callback("ws_CO_unknown", 0), "unknown references are acknowledged")

	assert.Equal(t, "100", savings())
}

func TestDepositRejectsFractionalAmount(t *testing.T) {
	s := newServer(t)
	member := s.register(t, "alice")

	status, _ := s.do(t, http.MethodPost, "/api/v1/savings/deposits", map[string]interface{}{"amount": "100.555"}, member)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestDepositGatewayErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"timeout", fmt.Errorf("%w: slow", domain.ErrGatewayTimeout), http.StatusGatewayTimeout},
		{"rejected", fmt.Errorf("%w: no", domain.ErrGatewayRejected), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newServer(t)
			member := s.register(t, "alice")
			s.gw.err = tt.err

			status, _ := s.do(t, http.MethodPost, "/api/v1/savings/deposits", map[string]interface{}{"amount": 100}, member)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestNotifications(t *testing.T) {
	s := newServer(t)
	member := s.register(t, "alice")
	admin := s.admin(t, "boss")

	status, _ := s.do(t, http.MethodPost, "/api/v1/loans", map[string]interface{}{"amount": 50}, member)
	require.Equal(t, http.StatusCreated, status)

	status, res := s.do(t, http.MethodGet, "/api/v1/notifications?unread=true", nil, admin)
	require.Equal(t, http.StatusOK, status)
	var list struct {
		Notifications []struct {
			ID uint `json:"id"`
		} `json:"notifications"`
		Unread int64 `json:"unread"`
	}
	decode(t, res.Data, &list)
	require.Len(t, list.Notifications, 1)
	assert.EqualValues(t, 1, list.Unread)

	readPath := fmt.Sprintf("/api/v1/notifications/%d/read", list.Notifications[0].ID)
	status, _ = s.do(t, http.MethodPatch, readPath, nil, member)
	assert.Equal(t, http.StatusNotFound, status, "cannot read another member's notification")

	status, _ = s.do(t, http.MethodPatch, readPath, nil, admin)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodPatch, "/api/v1/notifications/read-all", nil, admin)
	assert.Equal(t, http.StatusOK, status)
}
