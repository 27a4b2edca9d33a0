package handlers

import (
	"crypto/subtle"
	"errors"
	"net/url"

	"sacco-hub/internal/adapters/http/middleware"
	"sacco-hub/internal/core/domain"
	"sacco-hub/internal/core/services"
	"sacco-hub/internal/pkg/logger"
	"sacco-hub/internal/pkg/pagination"
	"sacco-hub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// SavingsHandler handles savings deposits and the gateway callback
type SavingsHandler struct {
	savingsService *services.SavingsService
	pageSize       int
	callbackToken  string
}

// NewSavingsHandler creates a new savings handler. Callbacks are accepted
// only on the path carrying callbackToken; an empty token disables them.
func NewSavingsHandler(savingsService *services.SavingsService, pageSize int, callbackToken string) *SavingsHandler {
	return &SavingsHandler{
		savingsService: savingsService,
		pageSize:       pageSize,
		callbackToken:  callbackToken,
	}
}

// DepositRequest represents a deposit initiation
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
	Phone  string          `json:"phone" validate:"omitempty,min=9,max=20"`
}

// STKCallback is the body the gateway posts when a push completes
type STKCallback struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// Deposit starts a mobile-money deposit
// @Summary Initiate deposit
// @Description Sends a payment prompt to the member's phone. The deposit completes when the gateway calls back.
// @Tags Savings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body DepositRequest true "Deposit"
// @Success 202 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 502 {object} response.Response
// @Failure 504 {object} response.Response
// @Router /savings/deposits [post]
func (h *SavingsHandler) Deposit(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req DepositRequest
	if err := bindBody(c, &req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	deposit, err := h.savingsService.InitiateDeposit(c.Context(), actor.MemberID, req.Amount, req.Phone)
	if err != nil {
		return writeError(c, err)
	}

	return response.Accepted(c, "Deposit initiated, confirm the prompt on your phone", fiber.Map{"deposit": deposit})
}

// List lists the caller's deposits
// @Summary List deposits
// @Tags Savings
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Router /savings/deposits [get]
func (h *SavingsHandler) List(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.GetParams(c, h.pageSize)
	deposits, total, err := h.savingsService.ListDeposits(c.Context(), actor.MemberID, params.Offset, params.Limit)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Deposits retrieved successfully", pagination.NewResponse(deposits, params, total))
}

// Summary returns balances and recent deposits
// @Summary Savings summary
// @Tags Savings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /savings/summary [get]
func (h *SavingsHandler) Summary(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	summary, err := h.savingsService.GetSummary(c.Context(), actor.MemberID)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Savings summary retrieved", summary)
}

// MPesaCallback receives STK push results
// @Summary M-Pesa STK callback
// @Description Always acknowledged so the gateway stops redelivering
// @Tags Payments
// @Accept json
// @Produce json
// @Param token path string true "Callback token"
// @Param body body STKCallback true "Callback"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} response.Response
// @Router /payments/mpesa/callback/{token} [post]
func (h *SavingsHandler) MPesaCallback(c *fiber.Ctx) error {
	if !h.trustedCallback(c) {
		logger.L().Warnw("⚠️ Gateway callback with bad token rejected", "ip", c.IP())
		return response.NotFound(c, "Not found")
	}

	ack := fiber.Map{"ResultCode": 0, "ResultDesc": "Accepted"}

	var cb STKCallback
	if err := c.BodyParser(&cb); err != nil {
		logger.L().Warnw("⚠️ Unreadable gateway callback", "error", err)
		return c.JSON(ack)
	}

	stk := cb.Body.StkCallback
	status := domain.PaymentCompleted
	if stk.ResultCode != 0 {
		status = domain.PaymentFailed
	}

	deposit, err := h.savingsService.ConfirmDeposit(c.Context(), stk.CheckoutRequestID, status)
	switch {
	case err == nil:
		logger.L().Infow("✅ Gateway callback applied", "ref", stk.CheckoutRequestID, "deposit", deposit.ID, "status", deposit.PaymentStatus)
	case errors.Is(err, domain.ErrUnknownTransaction):
		logger.L().Warnw("⚠️ Callback for unknown transaction", "ref", stk.CheckoutRequestID)
	default:
		logger.L().Errorw("❌ Gateway callback not applied", "ref", stk.CheckoutRequestID, "result", stk.ResultCode, "desc", stk.ResultDesc, "error", err)
	}

	return c.JSON(ack)
}

func (h *SavingsHandler) trustedCallback(c *fiber.Ctx) bool {
	if h.callbackToken == "" {
		return false
	}
	token, err := url.PathUnescape(c.Params("token"))
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.callbackToken)) == 1
}
