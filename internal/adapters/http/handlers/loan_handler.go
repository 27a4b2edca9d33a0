package handlers

import (
	"sacco-hub/internal/adapters/http/middleware"
	"sacco-hub/internal/adapters/persistence/models"
	"sacco-hub/internal/core/domain"
	"sacco-hub/internal/core/services"
	"sacco-hub/internal/pkg/pagination"
	"sacco-hub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// LoanHandler handles loan endpoints
type LoanHandler struct {
	loanService *services.LoanService
	pageSize    int
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(loanService *services.LoanService, pageSize int) *LoanHandler {
	return &LoanHandler{
		loanService: loanService,
		pageSize:    pageSize,
	}
}

// RequestLoanRequest represents loan application
type RequestLoanRequest struct {
	Amount          decimal.Decimal `json:"amount" validate:"gt=0"`
	Purpose         string          `json:"purpose" validate:"max=500"`
	RepaymentPeriod int             `json:"repayment_period" validate:"gte=0,lte=120"`
	GroupID         *uint           `json:"group_id,omitempty"`
}

// RecordPaymentRequest represents loan repayment
type RecordPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount" validate:"gt=0"`
	Reference string          `json:"reference" validate:"max=100"`
}

// LoanDecisionRequest carries approve or reject
type LoanDecisionRequest struct {
	Decision string `json:"decision" validate:"required"`
}

func loanResponses(loans []*models.Loan) []*models.LoanResponse {
	out := make([]*models.LoanResponse, len(loans))
	for i, l := range loans {
		out[i] = l.ToResponse()
	}
	return out
}

// Request applies for a loan
// @Summary Request loan
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body RequestLoanRequest true "Loan data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /loans [post]
func (h *LoanHandler) Request(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req RequestLoanRequest
	if err := bindBody(c, &req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	loan, err := h.loanService.RequestLoan(c.Context(), actor.MemberID, services.RequestLoanInput{
		Amount:          req.Amount,
		Purpose:         req.Purpose,
		RepaymentPeriod: req.RepaymentPeriod,
		GroupID:         req.GroupID,
	})
	if err != nil {
		return writeError(c, err)
	}

	return response.Created(c, "Loan requested successfully", fiber.Map{
		"loan": loan.ToResponse(),
	})
}

// Mine lists the caller's loans
// @Summary List my loans
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /loans/mine [get]
func (h *LoanHandler) Mine(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	loans, err := h.loanService.ListMyLoans(c.Context(), actor.MemberID)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Loans retrieved successfully", fiber.Map{
		"loans":         loanResponses(loans),
		"interest_rate": h.loanService.InterestRate(),
	})
}

// Get gets a loan visible to the caller
// @Summary Get loan
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /loans/{id} [get]
func (h *LoanHandler) Get(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid loan ID")
	}

	loan, err := h.loanService.GetLoan(c.Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Loan retrieved successfully", fiber.Map{
		"loan": loan.ToResponse(),
	})
}

// RecordPayment records a repayment received by the cooperative
// @Summary Record loan payment
// @Description Re-sending the same reference is acknowledged without a second credit
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param body body RecordPaymentRequest true "Payment"
// @Success 201 {object} response.Response
// @Success 200 {object} response.Response "duplicate reference"
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/loans/{id}/payments [post]
func (h *LoanHandler) RecordPayment(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid loan ID")
	}

	var req RecordPaymentRequest
	if err := bindBody(c, &req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	result, err := h.loanService.RecordPayment(c.Context(), actor, id, req.Amount, req.Reference)
	if err != nil {
		return writeError(c, err)
	}

	data := fiber.Map{
		"loan":      result.Loan.ToResponse(),
		"payment":   result.Payment,
		"duplicate": result.Duplicate,
	}
	if result.Duplicate {
		return response.Success(c, "Payment already recorded", data)
	}
	return response.Created(c, "Payment recorded successfully", data)
}

// Payments lists the payments of a loan
// @Summary List loan payments
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /loans/{id}/payments [get]
func (h *LoanHandler) Payments(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid loan ID")
	}

	payments, err := h.loanService.ListPayments(c.Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Payments retrieved successfully", fiber.Map{
		"payments": payments,
	})
}

// AdminList lists loans by status (Admin only)
// @Summary List loans
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, approved, rejected or paid"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /admin/loans [get]
func (h *LoanHandler) AdminList(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.GetParams(c, h.pageSize)
	loans, total, err := h.loanService.ListLoans(c.Context(), actor, domain.LoanStatus(c.Query("status")), params.Offset, params.Limit)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Loans retrieved successfully", pagination.NewResponse(loanResponses(loans), params, total))
}

// Decide approves or rejects a pending loan (Admin only)
// @Summary Decide loan
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param body body LoanDecisionRequest true "approve or reject"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/loans/{id}/decision [post]
func (h *LoanHandler) Decide(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid loan ID")
	}

	var req LoanDecisionRequest
	if err := bindBody(c, &req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	loan, err := h.loanService.DecideLoan(c.Context(), id, domain.LoanDecision(req.Decision), actor)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Loan decided", fiber.Map{
		"loan": loan.ToResponse(),
	})
}
