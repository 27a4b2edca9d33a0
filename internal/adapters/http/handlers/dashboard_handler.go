package handlers

import (
	"sacco-hub/internal/adapters/http/middleware"
	"sacco-hub/internal/core/services"
	"sacco-hub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// DashboardHandler handles dashboard endpoints
type DashboardHandler struct {
	dashboardService *services.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// GetAdminDashboard returns admin dashboard data
// @Summary Admin Dashboard
// @Description Cooperative-wide counts and totals (Admin only)
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /admin/dashboard [get]
func (h *DashboardHandler) GetAdminDashboard(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	data, err := h.dashboardService.GetAdminDashboard(c.Context(), actor)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Admin dashboard retrieved successfully", data)
}

// GetMemberDashboard returns the caller's overview
// @Summary Member Dashboard
// @Description Balances, active loans, unread notifications and upcoming meetings
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /dashboard [get]
func (h *DashboardHandler) GetMemberDashboard(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	data, err := h.dashboardService.GetMemberDashboard(c.Context(), actor.MemberID)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Dashboard retrieved successfully", data)
}
