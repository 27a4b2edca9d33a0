package handlers

import (
	"sacco-hub/internal/adapters/http/middleware"
	"sacco-hub/internal/core/domain"
	"sacco-hub/internal/core/services"
	"sacco-hub/internal/pkg/pagination"
	"sacco-hub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// UserHandler handles member account endpoints
type UserHandler struct {
	userService *services.UserService
	pageSize    int
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService, pageSize int) *UserHandler {
	return &UserHandler{
		userService: userService,
		pageSize:    pageSize,
	}
}

// SetRoleRequest represents a role change
type SetRoleRequest struct {
	Role domain.Role `json:"role" validate:"required,oneof=member admin"`
}

// Me returns the current member
// @Summary Get current member
// @Description Get the authenticated member's profile and balances
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /me [get]
func (h *UserHandler) Me(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	member, err := h.userService.GetProfile(c.Context(), actor.MemberID)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Member retrieved successfully", fiber.Map{
		"member": member,
	})
}

// ChangePassword changes the current member's password
// @Summary Change password
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.ChangePasswordInput true "Old and new password"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /me/password [put]
func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req services.ChangePasswordInput
	if err := bindBody(c, &req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	if err := h.userService.ChangePassword(c.Context(), actor.MemberID, &req); err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Password changed successfully", nil)
}

// ListMembers lists all members (Admin only)
// @Summary List members
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /admin/users [get]
func (h *UserHandler) ListMembers(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.GetParams(c, h.pageSize)
	result, err := h.userService.ListMembers(c.Context(), actor, params.Offset, params.Limit)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Members retrieved successfully", pagination.NewResponse(result.Members, params, result.Total))
}

// SetRole changes a member's role (Admin only)
// @Summary Set member role
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Param body body SetRoleRequest true "New role"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/users/{id}/role [patch]
func (h *UserHandler) SetRole(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid member ID")
	}

	var req SetRoleRequest
	if err := bindBody(c, &req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	member, err := h.userService.SetRole(c.Context(), actor, id, req.Role)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Role updated successfully", fiber.Map{
		"member": member,
	})
}
