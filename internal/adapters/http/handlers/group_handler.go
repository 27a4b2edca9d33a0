package handlers

import (
	"sacco-hub/internal/adapters/http/middleware"
	"sacco-hub/internal/core/domain"
	"sacco-hub/internal/core/services"
	"sacco-hub/internal/pkg/pagination"
	"sacco-hub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// GroupHandler handles groups and their membership
type GroupHandler struct {
	membershipService *services.MembershipService
	pageSize          int
}

// NewGroupHandler creates a new group handler
func NewGroupHandler(membershipService *services.MembershipService, pageSize int) *GroupHandler {
	return &GroupHandler{
		membershipService: membershipService,
		pageSize:          pageSize,
	}
}

// CreateGroupRequest represents create group request
type CreateGroupRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

// DecisionRequest carries an admit/reject decision
type DecisionRequest struct {
	Decision string `json:"decision" validate:"required"`
}

// PromoteRequest names the member who becomes group admin
type PromoteRequest struct {
	MemberID uint `json:"member_id" validate:"required"`
}

// Create creates a group with the caller as admin
// @Summary Create group
// @Tags Groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateGroupRequest true "Group data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /groups [post]
func (h *GroupHandler) Create(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req CreateGroupRequest
	if err := bindBody(c, &req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	group, err := h.membershipService.CreateGroup(c.Context(), actor, services.CreateGroupInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return writeError(c, err)
	}

	return response.Created(c, "Group created successfully", fiber.Map{
		"group": group,
	})
}

// List lists groups
// @Summary List groups
// @Tags Groups
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Router /groups [get]
func (h *GroupHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c, h.pageSize)

	groups, total, err := h.membershipService.ListGroups(c.Context(), params.Offset, params.Limit)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Groups retrieved successfully", pagination.NewResponse(groups, params, total))
}

// Get gets a group
// @Summary Get group
// @Tags Groups
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /groups/{id} [get]
func (h *GroupHandler) Get(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid group ID")
	}

	group, err := h.membershipService.GetGroup(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Group retrieved successfully", fiber.Map{
		"group": group,
	})
}

// Members lists the group roster
// @Summary List group members
// @Tags Groups
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /groups/{id}/members [get]
func (h *GroupHandler) Members(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid group ID")
	}

	roster, err := h.membershipService.ListRoster(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Members retrieved successfully", fiber.Map{
		"members": roster,
	})
}

// Join requests membership of a group
// @Summary Request to join group
// @Tags Groups
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Success 201 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /groups/{id}/join [post]
func (h *GroupHandler) Join(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid group ID")
	}

	req, err := h.membershipService.RequestMembership(c.Context(), actor.MemberID, id)
	if err != nil {
		return writeError(c, err)
	}

	return response.Created(c, "Membership requested", fiber.Map{
		"request": req,
	})
}

// Requests lists pending membership requests (group admin only)
// @Summary List pending requests
// @Tags Groups
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /groups/{id}/requests [get]
func (h *GroupHandler) Requests(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid group ID")
	}

	requests, err := h.membershipService.ListPendingRequests(c.Context(), id, actor.MemberID)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Requests retrieved successfully", fiber.Map{
		"requests": requests,
	})
}

// Decide admits or rejects a pending request (group admin only)
// @Summary Decide membership request
// @Tags Groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Param memberId path int true "Requesting member ID"
// @Param body body DecisionRequest true "admit or reject"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /groups/{id}/requests/{memberId}/decision [post]
func (h *GroupHandler) Decide(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	groupID, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid group ID")
	}
	memberID, ok := paramID(c, "memberId")
	if !ok {
		return response.BadRequest(c, "Invalid member ID")
	}

	var req DecisionRequest
	if err := bindBody(c, &req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	status, err := h.membershipService.DecideMembership(c.Context(), groupID, memberID, domain.MembershipDecision(req.Decision), actor.MemberID)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Request decided", fiber.Map{
		"group_id":  groupID,
		"member_id": memberID,
		"status":    status,
	})
}

// Promote hands group administration to another roster member
// @Summary Transfer group admin
// @Tags Groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Param body body PromoteRequest true "New admin"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /groups/{id}/admin [post]
func (h *GroupHandler) Promote(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid group ID")
	}

	var req PromoteRequest
	if err := bindBody(c, &req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	group, err := h.membershipService.PromoteAdmin(c.Context(), id, req.MemberID, actor.MemberID)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Group admin updated", fiber.Map{
		"group": group,
	})
}
