package handlers

import (
	"sacco-hub/internal/adapters/http/middleware"
	"sacco-hub/internal/core/services"
	"sacco-hub/internal/pkg/pagination"
	"sacco-hub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// NotificationHandler handles member notifications
type NotificationHandler struct {
	notificationService *services.NotificationService
	pageSize            int
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notificationService *services.NotificationService, pageSize int) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		pageSize:            pageSize,
	}
}

// List lists the caller's notifications, newest first
// @Summary List notifications
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param unread query bool false "Only unread"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Router /notifications [get]
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.GetParams(c, h.pageSize)
	notes, total, err := h.notificationService.List(c.Context(), actor.MemberID, c.QueryBool("unread"), params.Offset, params.Limit)
	if err != nil {
		return writeError(c, err)
	}
	unread, err := h.notificationService.CountUnread(c.Context(), actor.MemberID)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Notifications retrieved successfully", fiber.Map{
		"notifications": notes,
		"unread":        unread,
		"meta":          pagination.GetMeta(params, total),
	})
}

// MarkRead marks one notification read
// @Summary Mark notification read
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notification ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /notifications/{id}/read [patch]
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid notification ID")
	}

	if err := h.notificationService.MarkRead(c.Context(), actor.MemberID, id); err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Notification marked as read", nil)
}

// MarkAllRead marks every notification read
// @Summary Mark all notifications read
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /notifications/read-all [patch]
func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	n, err := h.notificationService.MarkAllRead(c.Context(), actor.MemberID)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Notifications marked as read", fiber.Map{
		"updated": n,
	})
}

// Stream opens the caller's notification event stream
// @Summary Notification stream (SSE)
// @Tags Notifications
// @Produce text/event-stream
// @Security BearerAuth
// @Success 200 {string} string "event stream"
// @Router /notifications/stream [get]
func (h *NotificationHandler) Stream(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	sub := h.notificationService.Subscribe(actor.MemberID)
	if sub == nil {
		return response.ServiceUnavailable(c, "Streaming is not available")
	}

	return streamEvents(c, sub, h.notificationService.Unsubscribe)
}
