package handlers

import (
	"sacco-hub/internal/adapters/http/middleware"
	"sacco-hub/internal/core/services"
	"sacco-hub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ChatHandler handles group chat
type ChatHandler struct {
	chatService *services.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// SendMessageRequest represents a chat message
type SendMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

// Send posts a message to the group
// @Summary Send chat message
// @Tags Chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Param body body SendMessageRequest true "Message"
// @Success 201 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /groups/{id}/messages [post]
func (h *ChatHandler) Send(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	groupID, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid group ID")
	}

	var req SendMessageRequest
	if err := bindBody(c, &req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	msg, err := h.chatService.SendMessage(c.Context(), groupID, actor, req.Content)
	if err != nil {
		return writeError(c, err)
	}

	return response.Created(c, "Message sent", fiber.Map{
		"message": msg,
	})
}

// History returns recent messages
// @Summary Chat history
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /groups/{id}/messages [get]
func (h *ChatHandler) History(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	groupID, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid group ID")
	}

	msgs, err := h.chatService.ListMessages(c.Context(), groupID, actor)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Messages retrieved successfully", fiber.Map{
		"messages": msgs,
	})
}

// Stream opens a server-sent event stream of new group messages
// @Summary Chat stream (SSE)
// @Tags Chat
// @Produce text/event-stream
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Success 200 {string} string "event stream"
// @Failure 403 {object} response.Response
// @Router /groups/{id}/chat/stream [get]
func (h *ChatHandler) Stream(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	groupID, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid group ID")
	}

	sub, err := h.chatService.Subscribe(c.Context(), groupID, actor)
	if err != nil {
		return writeError(c, err)
	}

	return streamEvents(c, sub, h.chatService.Unsubscribe)
}
