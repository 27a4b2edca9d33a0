package handlers

import (
	"sacco-hub/internal/adapters/http/middleware"
	"sacco-hub/internal/core/services"
	"sacco-hub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// MeetingHandler handles group meetings
type MeetingHandler struct {
	meetingService *services.MeetingService
}

// NewMeetingHandler creates a new meeting handler
func NewMeetingHandler(meetingService *services.MeetingService) *MeetingHandler {
	return &MeetingHandler{meetingService: meetingService}
}

// ScheduleMeetingRequest represents schedule meeting request
type ScheduleMeetingRequest struct {
	Title       string `json:"title" validate:"required,max=120"`
	Description string `json:"description" validate:"max=2000"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Time        string `json:"time" validate:"required,datetime=15:04"`
}

// Schedule schedules a meeting and notifies the roster
// @Summary Schedule meeting
// @Tags Meetings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Param body body ScheduleMeetingRequest true "Meeting data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /groups/{id}/meetings [post]
func (h *MeetingHandler) Schedule(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	groupID, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid group ID")
	}

	var req ScheduleMeetingRequest
	if err := bindBody(c, &req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	meeting, err := h.meetingService.ScheduleMeeting(c.Context(), groupID, actor, services.ScheduleMeetingInput{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Time:        req.Time,
	})
	if err != nil {
		return writeError(c, err)
	}

	return response.Created(c, "Meeting scheduled", fiber.Map{
		"meeting": meeting,
	})
}

// List lists upcoming meetings
// @Summary List meetings
// @Tags Meetings
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /groups/{id}/meetings [get]
func (h *MeetingHandler) List(c *fiber.Ctx) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	groupID, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid group ID")
	}

	meetings, err := h.meetingService.ListMeetings(c.Context(), groupID, actor)
	if err != nil {
		return writeError(c, err)
	}

	return response.Success(c, "Meetings retrieved successfully", fiber.Map{
		"meetings": meetings,
	})
}
