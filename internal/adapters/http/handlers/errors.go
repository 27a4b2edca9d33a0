package handlers

import (
	"errors"
	"strconv"

	"sacco-hub/internal/core/domain"
	"sacco-hub/internal/core/services"
	"sacco-hub/internal/pkg/logger"
	"sacco-hub/internal/pkg/response"
	"sacco-hub/internal/pkg/validator"

	"github.com/gofiber/fiber/v2"
)

// writeError maps a service error to its HTTP status
func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return response.Forbidden(c, err.Error())
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUnknownTransaction):
		return response.NotFound(c, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrDuplicateRequest):
		return response.Conflict(c, err.Error())
	case errors.Is(err, domain.ErrGatewayTimeout):
		return response.GatewayTimeout(c, "Payment gateway did not respond")
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return response.BadGateway(c, "Payment gateway rejected the request")
	case errors.Is(err, services.ErrUserAlreadyExists):
		return response.Conflict(c, err.Error())
	case errors.Is(err, services.ErrOldPasswordWrong), errors.Is(err, services.ErrCannotChangeOwnRole):
		return response.BadRequest(c, err.Error())
	}

	logger.L().Errorw("❌ Request failed", "method", c.Method(), "path", c.Path(), "error", err)
	return response.InternalServerError(c, "Internal server error")
}

// bindBody decodes and validates a JSON request body
func bindBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return errors.New("invalid request body")
	}
	return validator.Struct(out)
}

// paramID parses a positive numeric path parameter
func paramID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
