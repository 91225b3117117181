package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/sensor-dashboard/internal/forecast"
	"github.com/i474232898/sensor-dashboard/internal/telemetry"
)

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// toHTTPError maps domain errors onto status codes.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, telemetry.ErrStoreUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, "sensor data is currently unavailable")
	case errors.Is(err, telemetry.ErrInvalidField):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, forecast.ErrUnsupportedModel), errors.Is(err, forecast.ErrInvalidRange):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, forecast.ErrNotEnoughData):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "internal error")
	}
}
