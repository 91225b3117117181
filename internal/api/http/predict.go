package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/relvacode/iso8601"

	"github.com/i474232898/sensor-dashboard/internal/forecast"
	"github.com/i474232898/sensor-dashboard/internal/telemetry"
)

type predictRequest struct {
	Sensor          string       `json:"sensor" validate:"required"`
	Model           string       `json:"model"`
	Start           iso8601.Time `json:"start"`
	End             iso8601.Time `json:"end"`
	IntervalMinutes int          `json:"interval_minutes" validate:"omitempty,min=1,max=1440"`
	Neighbors       int          `json:"neighbors" validate:"omitempty,min=1,max=100"`
	Daily           bool         `json:"daily"`
}

// sensorPredictRequest is the body posted to a sensor's own predict route.
type sensorPredictRequest struct {
	StartDate iso8601.Time `json:"startDate"`
	EndDate   iso8601.Time `json:"endDate"`
	Algorithm string       `json:"algorithm" validate:"required"`
}

// forecastParams is what both predict routes reduce to.
type forecastParams struct {
	field      telemetry.FieldKey
	model      string
	start, end time.Time
	interval   time.Duration
	opts       forecast.Options
}

func intervalMinutes(n int) time.Duration {
	if n == 0 {
		return time.Minute
	}
	return time.Duration(n) * time.Minute
}

// predictHandler fits the requested model on the sensor's history and
// returns the predicted points between start and end.
func predictHandler(d Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req predictRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Start.IsZero() || req.End.IsZero() {
			return fiber.NewError(fiber.StatusBadRequest, "start and end are required")
		}

		field, err := resolveSensor(d.Fields, req.Sensor)
		if err != nil {
			return toHTTPError(err)
		}

		points, err := runForecast(c, d, forecastParams{
			field:    field,
			model:    req.Model,
			start:    req.Start.Time,
			end:      req.End.Time,
			interval: intervalMinutes(req.IntervalMinutes),
			opts:     forecast.Options{Neighbors: req.Neighbors, Daily: req.Daily},
		})
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(points)
	}
}

// sensorPredictHandler serves POST <sensor route>/predict. The response is
// two parallel arrays: timestamps and values.
func sensorPredictHandler(d Deps, resolve func(c *fiber.Ctx) (telemetry.FieldKey, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		field, err := resolve(c)
		if err != nil {
			return err
		}

		var req sensorPredictRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.StartDate.IsZero() || req.EndDate.IsZero() {
			return fiber.NewError(fiber.StatusBadRequest, "startDate and endDate are required")
		}

		points, err := runForecast(c, d, forecastParams{
			field:    field,
			model:    req.Algorithm,
			start:    req.StartDate.Time,
			end:      req.EndDate.Time,
			interval: time.Minute,
		})
		if err != nil {
			return toHTTPError(err)
		}

		timestamps := make([]string, len(points))
		values := make([]float64, len(points))
		for i, p := range points {
			timestamps[i] = p.Timestamp.Format(telemetry.TimestampLayout)
			values[i] = p.Value
		}
		return c.JSON([]interface{}{timestamps, values})
	}
}

func runForecast(c *fiber.Ctx, d Deps, p forecastParams) ([]forecast.Point, error) {
	model, err := forecast.New(p.model, p.opts)
	if err != nil {
		return nil, err
	}

	readings, _, err := d.Service.Sensor(c.UserContext(), measurementStore(c), p.field)
	if err != nil {
		return nil, err
	}

	points, err := forecast.Forecast(model, forecast.SamplesFromReadings(readings), p.start, p.end, p.interval)
	if err != nil {
		return nil, err
	}
	if points == nil {
		points = []forecast.Point{}
	}

	if login, ok := c.Locals(loginKey).(string); ok {
		d.Log.WithField("user", login).Debugf("forecast of %s with %d points", p.field, len(points))
	}
	return points, nil
}
