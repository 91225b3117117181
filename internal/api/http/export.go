package httpapi

import (
	"bufio"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/sensor-dashboard/internal/export"
	"github.com/i474232898/sensor-dashboard/internal/telemetry"
)

type exportRequest struct {
	Sensors []string `json:"sensors" validate:"omitempty,max=8,dive,required"`
}

// exportHandler streams stored measurements as CSV.
func exportHandler(d Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req exportRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
			}
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		fields, err := export.Columns(req.Sensors, func(s string) (telemetry.FieldKey, error) {
			return resolveSensor(d.Fields, s)
		})
		if err != nil {
			return toHTTPError(err)
		}

		sess, err := sessionFrom(c)
		if err != nil {
			return toHTTPError(err)
		}
		// The session is released before the body is streamed, so rows are read here.
		rows, err := sess.QueryMeasurements(c.UserContext(), telemetry.AnyField, d.ExportLimit)
		if err != nil {
			d.Log.Errorf("failed to read measurements for export: %v", err)
			return toHTTPError(telemetry.ErrStoreUnavailable)
		}

		titles := d.Fields.Titles()
		c.Attachment("export.csv")
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			n, err := export.WriteCSV(w, rows, fields, titles)
			if err != nil {
				d.Log.Warnf("csv export aborted after %d rows: %v", n, err)
				return
			}
			d.Log.Debugf("exported %d rows", n)
		})
		return nil
	}
}
