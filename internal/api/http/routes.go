package httpapi

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/sensor-dashboard/internal/auth"
	"github.com/i474232898/sensor-dashboard/internal/config"
	"github.com/i474232898/sensor-dashboard/internal/logging"
	"github.com/i474232898/sensor-dashboard/internal/telemetry"
)

var validate = validator.New()

// DataSourceHeader tells clients whether a response came from live data or the store.
const DataSourceHeader = "X-Data-Source"

// Deps bundles what the handlers need.
type Deps struct {
	Service  *telemetry.Service
	Sessions SessionSource
	Auth     *auth.Manager
	Fields   config.Fields
	// ExportLimit bounds the rows in a CSV export; 0 means all.
	ExportLimit int
	// SecureCookies marks the auth cookie Secure.
	SecureCookies bool
	Log           logging.Logger
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	api := app.Group("/api", SessionMiddleware(d.Sessions, d.Log))

	api.Get("/overview", func(c *fiber.Ctx) error {
		summary, origin, err := d.Service.Overview(c.UserContext(), measurementStore(c))
		if err != nil {
			return toHTTPError(err)
		}
		c.Set(DataSourceHeader, string(origin))
		return c.JSON(summary)
	})

	api.Get("/sensor/:field", sensorHandler(d, fieldParam))
	api.Get("/sensor/:kind/:name", sensorHandler(d, aliasParam(d.Fields)))

	registerAuthRoutes(api, d)

	api.Post("/sensor/:field/predict", requireAuth(d.Auth), sensorPredictHandler(d, fieldParam))
	api.Post("/sensor/:kind/:name/predict", requireAuth(d.Auth), sensorPredictHandler(d, aliasParam(d.Fields)))

	api.Post("/predict", requireAuth(d.Auth), predictHandler(d))
	api.Post("/export/export.csv", requireAuth(d.Auth), exportHandler(d))
}

// fieldParam resolves /sensor/:field.
func fieldParam(c *fiber.Ctx) (telemetry.FieldKey, error) {
	field, err := telemetry.ParseFieldKey(c.Params("field"))
	if err != nil {
		return telemetry.AnyField, fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return field, nil
}

// aliasParam resolves /sensor/:kind/:name against the field table.
func aliasParam(fields config.Fields) func(c *fiber.Ctx) (telemetry.FieldKey, error) {
	return func(c *fiber.Ctx) (telemetry.FieldKey, error) {
		f, ok := fields.BySlug(c.Params("kind"), c.Params("name"))
		if !ok {
			return telemetry.AnyField, fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("unknown sensor %s/%s", c.Params("kind"), c.Params("name")))
		}
		return f.Key, nil
	}
}

func sensorHandler(d Deps, resolve func(c *fiber.Ctx) (telemetry.FieldKey, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		field, err := resolve(c)
		if err != nil {
			return err
		}
		readings, origin, err := d.Service.Sensor(c.UserContext(), measurementStore(c), field)
		if err != nil {
			return toHTTPError(err)
		}
		c.Set(DataSourceHeader, string(origin))
		return c.JSON(readings)
	}
}

// resolveSensor accepts "3", "field3" and route aliases such as "dht/temp".
func resolveSensor(fields config.Fields, s string) (telemetry.FieldKey, error) {
	if kind, name, ok := strings.Cut(s, "/"); ok {
		if f, found := fields.BySlug(kind, name); found {
			return f.Key, nil
		}
		return telemetry.AnyField, fmt.Errorf("%w: unknown sensor %q", telemetry.ErrInvalidField, s)
	}
	k, err := telemetry.ParseFieldKey(s)
	if err != nil {
		return telemetry.AnyField, fmt.Errorf("%w: %v", telemetry.ErrInvalidField, err)
	}
	return k, nil
}
