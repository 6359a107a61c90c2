package http

import (
	"context"
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/meter-data-loader/internal/domain"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/service"
)

// MeterReader is the read side of the meter registry.
type MeterReader interface {
	List(ctx context.Context) ([]domain.Meter, error)
	Get(ctx context.Context, name string) (service.MeterSummary, error)
}

// Register mounts the registry API on app. gatherer may be nil, in which
// case /metrics is not served.
func Register(app *fiber.App, meters MeterReader, gatherer prometheus.Gatherer, log zerolog.Logger) {
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })

	if gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	g := app.Group("/meters")
	g.Get("/", func(c *fiber.Ctx) error {
		items, err := meters.List(c.UserContext())
		if err != nil {
			log.Error().Err(err).Msg("list meters")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		if items == nil {
			items = []domain.Meter{}
		}
		return c.JSON(items)
	})
	g.Get("/:name", func(c *fiber.Ctx) error {
		name, err := url.PathUnescape(c.Params("name"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		m, err := meters.Get(c.UserContext(), name)
		if errors.Is(err, domain.ErrMeterNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "meter not found", "meter_name": name})
		}
		if err != nil {
			log.Error().Err(err).Str("meter", name).Msg("get meter")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(m)
	})
}
