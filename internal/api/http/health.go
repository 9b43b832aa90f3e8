package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weathercrow/internal/flashfs"
	"github.com/i474232898/weathercrow/internal/weather"
)

// RegisterHealth adds the health endpoint. usage may be nil when the
// filesystem cannot report capacity.
func RegisterHealth(app *fiber.App, service *weather.Service, usage flashfs.UsageReporter) {
	app.Get("/health", func(c *fiber.Ctx) error {
		status := "ok"
		if !service.StorageReady() {
			status = "degraded"
		}

		body := fiber.Map{
			"status":       status,
			"service":      "weathercrow",
			"storageReady": service.StorageReady(),
			"failures":     service.FailureCount(),
		}
		if usage != nil {
			if u, err := usage.Usage(); err == nil {
				body["storage"] = u
			}
		}
		return c.JSON(body)
	})
}
