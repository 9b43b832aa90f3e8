package httpapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weathercrow/internal/store"
	"github.com/i474232898/weathercrow/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/weather/latest", func(c *fiber.Ctx) error {
		snapshot, ok := service.Latest()
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no weather data stored")
		}
		return c.JSON(snapshot)
	})

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		summary, ok := service.Current()
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no current conditions stored")
		}
		return c.JSON(fiber.Map{
			"location": service.Location(),
			"current":  summary,
		})
	})

	v1.Get("/weather/history", func(c *fiber.Ctx) error {
		snapshots := service.History()
		if snapshots == nil {
			snapshots = []weather.Snapshot{}
		}
		return c.JSON(fiber.Map{
			"capacity":  store.MaxWeatherHistory,
			"snapshots": snapshots,
		})
	})

	v1.Get("/connection/last", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": service.LastConnectionTimestamp(),
		})
	})

	v1.Get("/connection/log", func(c *fiber.Ctx) error {
		var q logQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		entries := service.ConnectionLog(q.Limit)
		if entries == nil {
			entries = []weather.ConnectionLogEntry{}
		}
		return c.JSON(fiber.Map{
			"entries": entries,
		})
	})

	v1.Get("/failures", func(c *fiber.Ctx) error {
		return c.JSON(failureCountBody{Count: intPtr(service.FailureCount())})
	})

	v1.Put("/failures", func(c *fiber.Ctx) error {
		var body failureCountBody
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		service.SetFailureCount(*body.Count)
		return c.JSON(failureCountBody{Count: intPtr(service.FailureCount())})
	})
}

// logQuery holds query parameters for the connection log endpoint.
type logQuery struct {
	Limit int `validate:"min=1,max=10"`
}

func (q *logQuery) bind(c *fiber.Ctx) error {
	q.Limit = c.QueryInt("limit", store.MaxConnectionLog)
	return validate.Struct(q)
}

type failureCountBody struct {
	Count *int `json:"count" validate:"required,min=0"`
}

func intPtr(n int) *int {
	return &n
}
