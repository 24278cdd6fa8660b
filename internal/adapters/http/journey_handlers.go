package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/canopyops/geoscene/internal/core/usecases"
)

// ListJourneysHandler returns active journeys with the colours the map uses.
func ListJourneysHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset, limit := pageParams(c, 20, 100)

		journeys, total, err := deps.Journeys.List(c.UserContext(), limit, offset)
		if err != nil {
			return errInternal(c, err.Error())
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: journeys, Pagination: pg})
	}
}

// GetJourneyHandler returns one journey by tracking id.
func GetJourneyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		j, err := deps.Journeys.Get(c.UserContext(), c.Params("trackingId"))
		if errors.Is(err, usecases.ErrJourneyNotFound) {
			return errNotFound(c, "journey not found")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(j)
	}
}
