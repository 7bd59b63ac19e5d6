package timeline

import (
	"backend-roadtrip/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the read-only timeline views on the api root.
func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Get("/trips/:id/timeline", func(c *fiber.Ctx) error {
		out, err := svc.AssembleTripTimeline(c.Context(), c.Params("id"))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(out)
	})

	r.Get("/stints/:id/timeline", func(c *fiber.Ctx) error {
		out, err := svc.AssembleStintTimeline(c.Context(), c.Params("id"))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(out)
	})
}
