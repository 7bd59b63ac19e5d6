package location

import (
	"strconv"

	"backend-roadtrip/internal/apperr"
	"backend-roadtrip/internal/model"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req model.Location
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if userID, ok := c.Locals("user_id").(string); ok && userID != "" {
			req.CreatedBy = userID
		}
		loc, err := svc.CreateLocation(c.Context(), req)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(loc)
	})

	r.Get("/nearby", func(c *fiber.Ctx) error {
		lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
		lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
		if errLat != nil || errLng != nil {
			return fiber.NewError(fiber.StatusBadRequest, "lat and lng required")
		}
		radius := defaultRadiusKm
		if raw := c.Query("radius_km"); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid radius_km")
			}
			radius = v
		}
		locs, err := svc.Nearby(c.Context(), lat, lng, radius)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(locs)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		loc, err := svc.GetLocation(c.Context(), c.Params("id"))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(loc)
	})

	r.Put("/:id", authMiddleware, func(c *fiber.Ctx) error {
		var req model.Location
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		loc, err := svc.UpdateLocation(c.Context(), c.Params("id"), req)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(loc)
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.DeleteLocation(c.Context(), c.Params("id")); err != nil {
			return apperr.ToFiber(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
