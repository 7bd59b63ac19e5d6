package leg

import (
	"errors"

	"backend-roadtrip/internal/apperr"
	"backend-roadtrip/internal/model"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, idx *Index, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req model.Leg
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		created, err := idx.Create(c.Context(), req)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	r.Get("/", func(c *fiber.Ctx) error {
		stintID := c.Query("stint_id")
		if stintID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "stint_id required")
		}
		legs, err := idx.FindAllByStint(c.Context(), stintID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		if legs == nil {
			legs = []model.Leg{}
		}
		return c.JSON(legs)
	})

	r.Get("/between", func(c *fiber.Ctx) error {
		start, end := c.Query("start"), c.Query("end")
		if start == "" || end == "" {
			return fiber.NewError(fiber.StatusBadRequest, "start and end required")
		}
		l, err := idx.FindBetweenStops(c.Context(), start, end)
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "no leg between stops")
		}
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(l)
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		if _, err := idx.Delete(c.Context(), c.Params("id")); err != nil {
			return apperr.ToFiber(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
