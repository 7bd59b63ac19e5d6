package sequence

import (
	"backend-roadtrip/internal/apperr"
	"backend-roadtrip/internal/model"

	"github.com/gofiber/fiber/v2"
)

type insertStopRequest struct {
	model.Stop
	Position int `json:"position"`
}

type insertStintRequest struct {
	model.Stint
	Position int `json:"position"`
}

type moveRequest struct {
	TargetStintID  string `json:"target_stint_id"`
	SequenceNumber int    `json:"sequence_number"`
}

// RegisterRoutes mounts the sequencing operations on the api root. Every
// route is a write and sits behind authMiddleware.
func RegisterRoutes(r fiber.Router, m *Manager, authMiddleware fiber.Handler) {
	r.Post("/trips/:id/stints", authMiddleware, func(c *fiber.Ctx) error {
		var req insertStintRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		created, err := m.InsertStint(c.Context(), c.Params("id"), req.Position, req.Stint)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	r.Put("/trips/:id/stints/order", authMiddleware, func(c *fiber.Ctx) error {
		var order []StintPosition
		if err := c.BodyParser(&order); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		stints, err := m.ReorderStints(c.Context(), c.Params("id"), order)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(stints)
	})

	r.Delete("/stints/:id", authMiddleware, func(c *fiber.Ctx) error {
		if err := m.RemoveStint(c.Context(), c.Params("id")); err != nil {
			return apperr.ToFiber(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/stints/:id/stops", authMiddleware, func(c *fiber.Ctx) error {
		var req insertStopRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		created, err := m.InsertStop(c.Context(), c.Params("id"), req.Position, req.Stop)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	r.Put("/stints/:id/stops/order", authMiddleware, func(c *fiber.Ctx) error {
		var order []StopPosition
		if err := c.BodyParser(&order); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		stops, err := m.ReorderStops(c.Context(), c.Params("id"), order)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(stops)
	})

	r.Post("/stops/:id/move", authMiddleware, func(c *fiber.Ctx) error {
		var body moveRequest
		if err := c.BodyParser(&body); err != nil || body.TargetStintID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "target_stint_id required")
		}
		requester, _ := c.Locals("user_id").(string)
		res, err := m.MoveStop(c.Context(), MoveRequest{
			RequesterID:    requester,
			StopID:         c.Params("id"),
			TargetStintID:  body.TargetStintID,
			SequenceNumber: body.SequenceNumber,
		})
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(res)
	})

	r.Delete("/stops/:id", authMiddleware, func(c *fiber.Ctx) error {
		if err := m.RemoveStop(c.Context(), c.Params("id")); err != nil {
			return apperr.ToFiber(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
