package auth

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts token refresh and verification. Tokens are issued
// by the identity service; this service only rotates and checks them.
func RegisterRoutes(r fiber.Router, svc *Tokens) {
	r.Post("/refresh", func(c *fiber.Ctx) error {
		var req RefreshRequest
		if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
			return fiber.NewError(fiber.StatusBadRequest, "refresh_token required")
		}
		resp, err := svc.Rotate(c.Context(), req.RefreshToken)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
		return c.JSON(resp)
	})

	r.Get("/jwt/verify", func(c *fiber.Ctx) error {
		claims, err := svc.parseToken(bearerFromHeader(c.Get("Authorization")))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
		out := fiber.Map{"user_id": claims.UserID}
		if claims.ExpiresAt != nil {
			out["expires_at"] = claims.ExpiresAt.Time
		}
		return c.JSON(out)
	})
}
