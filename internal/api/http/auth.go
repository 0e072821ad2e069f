package httpapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const userIDKey = "userID"

// loginRequest is the sign-in payload.
type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func registerAuthRoutes(v1 fiber.Router, deps Deps) {
	v1.Post("/auth/login", func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid JSON")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if req.Username != deps.DemoUser || req.Password != deps.DemoPassword {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid username or password")
		}

		token, err := deps.Issuer.Issue("1", req.Username)
		if err != nil {
			deps.Logger.Error().Err(err).Msg("token issue failed")
			return fiber.NewError(fiber.StatusInternalServerError, "failed to issue token")
		}

		return c.JSON(fiber.Map{"accessToken": token})
	})
}

// requireUser verifies the bearer token and stores the user id in locals.
func requireUser(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
		}

		claims, err := deps.Issuer.Verify(token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
		}

		c.Locals(userIDKey, claims.UserID())
		return c.Next()
	}
}

func currentUserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}
