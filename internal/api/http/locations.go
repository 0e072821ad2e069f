package httpapi

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/sirapopw/weather-dashboard/internal/store"
	"github.com/sirapopw/weather-dashboard/internal/weather"
)

// followRequest is the PATCH payload toggling a location's follow flag.
type followRequest struct {
	ID         int   `json:"id" validate:"required"`
	IsFollowed *bool `json:"isFollowed" validate:"required"`
}

func registerLocationRoutes(v1 fiber.Router, deps Deps) {
	locs := v1.Group("/locations", requireUser(deps))

	locs.Get("/", func(c *fiber.Ctx) error {
		list := deps.Locations.List(currentUserID(c))
		return c.JSON(fiber.Map{"locations": list})
	})

	locs.Post("/", func(c *fiber.Ctx) error {
		var payload weather.NewLocationPayload
		if err := c.BodyParser(&payload); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid JSON")
		}
		if err := validate.Struct(payload); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc := deps.Locations.Create(currentUserID(c), payload)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message":  "Location added successfully",
			"location": loc,
		})
	})

	locs.Patch("/", func(c *fiber.Ctx) error {
		var req followRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid JSON")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc, err := deps.Locations.SetFollowed(currentUserID(c), req.ID, *req.IsFollowed)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "location not found")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to update follow state")
		}

		return c.JSON(fiber.Map{
			"message":  "Follow state updated",
			"location": loc,
		})
	})

	locs.Delete("/", func(c *fiber.Ctx) error {
		idParam := c.Query("id")
		id, err := strconv.Atoi(idParam)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid id")
		}

		removed, err := deps.Locations.Delete(currentUserID(c), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "location not found")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to remove location")
		}

		return c.JSON(fiber.Map{
			"message":  "Location removed",
			"location": removed,
		})
	})
}
