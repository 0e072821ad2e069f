package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kelvins/geocoder"
)

// registerGeocodeRoutes exposes a city search for the add-location flow.
// The endpoint resolves a city name to coordinates; it requires a Google
// geocoding API key and reports unavailability without one.
func registerGeocodeRoutes(v1 fiber.Router, deps Deps) {
	v1.Get("/geocode", func(c *fiber.Ctx) error {
		if deps.GeocoderAPIKey == "" {
			return fiber.NewError(fiber.StatusServiceUnavailable, "geocoding is not configured")
		}

		city := c.Query("city")
		if city == "" {
			return fiber.NewError(fiber.StatusBadRequest, "city query parameter is required")
		}

		geocoder.ApiKey = deps.GeocoderAPIKey
		address := geocoder.Address{
			City:    city,
			Country: c.Query("country"),
		}

		loc, err := geocoder.Geocoding(address)
		if err != nil {
			deps.Logger.Warn().Err(err).Str("city", city).Msg("geocoding failed")
			return fiber.NewError(fiber.StatusBadGateway, "failed to geocode city")
		}

		return c.JSON(fiber.Map{
			"name": city,
			"lat":  loc.Latitude,
			"lon":  loc.Longitude,
		})
	})
}
