package httpapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/sirapopw/weather-dashboard/internal/auth"
	"github.com/sirapopw/weather-dashboard/internal/store"
	"github.com/sirapopw/weather-dashboard/internal/upstream"
)

var validate = validator.New()

// Deps bundles everything the HTTP handlers need.
type Deps struct {
	Weather   *upstream.Client
	Latest    *upstream.ResponseCache
	Hourly    *upstream.ResponseCache
	Daily     *upstream.ResponseCache
	Locations *store.MemoryStore
	Issuer    *auth.Issuer

	DemoUser     string
	DemoPassword string

	GeocoderAPIKey string

	Logger zerolog.Logger
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	v1 := app.Group("/api/v1")

	registerAuthRoutes(v1, deps)
	registerWeatherRoutes(v1, deps)
	registerLocationRoutes(v1, deps)
	registerGeocodeRoutes(v1, deps)
}

// weatherQuery holds the pass-through parameters for the proxy endpoints.
// Defaults mirror the dashboard's home city.
type weatherQuery struct {
	Lat      string
	Lon      string
	Timezone string
	From     string
	To       string
}

func parseWeatherQuery(c *fiber.Ctx) weatherQuery {
	return weatherQuery{
		Lat:      c.Query("lat", "13.75"),
		Lon:      c.Query("lon", "100.5"),
		Timezone: c.Query("timezone", "Asia/Bangkok"),
		From:     c.Query("from"),
		To:       c.Query("to"),
	}
}

func (q weatherQuery) cacheKey() string {
	return upstream.CacheKey(q.Lat, q.Lon, q.Timezone, q.From, q.To)
}

func registerWeatherRoutes(v1 fiber.Router, deps Deps) {
	v1.Get("/weather/latest", func(c *fiber.Ctx) error {
		q := parseWeatherQuery(c)
		return proxyWeather(c, deps, deps.Latest, q, func() (*upstream.Response, error) {
			return deps.Weather.Current(c.Context(), q.Lat, q.Lon, q.Timezone)
		})
	})

	v1.Get("/weather/hourly", func(c *fiber.Ctx) error {
		q := parseWeatherQuery(c)
		return proxyWeather(c, deps, deps.Hourly, q, func() (*upstream.Response, error) {
			return deps.Weather.Hourly(c.Context(), q.Lat, q.Lon, q.Timezone, q.From, q.To)
		})
	})

	v1.Get("/weather/daily", func(c *fiber.Ctx) error {
		q := parseWeatherQuery(c)
		return proxyWeather(c, deps, deps.Daily, q, func() (*upstream.Response, error) {
			return deps.Weather.Daily(c.Context(), q.Lat, q.Lon, q.Timezone, q.From, q.To)
		})
	})
}

// proxyWeather serves from the endpoint's response cache when possible and
// otherwise forwards the upstream response, status included.
func proxyWeather(
	c *fiber.Ctx,
	deps Deps,
	cache *upstream.ResponseCache,
	q weatherQuery,
	fetch func() (*upstream.Response, error),
) error {
	key := q.cacheKey()
	if resp, ok := cache.Get(key); ok {
		return forwardUpstream(c, resp)
	}

	resp, err := fetch()
	if err != nil {
		deps.Logger.Warn().Err(err).Str("path", c.Path()).Msg("upstream fetch failed")
		return fiber.NewError(fiber.StatusBadGateway, "failed to fetch weather data")
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		cache.Set(key, resp)
	}
	return forwardUpstream(c, resp)
}

func forwardUpstream(c *fiber.Ctx, resp *upstream.Response) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(resp.StatusCode).Send(resp.Body)
}
