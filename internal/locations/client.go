package locations

import (
	"context"
	"fmt"

	"github.com/sirapopw/weather-dashboard/internal/fetch"
	"github.com/sirapopw/weather-dashboard/internal/weather"
)

// API is the remote collaborator persisting the per-user location list.
type API interface {
	List(ctx context.Context) ([]weather.LocationWeather, error)
	Create(ctx context.Context, payload weather.NewLocationPayload) (weather.LocationWeather, error)
	SetFollowed(ctx context.Context, id int, followed bool) (weather.LocationWeather, error)
	Delete(ctx context.Context, id int) error
}

// Client talks to the dashboard's locations endpoint.
type Client struct {
	fetch *fetch.Client
}

// NewClient wraps a fetch client into the locations API.
func NewClient(fc *fetch.Client) *Client {
	return &Client{fetch: fc}
}

type listResponse struct {
	Locations []weather.LocationWeather `json:"locations"`
}

type locationResponse struct {
	Location weather.LocationWeather `json:"location"`
}

// List returns the full location list.
func (c *Client) List(ctx context.Context) ([]weather.LocationWeather, error) {
	var res listResponse
	if err := c.fetch.JSON(ctx, "/api/v1/locations", fetch.Options{UseAuth: true}, &res); err != nil {
		return nil, err
	}
	return res.Locations, nil
}

// Create adds a new location.
func (c *Client) Create(ctx context.Context, payload weather.NewLocationPayload) (weather.LocationWeather, error) {
	var res locationResponse
	err := c.fetch.JSON(ctx, "/api/v1/locations", fetch.Options{
		Method:  "POST",
		Body:    payload,
		UseAuth: true,
	}, &res)
	if err != nil {
		return weather.LocationWeather{}, err
	}
	return res.Location, nil
}

// SetFollowed persists a follow flag change.
func (c *Client) SetFollowed(ctx context.Context, id int, followed bool) (weather.LocationWeather, error) {
	var res locationResponse
	err := c.fetch.JSON(ctx, "/api/v1/locations", fetch.Options{
		Method:  "PATCH",
		Body:    map[string]any{"id": id, "isFollowed": followed},
		UseAuth: true,
	}, &res)
	if err != nil {
		return weather.LocationWeather{}, err
	}
	return res.Location, nil
}

// Delete removes a location by id.
func (c *Client) Delete(ctx context.Context, id int) error {
	return c.fetch.JSON(ctx, fmt.Sprintf("/api/v1/locations?id=%d", id), fetch.Options{
		Method:  "DELETE",
		UseAuth: true,
	}, nil)
}
