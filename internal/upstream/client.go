package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
)

// Response is an upstream payload together with the status the upstream
// answered with, so proxy routes can forward both untouched.
type Response struct {
	StatusCode int
	Body       []byte
}

// Client fetches forecast payloads from Open-Meteo.
type Client struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewClient creates an Open-Meteo client with retry and circuit breaking.
func NewClient(httpClient *http.Client, baseURL string) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openmeteo",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client: httpClient,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: cb,
	}
}

// Current fetches current conditions for the coordinate.
func (c *Client) Current(ctx context.Context, lat, lon, timezone string) (*Response, error) {
	values := url.Values{}
	values.Set("latitude", lat)
	values.Set("longitude", lon)
	values.Set("current_weather", "true")
	values.Set("timezone", timezone)
	return c.get(ctx, values)
}

// Hourly fetches the hourly series, optionally bounded by from/to dates
// (YYYY-MM-DD).
func (c *Client) Hourly(ctx context.Context, lat, lon, timezone, from, to string) (*Response, error) {
	values := url.Values{}
	values.Set("latitude", lat)
	values.Set("longitude", lon)
	values.Set("hourly", "temperature_2m,relative_humidity_2m,precipitation,weathercode")
	values.Set("timezone", timezone)
	if from != "" {
		values.Set("start_date", from)
	}
	if to != "" {
		values.Set("end_date", to)
	}
	return c.get(ctx, values)
}

// Daily fetches the daily series, optionally bounded by from/to dates.
func (c *Client) Daily(ctx context.Context, lat, lon, timezone, from, to string) (*Response, error) {
	values := url.Values{}
	values.Set("latitude", lat)
	values.Set("longitude", lon)
	values.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_sum")
	values.Set("timezone", timezone)
	if from != "" {
		values.Set("start_date", from)
	}
	if to != "" {
		values.Set("end_date", to)
	}
	return c.get(ctx, values)
}

func (c *Client) get(ctx context.Context, values url.Values) (*Response, error) {
	buildRequest := func() (*http.Request, error) {
		u := fmt.Sprintf("%s?%s", c.baseURL, values.Encode())
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
