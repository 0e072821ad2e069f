package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Position is a geolocation fix.
type Position struct {
	Lat float64
	Lon float64
}

// Locator is the external collaborator producing the device's position.
type Locator interface {
	// Current returns a position fix, honouring ctx for timeout and
	// cancellation.
	Current(ctx context.Context) (Position, error)
	// Granted reports whether the user has granted location permission.
	Granted() bool
}

// IPLocator resolves an approximate position from the caller's public IP
// address. Granting is a configuration decision, not a browser prompt, so
// it is fixed at construction.
type IPLocator struct {
	endpoint   string
	httpClient *http.Client
	granted    bool
}

// NewIPLocator creates an IP-based locator using ip-api.com.
func NewIPLocator(httpClient *http.Client, granted bool) *IPLocator {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &IPLocator{
		endpoint:   "http://ip-api.com/json?fields=status,lat,lon",
		httpClient: httpClient,
		granted:    granted,
	}
}

func (l *IPLocator) Granted() bool { return l.granted }

func (l *IPLocator) Current(ctx context.Context) (Position, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint, nil)
	if err != nil {
		return Position{}, err
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return Position{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Position{}, fmt.Errorf("geolocation lookup failed (%d)", resp.StatusCode)
	}

	var payload struct {
		Status string  `json:"status"`
		Lat    float64 `json:"lat"`
		Lon    float64 `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Position{}, fmt.Errorf("decode geolocation response: %w", err)
	}
	if payload.Status != "success" {
		return Position{}, fmt.Errorf("geolocation lookup refused: %s", payload.Status)
	}

	return Position{Lat: payload.Lat, Lon: payload.Lon}, nil
}
