package weather

import (
	"time"
)

// Location is a named geographic point tracked by a user.
type Location struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Timezone   string  `json:"timezone"` // IANA timezone name
	IsFollowed bool    `json:"isFollowed"`
}

// HourlyPoint is a single sample of the hourly series.
type HourlyPoint struct {
	Time          time.Time `json:"time"`
	Temperature   float64   `json:"temperature"`   // °C
	Precipitation float64   `json:"precipitation"` // mm
	Humidity      float64   `json:"humidity"`      // %
}

// DailyPoint is a single day aggregate of the daily series.
type DailyPoint struct {
	Date    string  `json:"date"` // YYYY-MM-DD in the location's timezone
	TempMax float64 `json:"tempMax"`
	TempMin float64 `json:"tempMin"`
	Rain    float64 `json:"rain"` // mm
}

// LocationWeather is a Location together with its chart series.
// Both series are chronological, oldest first; the last element is the
// most recent sample.
type LocationWeather struct {
	Location
	Hourly      []HourlyPoint `json:"hourly"`
	Daily       []DailyPoint  `json:"daily"`
	LastUpdated time.Time     `json:"lastUpdated"`
}

// LatestHourly returns the most recent hourly sample.
func (lw LocationWeather) LatestHourly() (HourlyPoint, bool) {
	if len(lw.Hourly) == 0 {
		return HourlyPoint{}, false
	}
	return lw.Hourly[len(lw.Hourly)-1], true
}

// NewLocationPayload is the shape accepted when creating a location.
type NewLocationPayload struct {
	Name       string  `json:"name" validate:"required"`
	Lat        float64 `json:"lat" validate:"latitude"`
	Lon        float64 `json:"lon" validate:"longitude"`
	Timezone   string  `json:"timezone" validate:"required"`
	IsFollowed *bool   `json:"isFollowed,omitempty"`
}
