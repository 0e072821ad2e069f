package weather

import (
	"math"
	"math/rand"
	"time"
)

const (
	hourlyWindow = 7 * 24 // one week of hourly samples
	dailyWindow  = 7
)

func randomBetween(min, max float64) float64 {
	return rand.Float64()*(max-min) + min
}

// GenerateHourly produces a week of synthetic hourly samples around a base
// temperature, chronological and ending at the current hour.
func GenerateHourly(baseTemp float64) []HourlyPoint {
	points := make([]HourlyPoint, 0, hourlyWindow)
	now := time.Now().UTC()

	for i := hourlyWindow - 1; i >= 0; i-- {
		t := now.Add(-time.Duration(i) * time.Hour)
		temp := baseTemp + math.Sin(float64(i)/24*math.Pi)*randomBetween(2, 6) + randomBetween(-1, 1)
		precip := math.Max(0, randomBetween(-1, 5))

		points = append(points, HourlyPoint{
			Time:          t,
			Temperature:   round1(temp),
			Precipitation: round2(precip),
			Humidity:      math.Round(randomBetween(45, 95)),
		})
	}

	return points
}

// GenerateDaily produces a week of synthetic daily aggregates around a base
// temperature, chronological and ending today.
func GenerateDaily(baseTemp float64) []DailyPoint {
	points := make([]DailyPoint, 0, dailyWindow)
	today := time.Now().UTC()

	for i := dailyWindow - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		points = append(points, DailyPoint{
			Date:    day.Format("2006-01-02"),
			TempMax: round1(baseTemp + randomBetween(3, 7)),
			TempMin: round1(baseTemp - randomBetween(2, 5)),
			Rain:    round1(math.Max(0, randomBetween(-2, 15))),
		})
	}

	return points
}

// NewMockLocationWeather builds a LocationWeather with synthetic series.
// The base temperature is derived from latitude so cities look distinct.
func NewMockLocationWeather(loc Location) LocationWeather {
	baseTemp := 20 + loc.Lat/15
	return LocationWeather{
		Location:    loc,
		Hourly:      GenerateHourly(baseTemp),
		Daily:       GenerateDaily(baseTemp),
		LastUpdated: time.Now().UTC(),
	}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
