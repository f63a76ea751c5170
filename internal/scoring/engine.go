// Package scoring turns an hourly weather series into per-hour bite scores,
// a factor breakdown, and the best fishing windows for a species.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/lox/bitecast/internal/format"
	"github.com/lox/bitecast/internal/lunar"
	"github.com/lox/bitecast/internal/models"
)

const (
	maxHours     = 48
	summaryHours = 24
	pointsScale  = 50
)

// ErrInvalidInput is wrapped by every rejection from BuildForecastScore.
var ErrInvalidInput = errors.New("invalid forecast input")

type Input struct {
	Forecast models.WeatherForecast
	Location models.LocationInfo
	Settings models.UserSettings
	// Config defaults to DefaultConfig() when nil.
	Config *Config
	Now    time.Time
}

func invalid(msg string, args ...any) error {
	return fmt.Errorf("%w: "+msg, append([]any{ErrInvalidInput}, args...)...)
}

// BuildForecastScore scores up to the first 48 hours of the forecast for the
// configured species. The result depends only on its input.
func BuildForecastScore(in Input) (*models.ForecastResult, error) {
	cfg := in.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, invalid("config: %v", err)
	}

	species, ok := cfg.Species[in.Settings.Species]
	if !ok {
		return nil, invalid("unknown species %q", in.Settings.Species)
	}
	if !finite(in.Location.Latitude) || !finite(in.Location.Longitude) {
		return nil, invalid("non-finite location %v,%v", in.Location.Latitude, in.Location.Longitude)
	}
	loc, err := time.LoadLocation(in.Forecast.Timezone)
	if err != nil {
		return nil, invalid("timezone %q: %v", in.Forecast.Timezone, err)
	}

	limit, err := usableHours(in.Forecast.Hourly)
	if err != nil {
		return nil, err
	}

	units := models.ParseUnits(string(in.Settings.Units))

	hourly, err := scoreHours(in.Forecast.Hourly, limit, loc, cfg.Thresholds, species)
	if err != nil {
		return nil, err
	}

	next24 := hourly[:min(summaryHours, len(hourly))]
	scores := make([]float64, len(next24))
	for i, h := range next24 {
		scores[i] = h.Score
	}
	totalScore := int(math.Round(format.Average(scores)))

	breakdown := factorBreakdown(next24, species.Weights)
	why := make([]string, 0, 3)
	for _, c := range breakdown[:min(3, len(breakdown))] {
		why = append(why, whyLine(c))
	}

	return &models.ForecastResult{
		Location:        in.Location,
		Units:           units,
		Species:         in.Settings.Species,
		Timezone:        in.Forecast.Timezone,
		FetchedAt:       in.Forecast.FetchedAt,
		Moon:            lunar.ComputeMoonInfo(in.Now),
		Solunar:         lunar.BuildSolunarSummary(in.Location.Latitude, in.Location.Longitude, in.Forecast.Timezone, in.Now),
		FactorBreakdown: breakdown,
		Summary: models.ForecastSummary{
			TotalScore:     totalScore,
			Rating:         models.RatingFor(float64(totalScore)),
			Why:            why,
			BestWindows:    bestWindows(hourly, loc),
			LastUpdatedISO: in.Now.UTC().Format(time.RFC3339),
		},
		Hourly: hourly,
		Raw:    cloneForecast(in.Forecast),
	}, nil
}

// usableHours returns how many leading hours every series covers. A forecast
// with no data at all is valid; one where only some series are empty is not.
func usableHours(h models.HourlyWeather) (int, error) {
	lengths := []int{
		len(h.Time),
		len(h.Temperature2m),
		len(h.PrecipitationProbability),
		len(h.Windspeed10m),
		len(h.Windgusts10m),
		len(h.Cloudcover),
		len(h.Pressure),
	}
	limit := min(maxHours, slices.Min(lengths))
	if limit == 0 && slices.Max(lengths) > 0 {
		return 0, invalid("hourly series have no overlapping hours (lengths %v)", lengths)
	}

	series := []struct {
		name string
		vals []float64
	}{
		{"temperature2m", h.Temperature2m},
		{"precipitationProbability", h.PrecipitationProbability},
		{"windspeed10m", h.Windspeed10m},
		{"windgusts10m", h.Windgusts10m},
		{"cloudcover", h.Cloudcover},
		{"pressure", h.Pressure},
	}
	for _, s := range series {
		for i, v := range s.vals[:limit] {
			if !finite(v) {
				return 0, invalid("%s[%d] is %v", s.name, i, v)
			}
		}
	}
	return limit, nil
}

func scoreHours(h models.HourlyWeather, limit int, loc *time.Location, t ThresholdConfig, species SpeciesConfig) ([]models.HourlyScorePoint, error) {
	hourly := make([]models.HourlyScorePoint, 0, limit)

	for i := 0; i < limit; i++ {
		epoch := h.Time[i]
		c := hourConditions{
			epoch:       epoch,
			localHour:   format.HourIn(epoch, loc),
			localMonth:  format.MonthIn(epoch, loc),
			tempC:       h.Temperature2m[i],
			precipPct:   h.PrecipitationProbability[i],
			windKmh:     h.Windspeed10m[i],
			gustKmh:     h.Windgusts10m[i],
			cloudPct:    h.Cloudcover[i],
			pressureHpa: h.Pressure[i],
		}
		if i >= 3 {
			c.tempChange3h = math.Abs(c.tempC - h.Temperature2m[i-3])
			c.pressureTrend = c.pressureHpa - h.Pressure[i-3]
		}

		contributions := make(map[models.FactorKey]float64, len(species.Weights))
		total := 50.0
		for _, f := range models.AllFactors {
			weight, ok := species.Weights[f]
			if !ok {
				continue
			}
			normalized, err := normalizedScore(f, c, t, species)
			if err != nil {
				return nil, err
			}
			points := normalized * weight * pointsScale
			contributions[f] = points
			total += points
		}

		hourly = append(hourly, models.HourlyScorePoint{
			Epoch: epoch,
			Score: format.Round(format.Clamp(total, 0, 100), 1),
			Inputs: models.HourlyInputs{
				TemperatureC:             c.tempC,
				PrecipitationProbability: c.precipPct,
				WindSpeedKmh:             c.windKmh,
				WindGustKmh:              c.gustKmh,
				CloudCover:               c.cloudPct,
				PressureHpa:              c.pressureHpa,
			},
			Contributions: contributions,
		})
	}
	return hourly, nil
}

func cloneForecast(f models.WeatherForecast) models.WeatherForecast {
	f.Hourly = models.HourlyWeather{
		Time:                     slices.Clone(f.Hourly.Time),
		Temperature2m:            slices.Clone(f.Hourly.Temperature2m),
		PrecipitationProbability: slices.Clone(f.Hourly.PrecipitationProbability),
		Windspeed10m:             slices.Clone(f.Hourly.Windspeed10m),
		Windgusts10m:             slices.Clone(f.Hourly.Windgusts10m),
		Cloudcover:               slices.Clone(f.Hourly.Cloudcover),
		Pressure:                 slices.Clone(f.Hourly.Pressure),
	}
	return f
}
