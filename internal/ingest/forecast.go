package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/lox/bitecast/internal/models"
)

const forecastHourly = "temperature_2m,precipitation_probability,windspeed_10m,windgusts_10m,cloudcover,surface_pressure,pressure_msl"

var (
	ErrMissingPressure   = errors.New("forecast response is missing pressure data")
	ErrMalformedResponse = errors.New("malformed forecast response")
)

type ForecastResponse struct {
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	Timezone  string         `json:"timezone"`
	Hourly    HourlyResponse `json:"hourly"`
}

// HourlyResponse mirrors Open-Meteo's hourly block. Values may be null.
type HourlyResponse struct {
	Time                     []int64    `json:"time"`
	Temperature2m            []*float64 `json:"temperature_2m"`
	PrecipitationProbability []*float64 `json:"precipitation_probability"`
	Windspeed10m             []*float64 `json:"windspeed_10m"`
	Windgusts10m             []*float64 `json:"windgusts_10m"`
	Cloudcover               []*float64 `json:"cloudcover"`
	SurfacePressure          []*float64 `json:"surface_pressure"`
	PressureMSL              []*float64 `json:"pressure_msl"`
}

// FetchForecast requests three days of hourly weather for a coordinate.
func (o *OpenMeteo) FetchForecast(ctx context.Context, lat, lon float64) (*models.WeatherForecast, *FetchResult, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', 5, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', 5, 64))
	params.Set("forecast_days", "3")
	params.Set("timezone", "auto")
	params.Set("timeformat", "unixtime")
	params.Set("hourly", forecastHourly)

	body, result, err := o.get(ctx, "forecast", o.forecastURL, params)
	if err != nil {
		return nil, result, err
	}

	var data ForecastResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, result, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	forecast, flags, err := ParseForecast(data)
	result.Flags = flags
	if err != nil {
		return nil, result, err
	}
	forecast.FetchedAt = o.now().UTC()
	result.RecordCount = len(forecast.Hourly.Time)
	return forecast, result, nil
}

// ParseForecast converts an Open-Meteo response into a forecast. Surface
// pressure is preferred, falling back to sea-level pressure. Series are cut at
// the first hour where any value is missing.
func ParseForecast(data ForecastResponse) (*models.WeatherForecast, []string, error) {
	if data.Timezone == "" {
		return nil, nil, fmt.Errorf("%w: no timezone", ErrMalformedResponse)
	}

	h := data.Hourly
	var flags []string

	pressure := h.SurfacePressure
	if countValues(pressure) == 0 {
		pressure = h.PressureMSL
		if countValues(pressure) > 0 {
			flags = append(flags, FlagPressureFallback)
		}
	}
	if countValues(pressure) == 0 {
		return nil, flags, ErrMissingPressure
	}

	series := [][]*float64{
		h.Temperature2m,
		h.PrecipitationProbability,
		h.Windspeed10m,
		h.Windgusts10m,
		h.Cloudcover,
		pressure,
	}

	usable := len(h.Time)
	for _, s := range series {
		if len(s) != len(h.Time) {
			flags = appendFlag(flags, FlagLengthMismatch)
		}
		usable = min(usable, len(s))
	}
	for _, s := range series {
		for i, v := range s[:usable] {
			if v == nil {
				usable = i
				flags = appendFlag(flags, FlagNullValues)
				break
			}
		}
	}

	forecast := &models.WeatherForecast{
		Latitude:  data.Latitude,
		Longitude: data.Longitude,
		Timezone:  data.Timezone,
		Hourly: models.HourlyWeather{
			Time:                     append([]int64(nil), h.Time[:usable]...),
			Temperature2m:            values(h.Temperature2m[:usable]),
			PrecipitationProbability: values(h.PrecipitationProbability[:usable]),
			Windspeed10m:             values(h.Windspeed10m[:usable]),
			Windgusts10m:             values(h.Windgusts10m[:usable]),
			Cloudcover:               values(h.Cloudcover[:usable]),
			Pressure:                 values(pressure[:usable]),
		},
	}

	for _, f := range ValidateHourly(forecast.Hourly) {
		flags = appendFlag(flags, f)
	}
	return forecast, flags, nil
}

func countValues(vals []*float64) int {
	n := 0
	for _, v := range vals {
		if v != nil {
			n++
		}
	}
	return n
}

func values(vals []*float64) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = *v
	}
	return out
}
