package ingest

import (
	"encoding/json"

	"github.com/lox/bitecast/internal/models"
)

const (
	FlagLengthMismatch     = "length_mismatch"
	FlagNullValues         = "null_values"
	FlagPressureFallback   = "pressure_msl_fallback"
	FlagTempOutOfRange     = "temp_out_of_range"
	FlagPercentInvalid     = "percent_invalid"
	FlagWindNegative       = "wind_negative"
	FlagPressureOutOfRange = "pressure_out_of_range"
)

// ValidateHourly checks parsed hourly weather for values outside plausible
// bounds. Values are kept as-is; the flags are recorded with the ingest run.
func ValidateHourly(h models.HourlyWeather) []string {
	var flags []string

	for _, t := range h.Temperature2m {
		if t < -60 || t > 60 {
			flags = appendFlag(flags, FlagTempOutOfRange)
			break
		}
	}

	for _, series := range [][]float64{h.PrecipitationProbability, h.Cloudcover} {
		for _, v := range series {
			if v < 0 || v > 100 {
				flags = appendFlag(flags, FlagPercentInvalid)
				break
			}
		}
	}

	for _, series := range [][]float64{h.Windspeed10m, h.Windgusts10m} {
		for _, v := range series {
			if v < 0 {
				flags = appendFlag(flags, FlagWindNegative)
				break
			}
		}
	}

	for _, p := range h.Pressure {
		if p < 850 || p > 1100 {
			flags = appendFlag(flags, FlagPressureOutOfRange)
			break
		}
	}

	return flags
}

func appendFlag(flags []string, flag string) []string {
	for _, f := range flags {
		if f == flag {
			return flags
		}
	}
	return append(flags, flag)
}

func QualityFlagsToJSON(flags []string) string {
	if len(flags) == 0 {
		return ""
	}
	b, _ := json.Marshal(flags)
	return string(b)
}
