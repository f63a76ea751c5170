package scoring

import (
	"math"

	"github.com/lox/bitecast/internal/format"
	"github.com/lox/bitecast/internal/models"
)

const maxOutlookDays = 7

type dayAccumulator struct {
	key       string
	label     string
	hours     int
	scoreSum  float64
	peak      float64
	bestEpoch int64
	low       float64
	high      float64
	rainSum   float64
	windSum   float64
}

// DailyOutlook rolls the hourly scores of a result up into local calendar
// days, in order, for at most a week.
func DailyOutlook(result *models.ForecastResult) []models.DayOutlook {
	loc := format.LoadZone(result.Timezone)

	var days []*dayAccumulator
	byKey := make(map[string]*dayAccumulator)

	for _, h := range result.Hourly {
		key := format.DayKey(h.Epoch, loc)
		day, ok := byKey[key]
		if !ok {
			day = &dayAccumulator{
				key:       key,
				label:     format.DayLabel(h.Epoch, loc),
				peak:      math.Inf(-1),
				low:       math.Inf(1),
				high:      math.Inf(-1),
				bestEpoch: h.Epoch,
			}
			byKey[key] = day
			days = append(days, day)
		}

		day.hours++
		day.scoreSum += h.Score
		day.rainSum += h.Inputs.PrecipitationProbability
		day.windSum += h.Inputs.WindSpeedKmh
		if h.Score > day.peak {
			day.peak = h.Score
			day.bestEpoch = h.Epoch
		}
		day.low = math.Min(day.low, h.Inputs.TemperatureC)
		day.high = math.Max(day.high, h.Inputs.TemperatureC)
	}

	if len(days) > maxOutlookDays {
		days = days[:maxOutlookDays]
	}

	out := make([]models.DayOutlook, 0, len(days))
	for _, d := range days {
		n := float64(d.hours)
		avg := int(math.Round(d.scoreSum / n))
		out = append(out, models.DayOutlook{
			DayKey:        d.key,
			DayLabel:      d.label,
			AvgScore:      avg,
			PeakScore:     int(math.Round(d.peak)),
			Rating:        models.RatingFor(float64(avg)),
			BestHourEpoch: d.bestEpoch,
			BestHourLabel: format.Hour(d.bestEpoch, loc),
			LowTempC:      d.low,
			HighTempC:     d.high,
			AvgRainPct:    format.Round(d.rainSum/n, 1),
			AvgWindKmh:    format.Round(d.windSum/n, 1),
			Hours:         d.hours,
		})
	}
	return out
}
