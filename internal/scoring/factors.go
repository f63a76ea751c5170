package scoring

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/lox/bitecast/internal/format"
	"github.com/lox/bitecast/internal/lunar"
	"github.com/lox/bitecast/internal/models"
)

// hourConditions is everything the scorers need for one forecast hour.
type hourConditions struct {
	epoch         int64
	localHour     int
	localMonth    int
	tempC         float64
	tempChange3h  float64
	precipPct     float64
	windKmh       float64
	gustKmh       float64
	cloudPct      float64
	pressureHpa   float64
	pressureTrend float64
}

// normalizedScore dispatches to the scorer for f. Every score is in [-1, 1].
func normalizedScore(f models.FactorKey, c hourConditions, t ThresholdConfig, sp SpeciesConfig) (float64, error) {
	switch f {
	case models.FactorPressureTrend:
		return scorePressureTrend(c.pressureTrend, t), nil
	case models.FactorPressureLevel:
		return scorePressureLevel(c.pressureHpa, t), nil
	case models.FactorWind:
		return scoreWind(c.windKmh, c.gustKmh, t), nil
	case models.FactorPrecipitation:
		return scorePrecip(c.precipPct, t), nil
	case models.FactorCloudCover:
		return scoreCloud(c.cloudPct, c.localHour, t), nil
	case models.FactorTemperature:
		return scoreTemperature(c.tempC, c.tempChange3h, sp.PreferredTempC, t), nil
	case models.FactorMoon:
		return scoreMoon(c.epoch, sp.MoonInfluence), nil
	case models.FactorSpeciesBehavior:
		return scoreSpeciesBehavior(c.localHour, c.localMonth, c.tempC, sp.Behavior), nil
	default:
		return 0, fmt.Errorf("no scorer for factor %v", f)
	}
}

func scorePressureTrend(trendHpa float64, t ThresholdConfig) float64 {
	switch {
	case trendHpa <= t.PressureTrendBadDropHpa:
		return -1
	case trendHpa >= t.PressureTrendBadRiseHpa:
		return -0.95
	case t.PressureTrendGood.Contains(trendHpa):
		return 0.75
	case trendHpa > t.PressureTrendGood.Max:
		return -0.35
	default:
		// below the good band but above the bad drop
		return -0.2
	}
}

func scorePressureLevel(levelHpa float64, t ThresholdConfig) float64 {
	distance := math.Abs(levelHpa - t.PressureIdealHpa)
	switch {
	case distance <= t.PressureIdealBandHpa:
		return 0.45
	case distance <= t.PressureWideBandHpa:
		return 0.12
	case distance <= t.PressureWideBandHpa+6:
		return -0.25
	default:
		return -0.55
	}
}

func scoreWind(speedKmh, gustKmh float64, t ThresholdConfig) float64 {
	var score float64
	switch {
	case speedKmh < 3:
		score = -0.25
	case speedKmh < t.WindGoodKmh.Min:
		score = 0.28
	case speedKmh <= t.WindGoodKmh.Max:
		score = 0.72
	case speedKmh < t.WindStrongKmh:
		score = 0.15
	case speedKmh < t.WindVeryStrongKmh:
		score = -0.58
	default:
		score = -1
	}

	if gustKmh-speedKmh >= t.GustPenaltyDeltaKmh {
		score -= 0.25
	}
	return format.Clamp(score, -1, 1)
}

func scorePrecip(probabilityPct float64, t ThresholdConfig) float64 {
	switch {
	case probabilityPct <= t.PrecipLightPct:
		return 0.2
	case probabilityPct <= t.PrecipModeratePct:
		return 0.08
	case probabilityPct <= t.PrecipHighPct:
		return -0.4
	default:
		return -0.9
	}
}

func isMidday(hour int) bool {
	return hour >= 10 && hour <= 16
}

func scoreCloud(cloudPct float64, localHour int, t ThresholdConfig) float64 {
	multiplier := 0.45
	if isMidday(localHour) {
		multiplier = 1
	}

	var score float64
	switch {
	case t.CloudGoodPct.Contains(cloudPct):
		score = 0.35
	case cloudPct > 85:
		score = -0.2
	default:
		score = 0.05
	}
	return format.Clamp(score*multiplier, -1, 1)
}

func scoreTemperature(tempC, change3h float64, preferred Range, t ThresholdConfig) float64 {
	var score float64
	switch {
	case change3h <= t.TempStableDeltaC:
		score += 0.45
	case change3h <= t.TempSwingDeltaC:
		score += 0.05
	default:
		score -= 0.58
	}

	if preferred.Contains(tempC) {
		score += 0.3
	} else {
		edge := math.Min(math.Abs(tempC-preferred.Min), math.Abs(tempC-preferred.Max))
		if edge <= 3 {
			score -= 0.1
		} else {
			score -= 0.35
		}
	}
	return format.Clamp(score, -1, 1)
}

func scoreMoon(epoch int64, influence float64) float64 {
	moon := lunar.ComputeMoonInfo(time.Unix(epoch, 0))

	var score float64
	switch moon.Name {
	case lunar.FullMoon, lunar.NewMoon:
		score += 0.25
	case lunar.WaxingGibbous, lunar.WaningGibbous:
		score += 0.12
	}
	if moon.Illumination >= 35 && moon.Illumination <= 80 {
		score += 0.1
	}
	return format.Clamp(score*influence, -1, 1)
}

func scoreSpeciesBehavior(localHour, localMonth int, tempC float64, b *SpeciesBehavior) float64 {
	if b == nil {
		return 0
	}

	var score float64

	feeding := false
	for _, w := range b.FeedingWindows {
		if w.Contains(localHour) {
			feeding = true
			break
		}
	}
	if feeding {
		score += 0.45
	} else {
		score -= 0.15
	}

	if len(b.SpawnMonths) > 0 {
		switch {
		case !slices.Contains(b.SpawnMonths, localMonth):
			score -= 0.1
		case b.SpawnTempC.Contains(tempC):
			score += 0.3
		default:
			score += 0.1
		}
	}

	pref := b.LowLightPreference.factor()
	switch {
	case localHour < 5 || localHour >= 21:
		if b.NightFeedingBoost {
			score += 0.3
		} else {
			score -= 0.1 * pref
		}
	case localHour <= 7 || (localHour >= 17 && localHour <= 20):
		score += 0.15 * pref
	case isMidday(localHour):
		score -= 0.25 * pref
	}

	return format.Clamp(score, -1, 1)
}
