// Package lunar computes moon phase information and solunar activity windows.
package lunar

import (
	"errors"
	"math"
	"time"

	"github.com/lox/bitecast/internal/models"
)

// SynodicMonth is the mean length of a lunation in days.
const SynodicMonth = 29.53058867

// Phase names, in cycle order.
const (
	NewMoon        = "New Moon"
	WaxingCrescent = "Waxing Crescent"
	FirstQuarter   = "First Quarter"
	WaxingGibbous  = "Waxing Gibbous"
	FullMoon       = "Full Moon"
	WaningGibbous  = "Waning Gibbous"
	LastQuarter    = "Last Quarter"
	WaningCrescent = "Waning Crescent"
)

// ErrNonFinite is returned for NaN or infinite instants.
var ErrNonFinite = errors.New("non-finite instant")

// Reference new moon: January 6, 2000 18:14 UTC
var referenceNewMoon = time.Date(2000, 1, 6, 18, 14, 0, 0, time.UTC)

// ComputeMoonInfo returns the phase, age and illumination of the moon at t.
func ComputeMoonInfo(t time.Time) models.MoonInfo {
	days := (unixSeconds(t) - float64(referenceNewMoon.Unix())) / 86400
	return moonInfoForDays(days)
}

// unixSeconds is t as fractional unix seconds. Unlike Sub and UnixNano it
// does not saturate for instants centuries away from 1970.
func unixSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// ComputeMoonInfoUnix is ComputeMoonInfo for fractional unix seconds.
func ComputeMoonInfoUnix(epoch float64) (models.MoonInfo, error) {
	if math.IsNaN(epoch) || math.IsInf(epoch, 0) {
		return models.MoonInfo{}, ErrNonFinite
	}
	days := (epoch - float64(referenceNewMoon.Unix())) / 86400
	return moonInfoForDays(days), nil
}

func moonInfoForDays(days float64) models.MoonInfo {
	phase := math.Mod(days/SynodicMonth, 1)
	if phase < 0 {
		phase++
	}
	if phase >= 1 {
		phase = 0
	}

	return models.MoonInfo{
		Phase:        phase,
		AgeDays:      phase * SynodicMonth,
		Illumination: (1 - math.Cos(2*math.Pi*phase)) / 2 * 100,
		Name:         phaseName(phase),
	}
}

func phaseName(phase float64) string {
	switch {
	case phase < 0.03 || phase >= 0.97:
		return NewMoon
	case phase < 0.22:
		return WaxingCrescent
	case phase < 0.28:
		return FirstQuarter
	case phase < 0.47:
		return WaxingGibbous
	case phase < 0.53:
		return FullMoon
	case phase < 0.72:
		return WaningGibbous
	case phase < 0.78:
		return LastQuarter
	default:
		return WaningCrescent
	}
}
