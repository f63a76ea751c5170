// Package format holds small numeric helpers and the display formatting shared
// by the CLI report, the score card and the narrative.
package format

import (
	"fmt"
	"math"
	"time"
	_ "time/tzdata" // zone lookups must not depend on the host

	"github.com/lox/bitecast/internal/models"
)

func Clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// Average returns 0 for an empty slice.
func Average(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func localTime(epoch int64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Unix(epoch, 0).In(loc)
}

// HourIn returns the 0-23 wall-clock hour of epoch in loc.
func HourIn(epoch int64, loc *time.Location) int {
	return localTime(epoch, loc).Hour()
}

// MonthIn returns the 1-12 calendar month of epoch in loc.
func MonthIn(epoch int64, loc *time.Location) int {
	return int(localTime(epoch, loc).Month())
}

// Hour formats epoch as "6 AM".
func Hour(epoch int64, loc *time.Location) string {
	return localTime(epoch, loc).Format("3 PM")
}

// HourRange formats two instants as "6 AM - 9 AM".
func HourRange(start, end int64, loc *time.Location) string {
	return Hour(start, loc) + " - " + Hour(end, loc)
}

// DateTime formats epoch as "Jun 14, 6:05 PM".
func DateTime(epoch int64, loc *time.Location) string {
	return localTime(epoch, loc).Format("Jan 2, 3:04 PM")
}

// DayKey returns the local calendar date as YYYY-MM-DD.
func DayKey(epoch int64, loc *time.Location) string {
	return localTime(epoch, loc).Format("2006-01-02")
}

// DayLabel formats the local date as "Mon, Jun 14".
func DayLabel(epoch int64, loc *time.Location) string {
	return localTime(epoch, loc).Format("Mon, Jan 2")
}

// LoadZone resolves an IANA name, falling back to UTC when it is unknown.
func LoadZone(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func Temperature(tempC float64, units models.UnitSystem) string {
	if units == models.UnitsImperial {
		return fmt.Sprintf("%.0f°F", math.Round(tempC*9/5+32))
	}
	return fmt.Sprintf("%.0f°C", math.Round(tempC))
}

func Wind(speedKmh float64, units models.UnitSystem) string {
	if units == models.UnitsImperial {
		return fmt.Sprintf("%.0f mph", math.Round(speedKmh*0.621371))
	}
	return fmt.Sprintf("%.0f km/h", math.Round(speedKmh))
}

func Pressure(hpa float64, units models.UnitSystem) string {
	if units == models.UnitsImperial {
		return fmt.Sprintf("%.2f inHg", hpa*0.02953)
	}
	return fmt.Sprintf("%.0f hPa", math.Round(hpa))
}
