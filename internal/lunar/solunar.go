package lunar

import (
	"sort"
	"time"

	"github.com/lox/bitecast/internal/format"
	"github.com/lox/bitecast/internal/models"
)

const (
	// LunarHalfDay is half the mean lunar day; underfoot follows overhead by this much.
	LunarHalfDay = time.Duration(12.4206 * float64(time.Hour))

	dedupTolerance = 30 * time.Minute
	majorHalfSpan  = 90 * time.Minute
	minorHalfSpan  = 45 * time.Minute
	horizon        = 24 * time.Hour

	maxMajor = 3
	maxMinor = 4
)

// SolunarNote accompanies every summary.
const SolunarNote = "Solunar windows are estimated from modeled moonrise, moonset, overhead, and underfoot periods."

// BuildSolunarSummary returns the major (moon overhead/underfoot) and minor
// (moonrise/moonset) windows overlapping the 24 hours after now. timezone is
// only used for labels; an unknown zone formats in UTC.
func BuildSolunarSummary(lat, lon float64, timezone string, now time.Time) models.SolunarSummary {
	loc := format.LoadZone(timezone)
	rangeStart := now
	rangeEnd := now.Add(horizon)

	u := now.UTC()
	dayAnchor := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)

	var majorCenters, minorCenters []time.Time

	for offset := -1; offset <= 2; offset++ {
		times := MoonTimes(dayAnchor.AddDate(0, 0, offset), lat, lon)

		if times.HasRise {
			minorCenters = append(minorCenters, times.Rise)
		}
		if times.HasSet {
			minorCenters = append(minorCenters, times.Set)
		}

		if times.HasRise && times.HasSet {
			set := times.Set
			if set.Before(times.Rise) {
				set = set.Add(24 * time.Hour)
			}
			overhead := times.Rise.Add(set.Sub(times.Rise) / 2)
			majorCenters = append(majorCenters, overhead, overhead.Add(LunarHalfDay))
		}
	}

	if len(majorCenters) == 0 {
		// Ephemeris produced no rise/set pair; place the transit from the phase.
		phase := ComputeMoonInfo(now).Phase
		anchor := dayAnchor.Add(time.Duration(phase * 2 * float64(LunarHalfDay)))
		majorCenters = append(majorCenters, anchor, anchor.Add(LunarHalfDay))
	}

	expanded := make([]time.Time, 0, len(majorCenters)*3)
	for _, c := range majorCenters {
		expanded = append(expanded, c.Add(-LunarHalfDay), c, c.Add(LunarHalfDay))
	}

	major := dedupCenters(expanded)
	minor := dedupCenters(minorCenters)

	if len(minor) == 0 && len(major) > 0 {
		minor = append(minor, major[0].Add(-LunarHalfDay/2), major[0].Add(LunarHalfDay/2))
	}

	majorWindows := buildWindows(models.SolunarMajor, major, majorHalfSpan, rangeStart, rangeEnd, loc, maxMajor)
	minorWindows := buildWindows(models.SolunarMinor, minor, minorHalfSpan, rangeStart, rangeEnd, loc, maxMinor)

	windows := make([]models.SolunarWindow, 0, len(majorWindows)+len(minorWindows))
	windows = append(windows, majorWindows...)
	windows = append(windows, minorWindows...)
	sort.SliceStable(windows, func(i, j int) bool {
		return windows[i].PeakEpoch < windows[j].PeakEpoch
	})

	return models.SolunarSummary{
		Windows: windows,
		Note:    SolunarNote,
	}
}

// dedupCenters sorts centers and drops any within the tolerance of the
// previously kept one.
func dedupCenters(centers []time.Time) []time.Time {
	sorted := make([]time.Time, len(centers))
	copy(sorted, centers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var unique []time.Time
	for _, c := range sorted {
		if len(unique) > 0 && c.Sub(unique[len(unique)-1]) < dedupTolerance {
			continue
		}
		unique = append(unique, c)
	}
	return unique
}

func buildWindows(
	kind models.SolunarWindowType,
	centers []time.Time,
	halfSpan time.Duration,
	rangeStart, rangeEnd time.Time,
	loc *time.Location,
	limit int,
) []models.SolunarWindow {
	var windows []models.SolunarWindow
	for _, peak := range centers {
		start := peak.Add(-halfSpan)
		end := peak.Add(halfSpan)
		if start.After(rangeEnd) || end.Before(rangeStart) {
			continue
		}
		p := peak.Round(time.Second).Unix()
		half := int64(halfSpan / time.Second)
		windows = append(windows, models.SolunarWindow{
			Type:       kind,
			StartEpoch: p - half,
			EndEpoch:   p + half,
			PeakEpoch:  p,
			Label:      format.HourRange(p-half, p+half, loc),
		})
	}

	sort.SliceStable(windows, func(i, j int) bool {
		return windows[i].PeakEpoch < windows[j].PeakEpoch
	})
	if len(windows) > limit {
		windows = windows[:limit]
	}
	return windows
}
