package lunar

import (
	"math"
	"reflect"
	"regexp"
	"testing"
	"time"

	"github.com/lox/bitecast/internal/models"
)

const (
	denverLat = 39.7392
	denverLon = -104.9903
)

func checkWindows(t *testing.T, summary models.SolunarSummary, now time.Time) {
	t.Helper()

	nowEpoch := now.Unix()
	horizonEpoch := nowEpoch + 24*3600

	var majors, minors int
	for i, w := range summary.Windows {
		if w.EndEpoch < nowEpoch {
			t.Errorf("window %d ends before now: %+v", i, w)
		}
		if w.StartEpoch > horizonEpoch {
			t.Errorf("window %d starts after horizon: %+v", i, w)
		}
		if w.StartEpoch > w.PeakEpoch || w.PeakEpoch > w.EndEpoch {
			t.Errorf("window %d not ordered start <= peak <= end: %+v", i, w)
		}
		if i > 0 && summary.Windows[i-1].PeakEpoch > w.PeakEpoch {
			t.Errorf("windows not sorted by peak at %d", i)
		}
		if w.Label == "" {
			t.Errorf("window %d has no label", i)
		}
		switch w.Type {
		case models.SolunarMajor:
			majors++
			if w.EndEpoch-w.StartEpoch != 180*60 {
				t.Errorf("major window span = %ds, want 10800", w.EndEpoch-w.StartEpoch)
			}
		case models.SolunarMinor:
			minors++
			if w.EndEpoch-w.StartEpoch != 90*60 {
				t.Errorf("minor window span = %ds, want 5400", w.EndEpoch-w.StartEpoch)
			}
		default:
			t.Errorf("window %d has unknown type %q", i, w.Type)
		}
	}
	if majors > maxMajor {
		t.Errorf("majors = %d, want <= %d", majors, maxMajor)
	}
	if minors > maxMinor {
		t.Errorf("minors = %d, want <= %d", minors, maxMinor)
	}
}

func TestBuildSolunarSummary_Denver(t *testing.T) {
	now := time.Date(2026, 6, 14, 12, 0, 0, 0, time.UTC)
	summary := BuildSolunarSummary(denverLat, denverLon, "America/Denver", now)

	if len(summary.Windows) == 0 {
		t.Fatal("expected windows")
	}

	var hasMajor, hasMinor bool
	for _, w := range summary.Windows {
		hasMajor = hasMajor || w.Type == models.SolunarMajor
		hasMinor = hasMinor || w.Type == models.SolunarMinor
	}
	if !hasMajor {
		t.Error("expected a major window")
	}
	if !hasMinor {
		t.Error("expected a minor window")
	}

	checkWindows(t, summary, now)
}

func TestBuildSolunarSummary_Note(t *testing.T) {
	summary := BuildSolunarSummary(35.4676, -97.5164, "America/Chicago", time.Date(2026, 9, 1, 3, 0, 0, 0, time.UTC))

	if !regexp.MustCompile(`(?i)modeled moonrise`).MatchString(summary.Note) {
		t.Errorf("Note = %q", summary.Note)
	}
}

func TestBuildSolunarSummary_Invariants(t *testing.T) {
	places := []struct {
		name     string
		lat, lon float64
		tz       string
	}{
		{"denver", denverLat, denverLon, "America/Denver"},
		{"melbourne", -37.81, 144.96, "Australia/Melbourne"},
		{"equator", 0.5, 32.6, "Africa/Kampala"},
		{"tromso", 69.65, 18.96, "Europe/Oslo"},
	}

	start := time.Date(2025, 1, 3, 7, 30, 0, 0, time.UTC)
	for _, p := range places {
		t.Run(p.name, func(t *testing.T) {
			for day := 0; day < 30; day += 3 {
				now := start.AddDate(0, 0, day)
				checkWindows(t, BuildSolunarSummary(p.lat, p.lon, p.tz, now), now)
			}
		})
	}
}

func TestBuildSolunarSummary_DegenerateFallsBack(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	summary := BuildSolunarSummary(math.NaN(), math.NaN(), "UTC", now)

	var majors int
	for _, w := range summary.Windows {
		if w.Type == models.SolunarMajor {
			majors++
		}
	}
	if majors == 0 {
		t.Error("expected phase-based major windows when the ephemeris is degenerate")
	}
	checkWindows(t, summary, now)
}

func TestBuildSolunarSummary_UnknownTimezone(t *testing.T) {
	now := time.Date(2026, 6, 14, 12, 0, 0, 0, time.UTC)
	got := BuildSolunarSummary(denverLat, denverLon, "Nowhere/Special", now)
	want := BuildSolunarSummary(denverLat, denverLon, "UTC", now)

	if !reflect.DeepEqual(got, want) {
		t.Error("unknown timezone should format like UTC")
	}
}

func TestBuildSolunarSummary_Deterministic(t *testing.T) {
	now := time.Date(2026, 6, 14, 12, 0, 0, 0, time.UTC)
	a := BuildSolunarSummary(denverLat, denverLon, "America/Denver", now)
	b := BuildSolunarSummary(denverLat, denverLon, "America/Denver", now)
	if !reflect.DeepEqual(a, b) {
		t.Error("identical inputs produced different summaries")
	}
}

func TestDedupCenters(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	in := []time.Time{
		base.Add(2 * time.Hour),
		base.Add(10 * time.Minute),
		base,
		base.Add(40 * time.Minute),
		base.Add(2*time.Hour + 29*time.Minute),
	}

	got := dedupCenters(in)
	want := []time.Time{base, base.Add(40 * time.Minute), base.Add(2 * time.Hour)}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("dedupCenters = %v, want %v", got, want)
	}
	if !in[0].Equal(base.Add(2 * time.Hour)) {
		t.Error("dedupCenters modified its input")
	}
}

func TestMoonTimes_MidLatitude(t *testing.T) {
	// Over a lunar month at mid-latitudes most days have both events.
	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	var both int
	for i := 0; i < 30; i++ {
		d := day.AddDate(0, 0, i)
		rs := MoonTimes(d, denverLat, denverLon)
		if rs.HasRise {
			if rs.Rise.Before(d) || rs.Rise.After(d.Add(25*time.Hour)) {
				t.Errorf("rise %v outside day %v", rs.Rise, d)
			}
		}
		if rs.HasSet {
			if rs.Set.Before(d) || rs.Set.After(d.Add(25*time.Hour)) {
				t.Errorf("set %v outside day %v", rs.Set, d)
			}
		}
		if rs.HasRise && rs.HasSet {
			both++
		}
	}
	if both < 20 {
		t.Errorf("days with rise and set = %d, want >= 20", both)
	}
}
