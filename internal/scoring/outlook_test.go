package scoring

import (
	"testing"

	"github.com/lox/bitecast/internal/models"
)

func TestDailyOutlook(t *testing.T) {
	result := buildScore(t, syntheticForecast(fixtureStart, 48, stableHour), "bass", fixtureNow)
	days := DailyOutlook(result)

	if len(days) != 3 {
		t.Fatalf("len(days) = %d, want 3", len(days))
	}

	wantKeys := []string{"2024-05-15", "2024-05-16", "2024-05-17"}
	wantHours := []int{18, 24, 6}
	for i, d := range days {
		if d.DayKey != wantKeys[i] {
			t.Errorf("day %d key = %q, want %q", i, d.DayKey, wantKeys[i])
		}
		if d.Hours != wantHours[i] {
			t.Errorf("day %d hours = %d, want %d", i, d.Hours, wantHours[i])
		}
		if d.PeakScore < d.AvgScore {
			t.Errorf("day %d peak %d below average %d", i, d.PeakScore, d.AvgScore)
		}
		if d.Rating != models.RatingFor(float64(d.AvgScore)) {
			t.Errorf("day %d rating = %s for average %d", i, d.Rating, d.AvgScore)
		}
		if d.LowTempC != 19 || d.HighTempC != 19 {
			t.Errorf("day %d temps = %v-%v, want 19-19", i, d.LowTempC, d.HighTempC)
		}
		if d.AvgRainPct != 20 || d.AvgWindKmh != 12 {
			t.Errorf("day %d rain/wind = %v/%v, want 20/12", i, d.AvgRainPct, d.AvgWindKmh)
		}
		if d.BestHourLabel == "" {
			t.Errorf("day %d has no best hour label", i)
		}
	}
	if days[0].DayLabel != "Wed, May 15" {
		t.Errorf("DayLabel = %q, want Wed, May 15", days[0].DayLabel)
	}
}

func TestDailyOutlook_BestHourIsFirstPeak(t *testing.T) {
	result := &models.ForecastResult{
		Timezone: "UTC",
		Hourly: []models.HourlyScorePoint{
			{Epoch: fixtureStart, Score: 40},
			{Epoch: fixtureStart + 3600, Score: 72.4},
			{Epoch: fixtureStart + 7200, Score: 72.4},
			{Epoch: fixtureStart + 10800, Score: 10},
		},
	}

	days := DailyOutlook(result)
	if len(days) != 1 {
		t.Fatalf("len(days) = %d, want 1", len(days))
	}
	d := days[0]
	if d.BestHourEpoch != fixtureStart+3600 {
		t.Errorf("BestHourEpoch = %d, want first peak", d.BestHourEpoch)
	}
	if d.BestHourLabel != "1 PM" {
		t.Errorf("BestHourLabel = %q, want 1 PM", d.BestHourLabel)
	}
	if d.PeakScore != 72 {
		t.Errorf("PeakScore = %d, want 72", d.PeakScore)
	}
	if d.AvgScore != 49 {
		t.Errorf("AvgScore = %d, want 49", d.AvgScore)
	}
}

func TestDailyOutlook_Empty(t *testing.T) {
	if days := DailyOutlook(&models.ForecastResult{Timezone: "UTC"}); len(days) != 0 {
		t.Errorf("len(days) = %d, want 0", len(days))
	}
}
