package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/lox/bitecast/internal/format"
	"github.com/lox/bitecast/internal/models"
)

const (
	maxBestWindows = 3
	minWindowGap   = 3
)

// bestWindows picks up to three local score peaks in the first 24 hours, at
// least three hours apart, and returns them in time order.
func bestWindows(hourly []models.HourlyScorePoint, loc *time.Location) []models.BestWindow {
	next24 := hourly[:min(summaryHours, len(hourly))]
	if len(next24) == 0 {
		return []models.BestWindow{}
	}

	score := func(i int) float64 {
		if i < 0 || i >= len(next24) {
			return math.Inf(-1)
		}
		return next24[i].Score
	}

	var candidates []int
	for i := range next24 {
		if score(i) >= score(i-1) && score(i) >= score(i+1) {
			candidates = append(candidates, i)
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return next24[candidates[a]].Score > next24[candidates[b]].Score
	})

	var selected []int
	for _, idx := range candidates {
		spaced := true
		for _, s := range selected {
			if abs(s-idx) < minWindowGap {
				spaced = false
				break
			}
		}
		if spaced {
			selected = append(selected, idx)
		}
		if len(selected) >= maxBestWindows {
			break
		}
	}
	sort.Ints(selected)

	windows := make([]models.BestWindow, 0, len(selected))
	for _, idx := range selected {
		startIdx := max(0, idx-1)
		endIdx := min(len(next24)-1, idx+2)

		segment := make([]float64, 0, endIdx-startIdx+1)
		for _, h := range next24[startIdx : endIdx+1] {
			segment = append(segment, h.Score)
		}

		start := next24[startIdx].Epoch
		end := next24[endIdx].Epoch
		windows = append(windows, models.BestWindow{
			StartEpoch: start,
			EndEpoch:   end,
			PeakEpoch:  next24[idx].Epoch,
			AvgScore:   int(math.Round(format.Average(segment))),
			PeakScore:  int(math.Round(next24[idx].Score)),
			Label:      format.HourRange(start, end, loc),
		})
	}
	return windows
}

// factorBreakdown averages each weighted factor's points over the hours and
// orders the factors by absolute impact.
func factorBreakdown(hours []models.HourlyScorePoint, weights map[models.FactorKey]float64) []models.FactorContribution {
	breakdown := make([]models.FactorContribution, 0, len(weights))
	for _, f := range models.AllFactors {
		weight, ok := weights[f]
		if !ok {
			continue
		}

		vals := make([]float64, len(hours))
		for i, h := range hours {
			vals[i] = h.Contributions[f]
		}
		points := format.Average(vals)

		var normalized float64
		if weight > 0 {
			normalized = points / (weight * pointsScale)
		}

		breakdown = append(breakdown, models.FactorContribution{
			Factor:     f,
			Label:      f.Label(),
			Points:     format.Round(points, 2),
			Normalized: format.Round(normalized, 3),
			Weight:     weight,
			Insight:    insightFor(f, points),
		})
	}

	sort.SliceStable(breakdown, func(i, j int) bool {
		return math.Abs(breakdown[i].Points) > math.Abs(breakdown[j].Points)
	})
	return breakdown
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
