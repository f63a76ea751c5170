package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/lox/bitecast/internal/models"
)

// Range is an inclusive numeric band.
type Range struct {
	Min float64
	Max float64
}

func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// HourRange is an inclusive span of local hours. A window whose start is after
// its end wraps past midnight.
type HourRange struct {
	Start int
	End   int
}

func (h HourRange) Contains(hour int) bool {
	if h.Start <= h.End {
		return hour >= h.Start && hour <= h.End
	}
	return hour >= h.Start || hour <= h.End
}

type LowLightPreference string

const (
	LowLightLow      LowLightPreference = "low"
	LowLightModerate LowLightPreference = "moderate"
	LowLightHigh     LowLightPreference = "high"
)

// factor scales the twilight bonus and midday penalty.
func (p LowLightPreference) factor() float64 {
	switch p {
	case LowLightHigh:
		return 1
	case LowLightModerate:
		return 0.5
	default:
		return 0
	}
}

func (p LowLightPreference) valid() bool {
	switch p {
	case LowLightLow, LowLightModerate, LowLightHigh:
		return true
	}
	return false
}

type SpeciesBehavior struct {
	SpawnMonths        []int
	SpawnTempC         Range
	FeedingWindows     []HourRange
	LowLightPreference LowLightPreference
	NightFeedingBoost  bool
}

type SpeciesConfig struct {
	Label          string
	Weights        map[models.FactorKey]float64
	PreferredTempC Range
	MoonInfluence  float64
	Behavior       *SpeciesBehavior
}

type ThresholdConfig struct {
	PressureIdealHpa     float64
	PressureIdealBandHpa float64
	PressureWideBandHpa  float64

	PressureTrendGood       Range
	PressureTrendBadRiseHpa float64
	PressureTrendBadDropHpa float64

	WindGoodKmh         Range
	WindStrongKmh       float64
	WindVeryStrongKmh   float64
	GustPenaltyDeltaKmh float64

	PrecipLightPct    float64
	PrecipModeratePct float64
	PrecipHighPct     float64

	CloudGoodPct Range

	TempStableDeltaC float64
	TempSwingDeltaC  float64
}

// Config is the species table and thresholds used for one scoring call. Treat
// it as read-only once built; DefaultConfig hands out a fresh copy each time.
type Config struct {
	Thresholds ThresholdConfig
	Species    map[string]SpeciesConfig
}

// SpeciesKeys returns the configured species keys in sorted order.
func (c *Config) SpeciesKeys() []string {
	keys := make([]string, 0, len(c.Species))
	for k := range c.Species {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func baseWeights() map[models.FactorKey]float64 {
	return map[models.FactorKey]float64{
		models.FactorPressureTrend:   0.22,
		models.FactorPressureLevel:   0.11,
		models.FactorWind:            0.19,
		models.FactorPrecipitation:   0.15,
		models.FactorCloudCover:      0.08,
		models.FactorTemperature:     0.14,
		models.FactorMoon:            0.04,
		models.FactorSpeciesBehavior: 0.07,
	}
}

func weightsWith(overrides map[models.FactorKey]float64) map[models.FactorKey]float64 {
	w := baseWeights()
	for k, v := range overrides {
		w[k] = v
	}
	return w
}

func DefaultThresholds() ThresholdConfig {
	return ThresholdConfig{
		PressureIdealHpa:        1012,
		PressureIdealBandHpa:    6,
		PressureWideBandHpa:     13,
		PressureTrendGood:       Range{-2.2, 0.8},
		PressureTrendBadRiseHpa: 3.2,
		PressureTrendBadDropHpa: -4,
		WindGoodKmh:             Range{7, 19},
		WindStrongKmh:           31,
		WindVeryStrongKmh:       42,
		GustPenaltyDeltaKmh:     18,
		PrecipLightPct:          22,
		PrecipModeratePct:       45,
		PrecipHighPct:           70,
		CloudGoodPct:            Range{35, 70},
		TempStableDeltaC:        1.6,
		TempSwingDeltaC:         4.8,
	}
}

// DefaultConfig returns the built-in species table.
func DefaultConfig() *Config {
	type w = map[models.FactorKey]float64

	return &Config{
		Thresholds: DefaultThresholds(),
		Species: map[string]SpeciesConfig{
			"bass": {
				Label:          "Largemouth/Smallmouth Bass",
				Weights:        weightsWith(w{models.FactorPressureTrend: 0.25, models.FactorWind: 0.21, models.FactorMoon: 0.05}),
				PreferredTempC: Range{15, 26},
				MoonInfluence:  0.9,
				Behavior: &SpeciesBehavior{
					SpawnMonths:        []int{4, 5, 6},
					SpawnTempC:         Range{15, 21},
					FeedingWindows:     []HourRange{{5, 9}, {17, 21}},
					LowLightPreference: LowLightModerate,
				},
			},
			"whiteBass": {
				Label:          "White Bass",
				Weights:        weightsWith(w{models.FactorWind: 0.22, models.FactorTemperature: 0.14, models.FactorMoon: 0.04}),
				PreferredTempC: Range{14, 24},
				MoonInfluence:  0.8,
				Behavior: &SpeciesBehavior{
					SpawnMonths:        []int{3, 4, 5},
					SpawnTempC:         Range{12, 19},
					FeedingWindows:     []HourRange{{5, 8}, {18, 22}},
					LowLightPreference: LowLightModerate,
				},
			},
			"striper": {
				Label: "Striper (Striped Bass)",
				Weights: weightsWith(w{
					models.FactorPressureLevel: 0.11,
					models.FactorWind:          0.23,
					models.FactorPrecipitation: 0.14,
					models.FactorCloudCover:    0.09,
					models.FactorTemperature:   0.14,
				}),
				PreferredTempC: Range{13, 24},
				MoonInfluence:  0.85,
				Behavior: &SpeciesBehavior{
					SpawnMonths:        []int{4, 5, 6},
					SpawnTempC:         Range{15, 22},
					FeedingWindows:     []HourRange{{4, 8}, {18, 23}},
					LowLightPreference: LowLightHigh,
					NightFeedingBoost:  true,
				},
			},
			"crappie": {
				Label:          "Crappie",
				Weights:        weightsWith(w{models.FactorCloudCover: 0.11, models.FactorTemperature: 0.17, models.FactorMoon: 0.04}),
				PreferredTempC: Range{12, 24},
				MoonInfluence:  0.75,
				Behavior: &SpeciesBehavior{
					SpawnMonths:        []int{4, 5, 6},
					SpawnTempC:         Range{14, 20},
					FeedingWindows:     []HourRange{{6, 10}, {16, 20}},
					LowLightPreference: LowLightModerate,
				},
			},
			"trout": {
				Label: "Trout",
				Weights: weightsWith(w{
					models.FactorTemperature:   0.2,
					models.FactorWind:          0.18,
					models.FactorPrecipitation: 0.15,
					models.FactorMoon:          0.03,
				}),
				PreferredTempC: Range{8, 18},
				MoonInfluence:  0.6,
				Behavior: &SpeciesBehavior{
					SpawnMonths:        []int{9, 10, 11},
					SpawnTempC:         Range{7, 13},
					FeedingWindows:     []HourRange{{6, 9}, {17, 20}},
					LowLightPreference: LowLightModerate,
				},
			},
			"catfish": {
				Label:          "Catfish",
				Weights:        weightsWith(w{models.FactorPrecipitation: 0.18, models.FactorCloudCover: 0.1, models.FactorMoon: 0.07}),
				PreferredTempC: Range{18, 30},
				MoonInfluence:  1,
				Behavior: &SpeciesBehavior{
					SpawnMonths:        []int{5, 6, 7},
					SpawnTempC:         Range{21, 29},
					FeedingWindows:     []HourRange{{20, 23}, {0, 4}},
					LowLightPreference: LowLightHigh,
					NightFeedingBoost:  true,
				},
			},
			"walleye": {
				Label: "Walleye",
				Weights: weightsWith(w{
					models.FactorWind:          0.22,
					models.FactorPressureTrend: 0.23,
					models.FactorCloudCover:    0.1,
					models.FactorTemperature:   0.14,
					models.FactorMoon:          0.06,
				}),
				PreferredTempC: Range{10, 21},
				MoonInfluence:  0.9,
				Behavior: &SpeciesBehavior{
					SpawnMonths:        []int{3, 4, 5},
					SpawnTempC:         Range{6, 13},
					FeedingWindows:     []HourRange{{4, 8}, {17, 22}},
					LowLightPreference: LowLightHigh,
				},
			},
			"bream": {
				Label: "Bream (Bluegill/Sunfish)",
				Weights: weightsWith(w{
					models.FactorTemperature:   0.18,
					models.FactorWind:          0.18,
					models.FactorCloudCover:    0.1,
					models.FactorPrecipitation: 0.15,
					models.FactorMoon:          0.04,
				}),
				PreferredTempC: Range{16, 28},
				MoonInfluence:  0.7,
				Behavior: &SpeciesBehavior{
					SpawnMonths:        []int{5, 6, 7, 8},
					SpawnTempC:         Range{20, 29},
					FeedingWindows:     []HourRange{{6, 10}, {16, 20}},
					LowLightPreference: LowLightLow,
				},
			},
		},
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func validRange(name string, r Range) error {
	if !finite(r.Min) || !finite(r.Max) {
		return fmt.Errorf("%s: non-finite bound", name)
	}
	if r.Min > r.Max {
		return fmt.Errorf("%s: min %v above max %v", name, r.Min, r.Max)
	}
	return nil
}

// Validate checks the table for values the scorers cannot work with.
func (c *Config) Validate() error {
	t := c.Thresholds
	for name, v := range map[string]float64{
		"pressureIdealHpa":         t.PressureIdealHpa,
		"pressureIdealBandHpa":     t.PressureIdealBandHpa,
		"pressureWideBandHpa":      t.PressureWideBandHpa,
		"pressureTrendBadRiseHpa":  t.PressureTrendBadRiseHpa,
		"pressureTrendBadDropHpa":  t.PressureTrendBadDropHpa,
		"windStrongKmh":            t.WindStrongKmh,
		"windVeryStrongKmh":        t.WindVeryStrongKmh,
		"gustPenaltyDeltaKmh":      t.GustPenaltyDeltaKmh,
		"precipitationLightPct":    t.PrecipLightPct,
		"precipitationModeratePct": t.PrecipModeratePct,
		"precipitationHighPct":     t.PrecipHighPct,
		"temperatureStableDeltaC":  t.TempStableDeltaC,
		"temperatureSwingDeltaC":   t.TempSwingDeltaC,
	} {
		if !finite(v) {
			return fmt.Errorf("threshold %s is not finite", name)
		}
	}
	for name, r := range map[string]Range{
		"pressureTrendGoodRange": t.PressureTrendGood,
		"windGoodRangeKmh":       t.WindGoodKmh,
		"cloudGoodRangePct":      t.CloudGoodPct,
	} {
		if err := validRange(name, r); err != nil {
			return fmt.Errorf("threshold %w", err)
		}
	}
	if t.PressureIdealBandHpa > t.PressureWideBandHpa {
		return fmt.Errorf("pressure ideal band %v exceeds wide band %v", t.PressureIdealBandHpa, t.PressureWideBandHpa)
	}
	if !(t.PrecipLightPct <= t.PrecipModeratePct && t.PrecipModeratePct <= t.PrecipHighPct) {
		return fmt.Errorf("precipitation bands must be ascending")
	}

	if len(c.Species) == 0 {
		return fmt.Errorf("no species configured")
	}
	for key, sp := range c.Species {
		if err := sp.validate(); err != nil {
			return fmt.Errorf("species %s: %w", key, err)
		}
	}
	return nil
}

func (sp SpeciesConfig) validate() error {
	if len(sp.Weights) == 0 {
		return fmt.Errorf("no weights")
	}
	for f, w := range sp.Weights {
		if !f.Valid() {
			return fmt.Errorf("unknown factor %v", f)
		}
		if !finite(w) || w < 0 {
			return fmt.Errorf("weight %s = %v", f, w)
		}
	}
	if err := validRange("preferred temperature", sp.PreferredTempC); err != nil {
		return err
	}
	if !finite(sp.MoonInfluence) {
		return fmt.Errorf("moon influence is not finite")
	}

	b := sp.Behavior
	if b == nil {
		return nil
	}
	for _, m := range b.SpawnMonths {
		if m < 1 || m > 12 {
			return fmt.Errorf("spawn month %d out of range", m)
		}
	}
	if err := validRange("spawn temperature", b.SpawnTempC); err != nil {
		return err
	}
	for _, fw := range b.FeedingWindows {
		if fw.Start < 0 || fw.Start > 23 || fw.End < 0 || fw.End > 23 {
			return fmt.Errorf("feeding window %d-%d out of range", fw.Start, fw.End)
		}
	}
	if !b.LowLightPreference.valid() {
		return fmt.Errorf("low light preference %q", b.LowLightPreference)
	}
	return nil
}
