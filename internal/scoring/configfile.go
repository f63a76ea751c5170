package scoring

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lox/bitecast/internal/models"
)

// File layout for species table overrides. Everything is optional; values
// that are present replace the matching default.
type fileConfig struct {
	Thresholds *fileThresholds        `yaml:"thresholds"`
	Species    map[string]fileSpecies `yaml:"species"`
}

type fileThresholds struct {
	PressureIdealHpa         *float64  `yaml:"pressureIdealHpa"`
	PressureIdealBandHpa     *float64  `yaml:"pressureIdealBandHpa"`
	PressureWideBandHpa      *float64  `yaml:"pressureWideBandHpa"`
	PressureTrendGoodRange   []float64 `yaml:"pressureTrendGoodRange"`
	PressureTrendBadRiseHpa  *float64  `yaml:"pressureTrendBadRiseHpa"`
	PressureTrendBadDropHpa  *float64  `yaml:"pressureTrendBadDropHpa"`
	WindGoodRangeKmh         []float64 `yaml:"windGoodRangeKmh"`
	WindStrongKmh            *float64  `yaml:"windStrongKmh"`
	WindVeryStrongKmh        *float64  `yaml:"windVeryStrongKmh"`
	GustPenaltyDeltaKmh      *float64  `yaml:"gustPenaltyDeltaKmh"`
	PrecipitationLightPct    *float64  `yaml:"precipitationLightPct"`
	PrecipitationModeratePct *float64  `yaml:"precipitationModeratePct"`
	PrecipitationHighPct     *float64  `yaml:"precipitationHighPct"`
	CloudGoodRangePct        []float64 `yaml:"cloudGoodRangePct"`
	TemperatureStableDeltaC  *float64  `yaml:"temperatureStableDeltaC"`
	TemperatureSwingDeltaC   *float64  `yaml:"temperatureSwingDeltaC"`
}

type fileSpecies struct {
	Label               string             `yaml:"label"`
	Weights             map[string]float64 `yaml:"weights"`
	PreferredTempRangeC []float64          `yaml:"preferredTempRangeC"`
	MoonInfluence       *float64           `yaml:"moonInfluence"`
	Behavior            *fileBehavior      `yaml:"behavior"`
}

type fileBehavior struct {
	SpawnMonths        []int     `yaml:"spawnMonths"`
	SpawnTempRangeC    []float64 `yaml:"spawnTempRangeC"`
	FeedingWindows     [][]int   `yaml:"feedingWindows"`
	LowLightPreference string    `yaml:"lowLightPreference"`
	NightFeedingBoost  *bool     `yaml:"nightFeedingBoost"`
}

// LoadConfigFile reads a YAML override file and merges it over DefaultConfig.
func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open species config %s: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadConfig(f)
	if err != nil {
		return nil, fmt.Errorf("species config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadConfig decodes YAML overrides from r and merges them over DefaultConfig.
// Unknown keys are rejected.
func LoadConfig(r io.Reader) (*Config, error) {
	var fc fileConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode: %w", err)
	}

	cfg := DefaultConfig()
	if fc.Thresholds != nil {
		if err := fc.Thresholds.apply(&cfg.Thresholds); err != nil {
			return nil, err
		}
	}
	for key, fs := range fc.Species {
		sp, ok := cfg.Species[key]
		if !ok {
			sp = SpeciesConfig{Label: key, Weights: baseWeights()}
		}
		if err := fs.apply(&sp); err != nil {
			return nil, fmt.Errorf("species %s: %w", key, err)
		}
		cfg.Species[key] = sp
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setRange(name string, dst *Range, src []float64) error {
	if src == nil {
		return nil
	}
	if len(src) != 2 {
		return fmt.Errorf("%s: want [min, max], got %d values", name, len(src))
	}
	*dst = Range{Min: src[0], Max: src[1]}
	return nil
}

func (ft *fileThresholds) apply(t *ThresholdConfig) error {
	setFloat(&t.PressureIdealHpa, ft.PressureIdealHpa)
	setFloat(&t.PressureIdealBandHpa, ft.PressureIdealBandHpa)
	setFloat(&t.PressureWideBandHpa, ft.PressureWideBandHpa)
	setFloat(&t.PressureTrendBadRiseHpa, ft.PressureTrendBadRiseHpa)
	setFloat(&t.PressureTrendBadDropHpa, ft.PressureTrendBadDropHpa)
	setFloat(&t.WindStrongKmh, ft.WindStrongKmh)
	setFloat(&t.WindVeryStrongKmh, ft.WindVeryStrongKmh)
	setFloat(&t.GustPenaltyDeltaKmh, ft.GustPenaltyDeltaKmh)
	setFloat(&t.PrecipLightPct, ft.PrecipitationLightPct)
	setFloat(&t.PrecipModeratePct, ft.PrecipitationModeratePct)
	setFloat(&t.PrecipHighPct, ft.PrecipitationHighPct)
	setFloat(&t.TempStableDeltaC, ft.TemperatureStableDeltaC)
	setFloat(&t.TempSwingDeltaC, ft.TemperatureSwingDeltaC)

	if err := setRange("pressureTrendGoodRange", &t.PressureTrendGood, ft.PressureTrendGoodRange); err != nil {
		return err
	}
	if err := setRange("windGoodRangeKmh", &t.WindGoodKmh, ft.WindGoodRangeKmh); err != nil {
		return err
	}
	return setRange("cloudGoodRangePct", &t.CloudGoodPct, ft.CloudGoodRangePct)
}

func (fs fileSpecies) apply(sp *SpeciesConfig) error {
	if fs.Label != "" {
		sp.Label = fs.Label
	}
	for name, w := range fs.Weights {
		f, err := models.ParseFactorKey(name)
		if err != nil {
			return err
		}
		sp.Weights[f] = w
	}
	if err := setRange("preferredTempRangeC", &sp.PreferredTempC, fs.PreferredTempRangeC); err != nil {
		return err
	}
	setFloat(&sp.MoonInfluence, fs.MoonInfluence)

	fb := fs.Behavior
	if fb == nil {
		return nil
	}
	b := SpeciesBehavior{LowLightPreference: LowLightModerate}
	if sp.Behavior != nil {
		b = *sp.Behavior
	}
	if fb.SpawnMonths != nil {
		b.SpawnMonths = fb.SpawnMonths
	}
	if err := setRange("spawnTempRangeC", &b.SpawnTempC, fb.SpawnTempRangeC); err != nil {
		return err
	}
	if fb.FeedingWindows != nil {
		windows := make([]HourRange, 0, len(fb.FeedingWindows))
		for _, w := range fb.FeedingWindows {
			if len(w) != 2 {
				return fmt.Errorf("feedingWindows: want [start, end], got %v", w)
			}
			windows = append(windows, HourRange{Start: w[0], End: w[1]})
		}
		b.FeedingWindows = windows
	}
	if fb.LowLightPreference != "" {
		b.LowLightPreference = LowLightPreference(fb.LowLightPreference)
	}
	if fb.NightFeedingBoost != nil {
		b.NightFeedingBoost = *fb.NightFeedingBoost
	}
	sp.Behavior = &b
	return nil
}
