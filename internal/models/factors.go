package models

import "fmt"

// FactorKey identifies one scoring factor. The set is closed: adding a factor
// means adding a constant here, a label, and a scorer.
type FactorKey int

const (
	FactorPressureTrend FactorKey = iota
	FactorPressureLevel
	FactorWind
	FactorPrecipitation
	FactorCloudCover
	FactorTemperature
	FactorMoon
	FactorSpeciesBehavior
)

// AllFactors lists every factor in canonical order.
var AllFactors = []FactorKey{
	FactorPressureTrend,
	FactorPressureLevel,
	FactorWind,
	FactorPrecipitation,
	FactorCloudCover,
	FactorTemperature,
	FactorMoon,
	FactorSpeciesBehavior,
}

var factorNames = map[FactorKey]string{
	FactorPressureTrend:   "pressureTrend",
	FactorPressureLevel:   "pressureLevel",
	FactorWind:            "wind",
	FactorPrecipitation:   "precipitation",
	FactorCloudCover:      "cloudCover",
	FactorTemperature:     "temperature",
	FactorMoon:            "moon",
	FactorSpeciesBehavior: "speciesBehavior",
}

var factorLabels = map[FactorKey]string{
	FactorPressureTrend:   "Pressure Trend",
	FactorPressureLevel:   "Pressure Level",
	FactorWind:            "Wind",
	FactorPrecipitation:   "Precipitation Risk",
	FactorCloudCover:      "Cloud Cover",
	FactorTemperature:     "Temperature Stability",
	FactorMoon:            "Moon Phase",
	FactorSpeciesBehavior: "Species Behavior",
}

func (f FactorKey) String() string {
	if name, ok := factorNames[f]; ok {
		return name
	}
	return fmt.Sprintf("FactorKey(%d)", int(f))
}

// Label returns the display label for the factor.
func (f FactorKey) Label() string {
	return factorLabels[f]
}

func (f FactorKey) Valid() bool {
	_, ok := factorNames[f]
	return ok
}

func (f FactorKey) MarshalText() ([]byte, error) {
	name, ok := factorNames[f]
	if !ok {
		return nil, fmt.Errorf("unknown factor %d", int(f))
	}
	return []byte(name), nil
}

func (f *FactorKey) UnmarshalText(text []byte) error {
	key, err := ParseFactorKey(string(text))
	if err != nil {
		return err
	}
	*f = key
	return nil
}

// ParseFactorKey resolves a factor by its wire name.
func ParseFactorKey(name string) (FactorKey, error) {
	for key, n := range factorNames {
		if n == name {
			return key, nil
		}
	}
	return 0, fmt.Errorf("unknown factor %q", name)
}
