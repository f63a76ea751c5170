package models

import "time"

type UnitSystem string

const (
	UnitsImperial UnitSystem = "imperial"
	UnitsMetric   UnitSystem = "metric"
)

// ParseUnits returns metric for "metric" and imperial for anything else.
func ParseUnits(s string) UnitSystem {
	if UnitSystem(s) == UnitsMetric {
		return UnitsMetric
	}
	return UnitsImperial
}

type LocationSource string

const (
	SourceGeolocation LocationSource = "geolocation"
	SourceManual      LocationSource = "manual"
)

type UserSettings struct {
	Units   UnitSystem `json:"units"`
	Species string     `json:"species"`
}

type LocationInfo struct {
	Label     string         `json:"label"`
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	Source    LocationSource `json:"source"`
	Timezone  string         `json:"timezone,omitempty"`
}

type GeocodeResult struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Admin1    string  `json:"admin1,omitempty"`
	Country   string  `json:"country,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone,omitempty"`
}

// HourlyWeather holds parallel per-hour arrays sharing one index space.
type HourlyWeather struct {
	Time                     []int64   `json:"time"`
	Temperature2m            []float64 `json:"temperature2m"`
	PrecipitationProbability []float64 `json:"precipitationProbability"`
	Windspeed10m             []float64 `json:"windspeed10m"`
	Windgusts10m             []float64 `json:"windgusts10m"`
	Cloudcover               []float64 `json:"cloudcover"`
	Pressure                 []float64 `json:"pressure"`
}

type WeatherForecast struct {
	Latitude  float64       `json:"latitude"`
	Longitude float64       `json:"longitude"`
	Timezone  string        `json:"timezone"`
	FetchedAt time.Time     `json:"fetchedAt"`
	Hourly    HourlyWeather `json:"hourly"`
}

type HourlyInputs struct {
	TemperatureC             float64 `json:"temperatureC"`
	PrecipitationProbability float64 `json:"precipitationProbability"`
	WindSpeedKmh             float64 `json:"windSpeedKmh"`
	WindGustKmh              float64 `json:"windGustKmh"`
	CloudCover               float64 `json:"cloudCover"`
	PressureHpa              float64 `json:"pressureHpa"`
}

type HourlyScorePoint struct {
	Epoch         int64                 `json:"epoch"`
	Score         float64               `json:"score"`
	Inputs        HourlyInputs          `json:"inputs"`
	Contributions map[FactorKey]float64 `json:"contributions"`
}

type FactorContribution struct {
	Factor     FactorKey `json:"factor"`
	Label      string    `json:"label"`
	Points     float64   `json:"points"`
	Normalized float64   `json:"normalized"`
	Weight     float64   `json:"weight"`
	Insight    string    `json:"insight"`
}

type BestWindow struct {
	StartEpoch int64  `json:"startEpoch"`
	EndEpoch   int64  `json:"endEpoch"`
	PeakEpoch  int64  `json:"peakEpoch"`
	AvgScore   int    `json:"avgScore"`
	PeakScore  int    `json:"peakScore"`
	Label      string `json:"label"`
}

type RatingLabel string

const (
	RatingPoor  RatingLabel = "Poor"
	RatingFair  RatingLabel = "Fair"
	RatingGood  RatingLabel = "Good"
	RatingGreat RatingLabel = "Great"
	RatingEpic  RatingLabel = "Epic"
)

// RatingFor maps a 0-100 score onto its rating band.
func RatingFor(score float64) RatingLabel {
	switch {
	case score < 30:
		return RatingPoor
	case score < 50:
		return RatingFair
	case score < 70:
		return RatingGood
	case score < 85:
		return RatingGreat
	default:
		return RatingEpic
	}
}

type MoonInfo struct {
	Phase        float64 `json:"phase"`
	AgeDays      float64 `json:"ageDays"`
	Illumination float64 `json:"illumination"`
	Name         string  `json:"name"`
}

type SolunarWindowType string

const (
	SolunarMajor SolunarWindowType = "major"
	SolunarMinor SolunarWindowType = "minor"
)

type SolunarWindow struct {
	Type       SolunarWindowType `json:"type"`
	StartEpoch int64             `json:"startEpoch"`
	EndEpoch   int64             `json:"endEpoch"`
	PeakEpoch  int64             `json:"peakEpoch"`
	Label      string            `json:"label"`
}

type SolunarSummary struct {
	Windows []SolunarWindow `json:"windows"`
	Note    string          `json:"note"`
}

type ForecastSummary struct {
	TotalScore     int          `json:"totalScore"`
	Rating         RatingLabel  `json:"rating"`
	Why            []string     `json:"why"`
	BestWindows    []BestWindow `json:"bestWindows"`
	LastUpdatedISO string       `json:"lastUpdatedIso"`
}

type ForecastResult struct {
	Location        LocationInfo         `json:"location"`
	Units           UnitSystem           `json:"units"`
	Species         string               `json:"species"`
	Timezone        string               `json:"timezone"`
	FetchedAt       time.Time            `json:"fetchedAt"`
	Moon            MoonInfo             `json:"moon"`
	Solunar         SolunarSummary       `json:"solunar"`
	FactorBreakdown []FactorContribution `json:"factorBreakdown"`
	Summary         ForecastSummary      `json:"summary"`
	Hourly          []HourlyScorePoint   `json:"hourly"`
	Raw             WeatherForecast      `json:"raw"`
}

// DayOutlook is one local calendar day rolled up from hourly scores.
type DayOutlook struct {
	DayKey        string      `json:"dayKey"`
	DayLabel      string      `json:"dayLabel"`
	AvgScore      int         `json:"avgScore"`
	PeakScore     int         `json:"peakScore"`
	Rating        RatingLabel `json:"rating"`
	BestHourEpoch int64       `json:"bestHourEpoch"`
	BestHourLabel string      `json:"bestHourLabel"`
	LowTempC      float64     `json:"lowTempC"`
	HighTempC     float64     `json:"highTempC"`
	AvgRainPct    float64     `json:"avgRainPct"`
	AvgWindKmh    float64     `json:"avgWindKmh"`
	Hours         int         `json:"hours"`
}
