// Package store persists user settings, the last location and cached
// forecasts in SQLite, alongside an audit trail of upstream fetches.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lox/bitecast/internal/models"
)

const (
	ForecastMaxAge = 6 * time.Hour
	LocationMaxAge = 7 * 24 * time.Hour

	DefaultSpecies = "bass"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// SetClock replaces the store's time source.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// DefaultSettings are used until the user saves their own.
func DefaultSettings() models.UserSettings {
	return models.UserSettings{Units: models.UnitsImperial, Species: DefaultSpecies}
}

func (s *Store) GetSettings() (models.UserSettings, error) {
	settings := DefaultSettings()

	var units, species string
	err := s.db.QueryRow(`SELECT units, species FROM settings WHERE id = 1`).Scan(&units, &species)
	if err == sql.ErrNoRows {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("query settings: %w", err)
	}

	settings.Units = models.ParseUnits(units)
	if species != "" {
		settings.Species = species
	}
	return settings, nil
}

func (s *Store) SaveSettings(settings models.UserSettings) error {
	settings.Units = models.ParseUnits(string(settings.Units))
	if settings.Species == "" {
		settings.Species = DefaultSpecies
	}

	_, err := s.db.Exec(`
		INSERT INTO settings (id, units, species, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			units = excluded.units,
			species = excluded.species,
			updated_at = excluded.updated_at
	`, string(settings.Units), settings.Species, s.now().UTC())
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (s *Store) SaveLocation(loc models.LocationInfo) error {
	_, err := s.db.Exec(`
		INSERT INTO locations (id, label, latitude, longitude, source, timezone, saved_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			label = excluded.label,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			source = excluded.source,
			timezone = excluded.timezone,
			saved_at = excluded.saved_at
	`, loc.Label, loc.Latitude, loc.Longitude, string(loc.Source), loc.Timezone, s.now().UTC())
	if err != nil {
		return fmt.Errorf("save location: %w", err)
	}
	return nil
}

// LastLocation returns the most recently saved location, or nil when none was
// saved within LocationMaxAge. Stale rows are removed.
func (s *Store) LastLocation() (*models.LocationInfo, error) {
	var loc models.LocationInfo
	var source string
	var tz sql.NullString
	var savedAt time.Time

	err := s.db.QueryRow(`
		SELECT label, latitude, longitude, source, timezone, saved_at
		FROM locations WHERE id = 1
	`).Scan(&loc.Label, &loc.Latitude, &loc.Longitude, &source, &tz, &savedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query location: %w", err)
	}

	if s.now().Sub(savedAt) > LocationMaxAge {
		if _, err := s.db.Exec(`DELETE FROM locations WHERE id = 1`); err != nil {
			return nil, fmt.Errorf("delete stale location: %w", err)
		}
		return nil, nil
	}

	loc.Source = models.LocationSource(source)
	loc.Timezone = tz.String
	return &loc, nil
}

// LocationKey rounds a coordinate to roughly 100m so nearby requests share a
// cache entry.
func LocationKey(lat, lon float64) string {
	return fmt.Sprintf("%.3f,%.3f", lat, lon)
}

// CachedForecast is a stored weather fetch and the last result scored from it.
type CachedForecast struct {
	Weather models.WeatherForecast
	SavedAt time.Time

	resultJSON string
}

// Result decodes the stored result. It returns nil when the weather was cached
// without one.
func (c *CachedForecast) Result() (*models.ForecastResult, error) {
	if c.resultJSON == "" {
		return nil, nil
	}
	var result models.ForecastResult
	if err := json.Unmarshal([]byte(c.resultJSON), &result); err != nil {
		return nil, fmt.Errorf("decode cached result: %w", err)
	}
	return &result, nil
}

// GetCachedForecast returns the cached forecast for a coordinate, or nil when
// there is none younger than ForecastMaxAge. Stale rows are removed.
func (s *Store) GetCachedForecast(lat, lon float64) (*CachedForecast, error) {
	key := LocationKey(lat, lon)

	var weatherJSON string
	var resultJSON sql.NullString
	var savedAt time.Time
	err := s.db.QueryRow(`
		SELECT weather_json, result_json, saved_at FROM forecast_cache WHERE location_key = ?
	`, key).Scan(&weatherJSON, &resultJSON, &savedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query forecast cache: %w", err)
	}

	if s.now().Sub(savedAt) > ForecastMaxAge {
		if _, err := s.db.Exec(`DELETE FROM forecast_cache WHERE location_key = ?`, key); err != nil {
			return nil, fmt.Errorf("delete stale forecast: %w", err)
		}
		return nil, nil
	}

	cached := &CachedForecast{SavedAt: savedAt, resultJSON: resultJSON.String}
	if err := json.Unmarshal([]byte(weatherJSON), &cached.Weather); err != nil {
		return nil, fmt.Errorf("decode cached weather: %w", err)
	}
	return cached, nil
}

// SaveForecast caches weather and, when non-nil, the result scored from it.
func (s *Store) SaveForecast(lat, lon float64, weather *models.WeatherForecast, result *models.ForecastResult) error {
	weatherJSON, err := json.Marshal(weather)
	if err != nil {
		return fmt.Errorf("encode weather: %w", err)
	}

	var resultJSON sql.NullString
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		resultJSON = sql.NullString{String: string(b), Valid: true}
	}

	_, err = s.db.Exec(`
		INSERT INTO forecast_cache (location_key, weather_json, result_json, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(location_key) DO UPDATE SET
			weather_json = excluded.weather_json,
			result_json = excluded.result_json,
			saved_at = excluded.saved_at
	`, LocationKey(lat, lon), string(weatherJSON), resultJSON, s.now().UTC())
	if err != nil {
		return fmt.Errorf("save forecast: %w", err)
	}
	return nil
}

// PruneForecasts deletes every cached forecast older than ForecastMaxAge.
func (s *Store) PruneForecasts() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM forecast_cache WHERE saved_at < ?`, s.now().Add(-ForecastMaxAge).UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
