package store

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lox/bitecast/internal/models"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func setupTestStore(t *testing.T) (*Store, *testClock) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	clock := &testClock{now: time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)}
	store := New(db)
	store.SetClock(clock.Now)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store, clock
}

func TestGetSettings_Defaults(t *testing.T) {
	store, _ := setupTestStore(t)

	settings, err := store.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if settings.Units != models.UnitsImperial {
		t.Errorf("Units = %q, want imperial", settings.Units)
	}
	if settings.Species != "bass" {
		t.Errorf("Species = %q, want bass", settings.Species)
	}
}

func TestSaveSettings(t *testing.T) {
	tests := []struct {
		name string
		in   models.UserSettings
		want models.UserSettings
	}{
		{"metric trout", models.UserSettings{Units: models.UnitsMetric, Species: "trout"}, models.UserSettings{Units: models.UnitsMetric, Species: "trout"}},
		{"unknown units coerce", models.UserSettings{Units: "furlongs", Species: "walleye"}, models.UserSettings{Units: models.UnitsImperial, Species: "walleye"}},
		{"empty species defaults", models.UserSettings{Units: models.UnitsMetric}, models.UserSettings{Units: models.UnitsMetric, Species: "bass"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := setupTestStore(t)
			if err := store.SaveSettings(tt.in); err != nil {
				t.Fatalf("SaveSettings: %v", err)
			}
			got, err := store.GetSettings()
			if err != nil {
				t.Fatalf("GetSettings: %v", err)
			}
			if got != tt.want {
				t.Errorf("GetSettings = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSaveSettings_Overwrites(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.SaveSettings(models.UserSettings{Units: models.UnitsMetric, Species: "trout"}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveSettings(models.UserSettings{Units: models.UnitsImperial, Species: "catfish"}); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetSettings()
	if err != nil {
		t.Fatal(err)
	}
	if got.Species != "catfish" || got.Units != models.UnitsImperial {
		t.Errorf("GetSettings = %+v", got)
	}
}

func TestLastLocation(t *testing.T) {
	store, clock := setupTestStore(t)

	loc, err := store.LastLocation()
	if err != nil {
		t.Fatalf("LastLocation: %v", err)
	}
	if loc != nil {
		t.Fatalf("expected no location, got %+v", loc)
	}

	saved := models.LocationInfo{
		Label:     "Denver, Colorado",
		Latitude:  39.7392,
		Longitude: -104.9903,
		Source:    models.SourceManual,
		Timezone:  "America/Denver",
	}
	if err := store.SaveLocation(saved); err != nil {
		t.Fatalf("SaveLocation: %v", err)
	}

	clock.now = clock.now.Add(6 * 24 * time.Hour)
	loc, err = store.LastLocation()
	if err != nil {
		t.Fatalf("LastLocation: %v", err)
	}
	if loc == nil {
		t.Fatal("expected saved location")
	}
	if *loc != saved {
		t.Errorf("LastLocation = %+v, want %+v", *loc, saved)
	}

	clock.now = clock.now.Add(2 * 24 * time.Hour)
	loc, err = store.LastLocation()
	if err != nil {
		t.Fatalf("LastLocation: %v", err)
	}
	if loc != nil {
		t.Errorf("location older than 7 days should be dropped, got %+v", loc)
	}

	var count int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM locations`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("stale location row not deleted, count = %d", count)
	}
}

func testWeather() *models.WeatherForecast {
	return &models.WeatherForecast{
		Latitude:  39.74,
		Longitude: -104.99,
		Timezone:  "America/Denver",
		FetchedAt: time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC),
		Hourly: models.HourlyWeather{
			Time:                     []int64{1715774400, 1715778000},
			Temperature2m:            []float64{18, 19},
			PrecipitationProbability: []float64{10, 20},
			Windspeed10m:             []float64{8, 12},
			Windgusts10m:             []float64{14, 18},
			Cloudcover:               []float64{40, 55},
			Pressure:                 []float64{1014, 1013.6},
		},
	}
}

func TestForecastCache(t *testing.T) {
	store, clock := setupTestStore(t)

	cached, err := store.GetCachedForecast(39.7392, -104.9903)
	if err != nil {
		t.Fatalf("GetCachedForecast: %v", err)
	}
	if cached != nil {
		t.Fatal("expected empty cache")
	}

	weather := testWeather()
	result := &models.ForecastResult{
		Species: "bass",
		Summary: models.ForecastSummary{TotalScore: 64, Rating: models.RatingGood},
	}
	if err := store.SaveForecast(39.7392, -104.9903, weather, result); err != nil {
		t.Fatalf("SaveForecast: %v", err)
	}

	clock.now = clock.now.Add(5 * time.Hour)
	// Rounds to the same three-decimal key.
	cached, err = store.GetCachedForecast(39.7394, -104.9901)
	if err != nil {
		t.Fatalf("GetCachedForecast: %v", err)
	}
	if cached == nil {
		t.Fatal("expected cache hit")
	}
	if cached.Weather.Timezone != "America/Denver" || len(cached.Weather.Hourly.Pressure) != 2 {
		t.Errorf("cached weather = %+v", cached.Weather)
	}
	if !cached.Weather.FetchedAt.Equal(weather.FetchedAt) {
		t.Errorf("FetchedAt = %v, want %v", cached.Weather.FetchedAt, weather.FetchedAt)
	}
	cachedResult, err := cached.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if cachedResult == nil || cachedResult.Summary.TotalScore != 64 {
		t.Errorf("cached result = %+v", cachedResult)
	}

	clock.now = clock.now.Add(2 * time.Hour)
	cached, err = store.GetCachedForecast(39.7392, -104.9903)
	if err != nil {
		t.Fatalf("GetCachedForecast: %v", err)
	}
	if cached != nil {
		t.Error("forecast older than 6 hours should be dropped")
	}
}

func TestForecastCache_WeatherOnly(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.SaveForecast(1, 2, testWeather(), nil); err != nil {
		t.Fatalf("SaveForecast: %v", err)
	}
	cached, err := store.GetCachedForecast(1, 2)
	if err != nil {
		t.Fatalf("GetCachedForecast: %v", err)
	}
	if cached == nil {
		t.Fatal("expected cache hit")
	}
	if result, err := cached.Result(); err != nil || result != nil {
		t.Errorf("expected weather without a result, got %+v, %v", result, err)
	}
}

func TestForecastCache_CorruptResult(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.SaveForecast(1, 2, testWeather(), &models.ForecastResult{Species: "bass"}); err != nil {
		t.Fatalf("SaveForecast: %v", err)
	}
	if _, err := store.db.Exec(`UPDATE forecast_cache SET result_json = '{"summary":' WHERE location_key = ?`, LocationKey(1, 2)); err != nil {
		t.Fatal(err)
	}

	cached, err := store.GetCachedForecast(1, 2)
	if err != nil {
		t.Fatalf("GetCachedForecast: %v", err)
	}
	if cached == nil || cached.Weather.Timezone != "America/Denver" {
		t.Fatalf("expected cached weather despite a bad result, got %+v", cached)
	}
	if _, err := cached.Result(); err == nil {
		t.Error("expected decode error for corrupt result")
	}
}

func TestPruneForecasts(t *testing.T) {
	store, clock := setupTestStore(t)

	if err := store.SaveForecast(1, 1, testWeather(), nil); err != nil {
		t.Fatal(err)
	}
	clock.now = clock.now.Add(4 * time.Hour)
	if err := store.SaveForecast(2, 2, testWeather(), nil); err != nil {
		t.Fatal(err)
	}
	clock.now = clock.now.Add(3 * time.Hour)

	n, err := store.PruneForecasts()
	if err != nil {
		t.Fatalf("PruneForecasts: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d rows, want 1", n)
	}
}

func TestLocationKey(t *testing.T) {
	tests := []struct {
		lat, lon float64
		want     string
	}{
		{39.7392, -104.9903, "39.739,-104.990"},
		{0, 0, "0.000,0.000"},
		{-36.7945, 146.9772, "-36.795,146.977"},
	}
	for _, tt := range tests {
		if got := LocationKey(tt.lat, tt.lon); got != tt.want {
			t.Errorf("LocationKey(%v, %v) = %q, want %q", tt.lat, tt.lon, got, tt.want)
		}
	}
}

func TestIngestRun_StartAndComplete(t *testing.T) {
	store, _ := setupTestStore(t)

	locationID := LocationKey(39.7392, -104.9903)
	run, err := store.StartIngestRun("open-meteo", "forecast", &locationID)
	if err != nil {
		t.Fatalf("StartIngestRun: %v", err)
	}
	if run.ID == 0 {
		t.Error("run.ID should be set")
	}
	if run.Source != "open-meteo" {
		t.Errorf("run.Source = %q, want 'open-meteo'", run.Source)
	}

	run.HTTPStatus = sql.NullInt64{Int64: 200, Valid: true}
	run.ResponseSizeBytes = sql.NullInt64{Int64: 1024, Valid: true}
	run.Attempts = sql.NullInt64{Int64: 2, Valid: true}
	run.RecordsParsed = sql.NullInt64{Int64: 72, Valid: true}
	run.QualityFlags = sql.NullString{String: `["pressure_msl_fallback"]`, Valid: true}
	run.Success = true

	if err := store.CompleteIngestRun(run); err != nil {
		t.Fatalf("CompleteIngestRun: %v", err)
	}

	health, err := store.GetIngestHealth(1)
	if err != nil {
		t.Fatalf("GetIngestHealth: %v", err)
	}
	if len(health) != 1 {
		t.Fatalf("len(health) = %d, want 1", len(health))
	}
	h := health[0]
	if h.Source != "open-meteo" || h.Endpoint != "forecast" {
		t.Errorf("summary for %s/%s", h.Source, h.Endpoint)
	}
	if h.SuccessRuns != 1 || h.TotalRecords != 72 || h.FlaggedRuns != 1 {
		t.Errorf("summary = %+v", h)
	}
}

func TestIngestRun_GetRecentErrors(t *testing.T) {
	store, _ := setupTestStore(t)

	run, err := store.StartIngestRun("open-meteo", "geocode", nil)
	if err != nil {
		t.Fatal(err)
	}

	run.HTTPStatus = sql.NullInt64{Int64: 500, Valid: true}
	run.Success = false
	run.ErrorMessage = sql.NullString{String: "server error", Valid: true}
	if err := store.CompleteIngestRun(run); err != nil {
		t.Fatal(err)
	}

	errs, err := store.GetRecentIngestErrors(10)
	if err != nil {
		t.Fatalf("GetRecentIngestErrors: %v", err)
	}
	if len(errs) != 1 {
		t.Fatalf("len(errs) = %d, want 1", len(errs))
	}
	if errs[0].ErrorMessage.String != "server error" {
		t.Errorf("ErrorMessage = %q, want 'server error'", errs[0].ErrorMessage.String)
	}
	if errs[0].LocationID.Valid {
		t.Errorf("LocationID should be NULL, got %q", errs[0].LocationID.String)
	}
}

func TestIngestHealth_Aggregation(t *testing.T) {
	store, _ := setupTestStore(t)

	successRun, err := store.StartIngestRun("open-meteo", "forecast", nil)
	if err != nil {
		t.Fatal(err)
	}
	successRun.HTTPStatus = sql.NullInt64{Int64: 200, Valid: true}
	successRun.RecordsParsed = sql.NullInt64{Int64: 72, Valid: true}
	successRun.Success = true
	if err := store.CompleteIngestRun(successRun); err != nil {
		t.Fatal(err)
	}

	failedRun, err := store.StartIngestRun("open-meteo", "forecast", nil)
	if err != nil {
		t.Fatal(err)
	}
	failedRun.HTTPStatus = sql.NullInt64{Int64: 503, Valid: true}
	failedRun.ErrorMessage = sql.NullString{String: "unavailable", Valid: true}
	if err := store.CompleteIngestRun(failedRun); err != nil {
		t.Fatal(err)
	}

	health, err := store.GetIngestHealth(1)
	if err != nil {
		t.Fatalf("GetIngestHealth: %v", err)
	}
	if len(health) != 1 {
		t.Fatalf("len(health) = %d, want 1", len(health))
	}
	if health[0].TotalRuns != 2 || health[0].SuccessRuns != 1 || health[0].FailedRuns != 1 {
		t.Errorf("summary = %+v", health[0])
	}
}

func TestRawPayloads(t *testing.T) {
	store, clock := setupTestStore(t)

	run, err := store.StartIngestRun("open-meteo", "forecast", nil)
	if err != nil {
		t.Fatal(err)
	}

	payload := []byte(`{"timezone":"America/Denver","hourly":{"time":[1715774400]}}`)
	id, err := store.StoreRawPayload(&run.ID, "open-meteo", "forecast", nil, payload)
	if err != nil {
		t.Fatalf("StoreRawPayload: %v", err)
	}
	if id == 0 {
		t.Fatal("expected payload id")
	}

	dup, err := store.StoreRawPayload(&run.ID, "open-meteo", "forecast", nil, payload)
	if err != nil {
		t.Fatalf("StoreRawPayload duplicate: %v", err)
	}
	if dup != 0 {
		t.Errorf("duplicate payload id = %d, want 0", dup)
	}

	got, err := store.GetRawPayload(id)
	if err != nil {
		t.Fatalf("GetRawPayload: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("GetRawPayload = %s", got)
	}

	if _, err := store.GetRawPayload(id + 100); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetRawPayload(missing) err = %v, want sql.ErrNoRows", err)
	}

	stats, err := store.GetRawPayloadStats()
	if err != nil {
		t.Fatalf("GetRawPayloadStats: %v", err)
	}
	if stats.TotalCount != 1 || stats.CountBySource["open-meteo"] != 1 {
		t.Errorf("stats = %+v", stats)
	}

	clock.now = clock.now.AddDate(0, 0, 31)
	n, err := store.CleanupOldRawPayloads(30)
	if err != nil {
		t.Fatalf("CleanupOldRawPayloads: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d payloads, want 1", n)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	version, err := store.MigrationVersion()
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("MigrationVersion = %d, want %d", version, len(migrations))
	}
}
