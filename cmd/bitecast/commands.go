package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/lox/bitecast/internal/format"
	"github.com/lox/bitecast/internal/ingest"
	"github.com/lox/bitecast/internal/lunar"
	"github.com/lox/bitecast/internal/models"
	"github.com/lox/bitecast/internal/narrative"
	"github.com/lox/bitecast/internal/scoring"
	"github.com/lox/bitecast/internal/store"
)

type ScoreCmd struct {
	Lat     *float64 `help:"Latitude."`
	Lon     *float64 `help:"Longitude."`
	Query   string   `short:"q" help:"Place name to geocode instead of --lat/--lon."`
	Species string   `default:"bass" env:"BITECAST_SPECIES" help:"Species key."`
	Units   string   `default:"imperial" enum:"imperial,metric" env:"BITECAST_UNITS" help:"imperial or metric."`
	Format  string   `default:"text" enum:"text,json" help:"Output format."`
}

func (c *ScoreCmd) Run(g *Globals) error {
	cfg, err := g.config()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	fetcher := ingest.NewFetcher(ingest.NewOpenMeteo(), nil)
	loc, err := c.location(ctx, fetcher)
	if err != nil {
		return err
	}

	weather, err := fetcher.Forecast(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		return fmt.Errorf("fetch forecast: %w", err)
	}
	loc.Timezone = weather.Timezone

	result, err := scoring.BuildForecastScore(scoring.Input{
		Forecast: *weather,
		Location: loc,
		Settings: models.UserSettings{Units: models.ParseUnits(c.Units), Species: c.Species},
		Config:   cfg,
		Now:      time.Now(),
	})
	if err != nil {
		return err
	}

	if c.Format == "json" {
		return printJSON(result)
	}
	printReport(result, speciesLabel(cfg, result.Species))
	return nil
}

func (c *ScoreCmd) location(ctx context.Context, fetcher *ingest.Fetcher) (models.LocationInfo, error) {
	if c.Query != "" {
		results, err := fetcher.Search(ctx, c.Query)
		if err != nil {
			return models.LocationInfo{}, fmt.Errorf("geocode %q: %w", c.Query, err)
		}
		if len(results) == 0 {
			return models.LocationInfo{}, fmt.Errorf("no places match %q", c.Query)
		}
		r := results[0]
		return models.LocationInfo{
			Label:     ingest.Label(r),
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
			Source:    models.SourceManual,
		}, nil
	}

	if c.Lat == nil || c.Lon == nil {
		return models.LocationInfo{}, errors.New("--lat and --lon, or --query, are required")
	}
	return models.LocationInfo{
		Label:     fmt.Sprintf("%.3f, %.3f", *c.Lat, *c.Lon),
		Latitude:  *c.Lat,
		Longitude: *c.Lon,
		Source:    models.SourceManual,
	}, nil
}

func printReport(result *models.ForecastResult, label string) {
	fmt.Println(narrative.TemplateReport(result, label))
	fmt.Println()

	loc := format.LoadZone(result.Timezone)
	for _, day := range scoring.DailyOutlook(result) {
		fmt.Printf("%-12s avg %3d  peak %3d  %-10s best %s\n",
			day.DayLabel, day.AvgScore, day.PeakScore, day.Rating, day.BestHourLabel)
	}
	for _, f := range result.FactorBreakdown {
		fmt.Printf("  %-20s %+6.1f  %s\n", f.Label, f.Points, f.Insight)
	}
	fmt.Printf("\nFetched %s\n", format.DateTime(result.FetchedAt.Unix(), loc))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func speciesLabel(cfg *scoring.Config, key string) string {
	if sp, ok := cfg.Species[key]; ok {
		return sp.Label
	}
	return key
}

type SolunarCmd struct {
	Lat    float64 `required:"" help:"Latitude."`
	Lon    float64 `required:"" help:"Longitude."`
	TZ     string  `name:"tz" help:"IANA timezone for window labels."`
	Format string  `default:"text" enum:"text,json" help:"Output format."`
}

func (c *SolunarCmd) Run() error {
	now := time.Now()
	summary := lunar.BuildSolunarSummary(c.Lat, c.Lon, c.TZ, now)
	moon := lunar.ComputeMoonInfo(now)

	if c.Format == "json" {
		return printJSON(struct {
			Moon    models.MoonInfo       `json:"moon"`
			Solunar models.SolunarSummary `json:"solunar"`
		}{moon, summary})
	}

	fmt.Printf("Moon: %s, %.0f%% lit, %.1f days old\n", moon.Name, moon.Illumination, moon.AgeDays)
	for _, w := range summary.Windows {
		fmt.Printf("  %-6s %s\n", w.Type, w.Label)
	}
	fmt.Println(summary.Note)
	return nil
}

type SpeciesCmd struct{}

func (c *SpeciesCmd) Run(g *Globals) error {
	cfg, err := g.config()
	if err != nil {
		return err
	}
	for _, key := range cfg.SpeciesKeys() {
		sp := cfg.Species[key]
		marker := ""
		if key == store.DefaultSpecies {
			marker = " (default)"
		}
		fmt.Printf("%-10s %s%s, prefers %.0f-%.0f°C\n", key, sp.Label, marker, sp.PreferredTempC.Min, sp.PreferredTempC.Max)
	}
	return nil
}

type ReplayCmd struct {
	ID      int64  `arg:"" help:"Raw payload ID."`
	DB      string `name:"db" default:"data/bitecast.db" env:"BITECAST_DB" help:"Path to SQLite database."`
	Species string `default:"bass" env:"BITECAST_SPECIES" help:"Species key."`
	Units   string `default:"imperial" enum:"imperial,metric" env:"BITECAST_UNITS" help:"imperial or metric."`
	Format  string `default:"text" enum:"text,json" help:"Output format."`
}

// Run decodes an archived forecast response and scores it as of its first
// hour.
func (c *ReplayCmd) Run(g *Globals) error {
	cfg, err := g.config()
	if err != nil {
		return err
	}

	db, err := sql.Open("sqlite", c.DB)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	payload, err := store.New(db).GetRawPayload(c.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("no raw payload %d", c.ID)
	}
	if err != nil {
		return fmt.Errorf("read raw payload %d: %w", c.ID, err)
	}

	var resp ingest.ForecastResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return fmt.Errorf("decode raw payload %d: %w", c.ID, err)
	}
	weather, flags, err := ingest.ParseForecast(resp)
	if err != nil {
		return err
	}
	if len(weather.Hourly.Time) == 0 {
		return fmt.Errorf("raw payload %d has no hours", c.ID)
	}
	if len(flags) > 0 {
		fmt.Fprintf(os.Stderr, "quality flags: %v\n", flags)
	}

	result, err := scoring.BuildForecastScore(scoring.Input{
		Forecast: *weather,
		Location: models.LocationInfo{
			Label:     fmt.Sprintf("%.3f, %.3f", weather.Latitude, weather.Longitude),
			Latitude:  weather.Latitude,
			Longitude: weather.Longitude,
			Source:    models.SourceManual,
			Timezone:  weather.Timezone,
		},
		Settings: models.UserSettings{Units: models.ParseUnits(c.Units), Species: c.Species},
		Config:   cfg,
		Now:      time.Unix(weather.Hourly.Time[0], 0),
	})
	if err != nil {
		return err
	}

	if c.Format == "json" {
		return printJSON(result)
	}
	printReport(result, speciesLabel(cfg, result.Species))
	return nil
}
