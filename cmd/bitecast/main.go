package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	"golang.org/x/sync/errgroup"

	"github.com/lox/bitecast/internal/api"
	"github.com/lox/bitecast/internal/ingest"
	"github.com/lox/bitecast/internal/narrative"
	"github.com/lox/bitecast/internal/scoring"
	"github.com/lox/bitecast/internal/store"

	_ "modernc.org/sqlite"
)

const rawPayloadRetentionDays = 30

type Globals struct {
	SpeciesConfig string `name:"species-config" env:"BITECAST_SPECIES_CONFIG" type:"existingfile" help:"YAML file overriding the species table."`
}

// config returns the species table, merged with the override file when one is
// given.
func (g *Globals) config() (*scoring.Config, error) {
	if g.SpeciesConfig == "" {
		return scoring.DefaultConfig(), nil
	}
	return scoring.LoadConfigFile(g.SpeciesConfig)
}

type CLI struct {
	Globals

	Serve   ServeCmd   `cmd:"" help:"Run the HTTP API and background refresher."`
	Score   ScoreCmd   `cmd:"" help:"Score one location and print the result."`
	Solunar SolunarCmd `cmd:"" help:"Print solunar windows and moon phase."`
	Species SpeciesCmd `cmd:"" help:"List the configured species."`
	Replay  ReplayCmd  `cmd:"" help:"Re-score an archived Open-Meteo response."`
}

type ServeCmd struct {
	Port      string `default:"8080" env:"PORT" help:"HTTP server port."`
	DB        string `name:"db" default:"data/bitecast.db" env:"BITECAST_DB" help:"Path to SQLite database."`
	Refresh   string `default:"@every 30m" env:"BITECAST_REFRESH" help:"Cron schedule for refreshing the saved location."`
	NoRefresh bool   `help:"Disable the background refresher."`
	OpenAIKey string `name:"openai-key" env:"OPENAI_API_KEY" help:"Enables model-written reports."`
	Model     string `default:"gpt-4o-mini" env:"BITECAST_MODEL" help:"Chat model for reports."`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, err := g.config()
	if err != nil {
		return err
	}

	db, err := sql.Open("sqlite", c.DB)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Println("database migrated")

	writer := narrative.New(c.OpenAIKey, c.Model)
	if !writer.Enabled() {
		log.Println("no OpenAI key, reports use the built-in template")
	}

	fetcher := ingest.NewFetcher(ingest.NewOpenMeteo(), st)
	server := api.NewServer(st, fetcher, c.Port, api.WithConfig(cfg), api.WithNarrative(writer))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	group, ctx := errgroup.WithContext(ctx)
	if !c.NoRefresh {
		refresher := ingest.NewRefresher(c.Refresh, func(ctx context.Context) error {
			err := server.RefreshLastLocation(ctx)
			if n, cerr := st.CleanupOldRawPayloads(rawPayloadRetentionDays); cerr != nil {
				log.Printf("cleanup raw payloads: %v", cerr)
			} else if n > 0 {
				log.Printf("cleaned up %d raw payloads", n)
			}
			return err
		})
		group.Go(func() error { return refresher.Run(ctx) })
	} else {
		log.Println("refresher disabled (--no-refresh)")
	}

	group.Go(func() error {
		log.Printf("starting server on :%s", c.Port)
		return server.Run(ctx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("bitecast"),
		kong.Description("Fishing bite forecasts from hourly weather, moon phase and solunar periods."),
		kong.UsageOnError(),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)
	if err := ctx.Run(&cli.Globals); err != nil {
		log.Fatalf("%s: %v", ctx.Command(), err)
	}
}
