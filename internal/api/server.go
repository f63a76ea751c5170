// Package api serves bite forecasts, settings, score cards and reports over
// HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/singleflight"

	"github.com/lox/bitecast/internal/imagegen"
	"github.com/lox/bitecast/internal/models"
	"github.com/lox/bitecast/internal/narrative"
	"github.com/lox/bitecast/internal/scoring"
	"github.com/lox/bitecast/internal/store"
)

// WeatherSource fetches hourly weather and looks up place names.
type WeatherSource interface {
	Forecast(ctx context.Context, lat, lon float64) (*models.WeatherForecast, error)
	Search(ctx context.Context, query string) ([]models.GeocodeResult, error)
}

var (
	ErrUpstream   = errors.New("weather provider failed")
	ErrNoLocation = errors.New("no saved location")
)

const cardTTL = 15 * time.Minute

type Server struct {
	store   *store.Store
	weather WeatherSource
	config  *scoring.Config
	cards   *imagegen.Cache
	writer  *narrative.Writer
	port    string
	now     func() time.Time
	flight  singleflight.Group
}

type Option func(*Server)

// WithConfig replaces the default species and threshold table.
func WithConfig(cfg *scoring.Config) Option {
	return func(s *Server) { s.config = cfg }
}

func WithNarrative(w *narrative.Writer) Option {
	return func(s *Server) { s.writer = w }
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func NewServer(st *store.Store, weather WeatherSource, port string, opts ...Option) *Server {
	s := &Server{
		store:   st,
		weather: weather,
		config:  scoring.DefaultConfig(),
		cards:   imagegen.NewCache(cardTTL),
		writer:  narrative.New("", ""),
		port:    port,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/forecast", s.handleForecast)
	mux.HandleFunc("GET /api/outlook", s.handleOutlook)
	mux.HandleFunc("GET /api/report", s.handleReport)
	mux.HandleFunc("GET /api/solunar", s.handleSolunar)
	mux.HandleFunc("GET /api/moon", s.handleMoon)
	mux.HandleFunc("GET /api/geocode", s.handleGeocode)
	mux.HandleFunc("GET /api/species", s.handleSpecies)
	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handlePutSettings)
	mux.HandleFunc("GET /api/location", s.handleLocation)
	mux.HandleFunc("GET /card.png", s.handleCard)
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) speciesLabel(key string) string {
	if sp, ok := s.config.Species[key]; ok {
		return sp.Label
	}
	return key
}
