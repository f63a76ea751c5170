package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lox/bitecast/internal/imagegen"
	"github.com/lox/bitecast/internal/ingest"
	"github.com/lox/bitecast/internal/metrics"
	"github.com/lox/bitecast/internal/models"
	"github.com/lox/bitecast/internal/scoring"
	"github.com/lox/bitecast/internal/store"
)

const fetchTimeout = 45 * time.Second

// ForecastQuery selects what to score. Species overrides the saved setting for
// this request only; Fresh bypasses the weather cache.
type ForecastQuery struct {
	Latitude  float64
	Longitude float64
	Label     string
	Source    models.LocationSource
	Species   string
	Fresh     bool
}

func validCoordinate(lat, lon float64) bool {
	return !math.IsNaN(lat) && !math.IsNaN(lon) && lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Forecast scores the query with the current settings. Cached weather is used
// while fresh; the result is cached and the location remembered. Identical
// concurrent requests share one fetch and score.
func (s *Server) Forecast(ctx context.Context, q ForecastQuery) (*models.ForecastResult, error) {
	if !validCoordinate(q.Latitude, q.Longitude) {
		return nil, fmt.Errorf("%w: coordinates %v,%v out of range", scoring.ErrInvalidInput, q.Latitude, q.Longitude)
	}

	settings, err := s.store.GetSettings()
	if err != nil {
		return nil, err
	}
	if q.Species != "" {
		settings.Species = q.Species
	}
	if _, ok := s.config.Species[settings.Species]; !ok {
		return nil, fmt.Errorf("%w: unknown species %q", scoring.ErrInvalidInput, settings.Species)
	}

	key := fmt.Sprintf("%s|%s|%s|%t", store.LocationKey(q.Latitude, q.Longitude), settings.Species, settings.Units, q.Fresh)
	v, err, _ := s.flight.Do(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		return s.score(ctx, q, settings)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.ForecastResult), nil
}

func (s *Server) score(ctx context.Context, q ForecastQuery, settings models.UserSettings) (*models.ForecastResult, error) {
	weather, err := s.loadWeather(ctx, q.Latitude, q.Longitude, q.Fresh)
	if err != nil {
		return nil, err
	}

	loc := models.LocationInfo{
		Label:     q.Label,
		Latitude:  q.Latitude,
		Longitude: q.Longitude,
		Source:    q.Source,
		Timezone:  weather.Timezone,
	}
	if loc.Label == "" {
		loc.Label = fmt.Sprintf("%.3f, %.3f", q.Latitude, q.Longitude)
	}
	if loc.Source == "" {
		loc.Source = models.SourceManual
	}

	result, err := scoring.BuildForecastScore(scoring.Input{
		Forecast: *weather,
		Location: loc,
		Settings: settings,
		Config:   s.config,
		Now:      s.now(),
	})
	if err != nil {
		return nil, err
	}
	metrics.ForecastsScored.WithLabelValues(settings.Species).Inc()
	metrics.TotalScore.WithLabelValues(settings.Species).Observe(float64(result.Summary.TotalScore))

	if err := s.store.SaveForecast(q.Latitude, q.Longitude, weather, result); err != nil {
		log.Printf("forecast: cache result: %v", err)
	}
	if err := s.store.SaveLocation(loc); err != nil {
		log.Printf("forecast: save location: %v", err)
	}
	return result, nil
}

func (s *Server) loadWeather(ctx context.Context, lat, lon float64, fresh bool) (*models.WeatherForecast, error) {
	if !fresh {
		cached, err := s.store.GetCachedForecast(lat, lon)
		if err != nil {
			log.Printf("forecast: read cache: %v", err)
		}
		if cached != nil {
			metrics.ForecastCacheLookups.WithLabelValues("hit").Inc()
			return &cached.Weather, nil
		}
		metrics.ForecastCacheLookups.WithLabelValues("miss").Inc()
	}

	weather, err := s.weather.Forecast(ctx, lat, lon)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return weather, nil
}

// lastLocationQuery builds a query for the saved location.
func (s *Server) lastLocationQuery() (ForecastQuery, error) {
	loc, err := s.store.LastLocation()
	if err != nil {
		return ForecastQuery{}, err
	}
	if loc == nil {
		return ForecastQuery{}, ErrNoLocation
	}
	return ForecastQuery{
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Label:     loc.Label,
		Source:    loc.Source,
	}, nil
}

func cardKey(result *models.ForecastResult) string {
	return fmt.Sprintf("%s|%s|%s", store.LocationKey(result.Location.Latitude, result.Location.Longitude), result.Species, result.Units)
}

// card returns the rendered score card for result, rendering it when the
// cache has none.
func (s *Server) card(result *models.ForecastResult, refresh bool) ([]byte, error) {
	key := cardKey(result)
	if !refresh {
		if data, ok := s.cards.Get(key); ok {
			return data, nil
		}
	}

	data, err := imagegen.RenderCard(imagegen.CardFromResult(result, s.speciesLabel(result.Species)))
	if err != nil {
		return nil, err
	}
	s.cards.Set(key, data)
	return data, nil
}

// RefreshLastLocation re-fetches and re-scores the saved location, then warms
// the score card and report for it. It returns ingest.ErrNothingToRefresh when
// no location is saved.
func (s *Server) RefreshLastLocation(ctx context.Context) error {
	q, err := s.lastLocationQuery()
	if errors.Is(err, ErrNoLocation) {
		return ingest.ErrNothingToRefresh
	}
	if err != nil {
		return err
	}
	q.Fresh = true

	result, err := s.Forecast(ctx, q)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", q.Label, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.card(result, true)
		return err
	})
	g.Go(func() error {
		s.writer.Write(gctx, result, s.speciesLabel(result.Species))
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("warm card: %w", err)
	}

	if n, err := s.store.PruneForecasts(); err != nil {
		log.Printf("refresh: prune forecasts: %v", err)
	} else if n > 0 {
		log.Printf("refresh: pruned %d stale forecasts", n)
	}

	log.Printf("refresh: %s scored %d (%s)", q.Label, result.Summary.TotalScore, result.Summary.Rating)
	return nil
}
