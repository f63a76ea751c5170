package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lox/bitecast/internal/ingest"
	"github.com/lox/bitecast/internal/lunar"
	"github.com/lox/bitecast/internal/models"
	"github.com/lox/bitecast/internal/scoring"
	"github.com/lox/bitecast/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: write response: %v", err)
	}
}

// writeError maps err onto a status: bad input is 400, a missing saved
// location 404, provider failures 502 and anything else 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, scoring.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, ErrNoLocation):
		status = http.StatusNotFound
	case errors.Is(err, ErrUpstream):
		status = http.StatusBadGateway
	default:
		log.Printf("api: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{scoring.ErrInvalidInput}, args...)...)
}

// epochTime converts fractional unix seconds to a time.
func epochTime(sec float64) time.Time {
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9))
}

func parseFloatParam(r *http.Request, name string) (float64, bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, true, badRequest("%s must be a number", name)
	}
	return v, true, nil
}

// parseCoords reads lat and lon. ok is false when neither is present.
func parseCoords(r *http.Request) (lat, lon float64, ok bool, err error) {
	lat, hasLat, err := parseFloatParam(r, "lat")
	if err != nil {
		return 0, 0, false, err
	}
	lon, hasLon, err := parseFloatParam(r, "lon")
	if err != nil {
		return 0, 0, false, err
	}
	if hasLat != hasLon {
		return 0, 0, false, badRequest("lat and lon must be given together")
	}
	return lat, lon, hasLat, nil
}

// forecastQuery builds a query from the request, falling back to the saved
// location when no coordinates are given.
func (s *Server) forecastQuery(r *http.Request) (ForecastQuery, error) {
	lat, lon, ok, err := parseCoords(r)
	if err != nil {
		return ForecastQuery{}, err
	}

	var q ForecastQuery
	if ok {
		q = ForecastQuery{Latitude: lat, Longitude: lon, Source: models.SourceManual}
		if r.URL.Query().Get("source") == string(models.SourceGeolocation) {
			q.Source = models.SourceGeolocation
		}
	} else {
		if q, err = s.lastLocationQuery(); err != nil {
			return ForecastQuery{}, err
		}
	}

	if label := strings.TrimSpace(r.URL.Query().Get("label")); label != "" {
		q.Label = label
	}
	q.Species = r.URL.Query().Get("species")
	q.Fresh, _ = strconv.ParseBool(r.URL.Query().Get("fresh"))
	return q, nil
}

func (s *Server) resultFor(r *http.Request) (*models.ForecastResult, error) {
	q, err := s.forecastQuery(r)
	if err != nil {
		return nil, err
	}
	return s.Forecast(r.Context(), q)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	result, err := s.resultFor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type outlookResponse struct {
	Location models.LocationInfo `json:"location"`
	Species  string              `json:"species"`
	Units    models.UnitSystem   `json:"units"`
	Days     []models.DayOutlook `json:"days"`
}

func (s *Server) handleOutlook(w http.ResponseWriter, r *http.Request) {
	result, err := s.resultFor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outlookResponse{
		Location: result.Location,
		Species:  result.Species,
		Units:    result.Units,
		Days:     scoring.DailyOutlook(result),
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	result, err := s.resultFor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.writer.Write(r.Context(), result, s.speciesLabel(result.Species)))
}

func (s *Server) handleSolunar(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok, err := parseCoords(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok || !validCoordinate(lat, lon) {
		writeError(w, badRequest("lat and lon are required"))
		return
	}

	now := s.now()
	if t, ok, err := parseFloatParam(r, "t"); err != nil {
		writeError(w, err)
		return
	} else if ok {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			writeError(w, badRequest("t must be finite"))
			return
		}
		now = epochTime(t)
	}

	writeJSON(w, http.StatusOK, lunar.BuildSolunarSummary(lat, lon, r.URL.Query().Get("tz"), now))
}

func (s *Server) handleMoon(w http.ResponseWriter, r *http.Request) {
	t, ok, err := parseFloatParam(r, "t")
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		t = float64(s.now().Unix())
	}

	info, err := lunar.ComputeMoonInfoUnix(t)
	if err != nil {
		writeError(w, badRequest("t: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type geocodeItem struct {
	models.GeocodeResult
	Label string `json:"label"`
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	results, err := s.weather.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", ErrUpstream, err))
		return
	}

	items := make([]geocodeItem, 0, len(results))
	for _, res := range results {
		items = append(items, geocodeItem{GeocodeResult: res, Label: ingest.Label(res)})
	}
	writeJSON(w, http.StatusOK, items)
}

type speciesItem struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

func (s *Server) handleSpecies(w http.ResponseWriter, r *http.Request) {
	keys := s.config.SpeciesKeys()
	items := make([]speciesItem, 0, len(keys))
	for _, key := range keys {
		items = append(items, speciesItem{Key: key, Label: s.config.Species[key].Label})
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.GetSettings()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// handlePutSettings applies the fields present in the body to the saved
// settings. Unknown units become imperial; unknown species are rejected.
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Units   string `json:"units"`
		Species string `json:"species"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&body); err != nil {
		writeError(w, badRequest("decode settings: %v", err))
		return
	}

	settings, err := s.store.GetSettings()
	if err != nil {
		writeError(w, err)
		return
	}
	if body.Units != "" {
		settings.Units = models.ParseUnits(body.Units)
	}
	if body.Species != "" {
		if _, ok := s.config.Species[body.Species]; !ok {
			writeError(w, badRequest("unknown species %q", body.Species))
			return
		}
		settings.Species = body.Species
	}

	if err := s.store.SaveSettings(settings); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := s.store.LastLocation()
	if err != nil {
		writeError(w, err)
		return
	}
	if loc == nil {
		writeError(w, ErrNoLocation)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

type healthResponse struct {
	Status           string                      `json:"status"`
	MigrationVersion int                         `json:"migrationVersion"`
	Ingest           []store.IngestHealthSummary `json:"ingest"`
	RawPayloads      *store.RawPayloadStats      `json:"rawPayloads,omitempty"`
	RecentErrors     []string                    `json:"recentErrors,omitempty"`
}

// handleHealth reports degraded when every upstream fetch in the last day
// failed.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	version, err := s.store.MigrationVersion()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "error": err.Error()})
		return
	}

	health := healthResponse{Status: "ok", MigrationVersion: version}

	summaries, err := s.store.GetIngestHealth(1)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	health.Ingest = summaries

	var runs, failed int
	for _, h := range summaries {
		runs += h.TotalRuns
		failed += h.FailedRuns
	}
	if runs > 0 && failed == runs {
		health.Status = "degraded"
	}

	if stats, err := s.store.GetRawPayloadStats(); err != nil {
		log.Printf("health: raw payload stats: %v", err)
	} else {
		health.RawPayloads = stats
	}

	if recent, err := s.store.GetRecentIngestErrors(5); err != nil {
		log.Printf("health: recent errors: %v", err)
	} else {
		for _, run := range recent {
			health.RecentErrors = append(health.RecentErrors,
				fmt.Sprintf("%s %s: %s", run.StartedAt.Format(time.RFC3339), run.Endpoint, run.ErrorMessage.String))
		}
	}

	status := http.StatusOK
	if health.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}
