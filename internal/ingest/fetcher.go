package ingest

import (
	"context"
	"database/sql"
	"log"

	"github.com/lox/bitecast/internal/models"
	"github.com/lox/bitecast/internal/store"
)

const SourceOpenMeteo = "open-meteo"

// Fetcher wraps the Open-Meteo client with ingest-run auditing. Each forecast
// fetch is recorded with its status, attempts and quality flags, and the raw
// response is kept. A nil store disables auditing.
type Fetcher struct {
	client *OpenMeteo
	store  *store.Store
}

func NewFetcher(client *OpenMeteo, st *store.Store) *Fetcher {
	return &Fetcher{client: client, store: st}
}

func (f *Fetcher) Forecast(ctx context.Context, lat, lon float64) (*models.WeatherForecast, error) {
	locationID := store.LocationKey(lat, lon)
	run := f.startRun("forecast", &locationID)

	forecast, result, err := f.client.FetchForecast(ctx, lat, lon)
	if result != nil && len(result.Flags) > 0 {
		log.Printf("ingest: forecast %s quality flags: %v", locationID, result.Flags)
	}
	if err != nil {
		log.Printf("ingest: fetch forecast %s: %v", locationID, err)
	}

	f.completeRun(run, result, err)
	if run != nil && result != nil && len(result.Body) > 0 {
		if _, perr := f.store.StoreRawPayload(&run.ID, SourceOpenMeteo, "forecast", &locationID, result.Body); perr != nil {
			log.Printf("ingest: store raw payload: %v", perr)
		}
	}

	return forecast, err
}

func (f *Fetcher) Search(ctx context.Context, query string) ([]models.GeocodeResult, error) {
	return f.client.SearchLocations(ctx, query)
}

func (f *Fetcher) startRun(endpoint string, locationID *string) *store.IngestRun {
	if f.store == nil {
		return nil
	}
	run, err := f.store.StartIngestRun(SourceOpenMeteo, endpoint, locationID)
	if err != nil {
		log.Printf("ingest: start %s run: %v", endpoint, err)
		return nil
	}
	return run
}

func (f *Fetcher) completeRun(run *store.IngestRun, result *FetchResult, err error) {
	if run == nil {
		return
	}

	run.Success = err == nil
	if result != nil {
		run.HTTPStatus = sql.NullInt64{Int64: int64(result.HTTPStatus), Valid: result.HTTPStatus > 0}
		run.ResponseSizeBytes = sql.NullInt64{Int64: int64(result.ResponseSize), Valid: result.ResponseSize > 0}
		run.Attempts = sql.NullInt64{Int64: int64(result.Attempts), Valid: true}
		run.RecordsParsed = sql.NullInt64{Int64: int64(result.RecordCount), Valid: true}
		if flags := QualityFlagsToJSON(result.Flags); flags != "" {
			run.QualityFlags = sql.NullString{String: flags, Valid: true}
		}
	}
	if err != nil {
		run.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
	}

	if err := f.store.CompleteIngestRun(run); err != nil {
		log.Printf("ingest: complete run %d: %v", run.ID, err)
	}
}
