package ingest

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lox/bitecast/internal/store"
)

func TestRefresherRunOnce(t *testing.T) {
	tests := []struct {
		name    string
		jobErr  error
		wantErr bool
	}{
		{"success", nil, false},
		{"nothing saved yet", ErrNothingToRefresh, false},
		{"wrapped nothing to refresh", errors.Join(errors.New("no location"), ErrNothingToRefresh), false},
		{"failure", errors.New("upstream down"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotDeadline bool
			r := NewRefresher("", func(ctx context.Context) error {
				_, gotDeadline = ctx.Deadline()
				return tt.jobErr
			})
			err := r.RunOnce(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("RunOnce() err = %v, wantErr %v", err, tt.wantErr)
			}
			if !gotDeadline {
				t.Error("job context should carry a deadline")
			}
		})
	}
}

func TestRefresherRun_InvalidSchedule(t *testing.T) {
	r := NewRefresher("every so often", func(ctx context.Context) error { return nil })
	if err := r.Run(context.Background()); err == nil {
		t.Error("expected error for invalid schedule")
	}
}

func TestRefresherRun_StopsOnCancel(t *testing.T) {
	r := NewRefresher("@every 1h", func(ctx context.Context) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func setupTestStore(t *testing.T) (*store.Store, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return st, db
}

func TestFetcherRecordsIngestRun(t *testing.T) {
	st, db := setupTestStore(t)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		resp := testResponse()
		resp.Hourly.SurfacePressure = nil
		writeJSON(t, w, resp)
	})

	forecast, err := NewFetcher(client, st).Forecast(context.Background(), 39.7392, -104.9903)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if len(forecast.Hourly.Time) != 4 {
		t.Errorf("hours = %d, want 4", len(forecast.Hourly.Time))
	}

	var (
		source, endpoint, locationID, flags string
		status, records, attempts           int
		success                             bool
	)
	err = db.QueryRow(`
		SELECT source, endpoint, location_id, http_status, records_parsed, attempts, quality_flags, success
		FROM ingest_runs
	`).Scan(&source, &endpoint, &locationID, &status, &records, &attempts, &flags, &success)
	if err != nil {
		t.Fatalf("query ingest run: %v", err)
	}
	if source != SourceOpenMeteo || endpoint != "forecast" || locationID != "39.739,-104.990" {
		t.Errorf("run = %s %s %s", source, endpoint, locationID)
	}
	if status != 200 || records != 4 || attempts != 1 || !success {
		t.Errorf("status = %d, records = %d, attempts = %d, success = %v", status, records, attempts, success)
	}
	if flags != `["pressure_msl_fallback"]` {
		t.Errorf("quality_flags = %q", flags)
	}

	stats, err := st.GetRawPayloadStats()
	if err != nil {
		t.Fatalf("GetRawPayloadStats: %v", err)
	}
	if stats.CountBySource[SourceOpenMeteo] != 1 {
		t.Errorf("raw payloads = %+v", stats.CountBySource)
	}
}

func TestFetcherRecordsFailure(t *testing.T) {
	st, _ := setupTestStore(t)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	if _, err := NewFetcher(client, st).Forecast(context.Background(), 1, 2); err == nil {
		t.Fatal("expected error")
	}

	errs, err := st.GetRecentIngestErrors(5)
	if err != nil {
		t.Fatalf("GetRecentIngestErrors: %v", err)
	}
	if len(errs) != 1 {
		t.Fatalf("len(errs) = %d, want 1", len(errs))
	}
	if errs[0].HTTPStatus.Int64 != 404 || !errs[0].ErrorMessage.Valid {
		t.Errorf("run = %+v", errs[0])
	}
}

func TestFetcherWithoutStore(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, testResponse())
	})

	if _, err := NewFetcher(client, nil).Forecast(context.Background(), 1, 2); err != nil {
		t.Fatalf("Forecast: %v", err)
	}
}
