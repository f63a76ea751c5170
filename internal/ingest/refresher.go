package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lox/bitecast/internal/metrics"
)

const DefaultRefreshSchedule = "@every 30m"

// ErrNothingToRefresh is returned by a refresh job when there is no saved
// location to work on.
var ErrNothingToRefresh = errors.New("nothing to refresh")

type RefreshFunc func(ctx context.Context) error

// Refresher runs a refresh job on a cron schedule. A run that is still in
// progress when the next one is due causes that tick to be skipped.
type Refresher struct {
	schedule string
	job      RefreshFunc
	timeout  time.Duration
	cron     *cron.Cron
}

func NewRefresher(schedule string, job RefreshFunc) *Refresher {
	if schedule == "" {
		schedule = DefaultRefreshSchedule
	}
	return &Refresher{
		schedule: schedule,
		job:      job,
		timeout:  2 * time.Minute,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
	}
}

// Run schedules the job and blocks until ctx is cancelled. In-flight runs are
// allowed to finish before it returns.
func (r *Refresher) Run(ctx context.Context) error {
	if _, err := r.cron.AddFunc(r.schedule, func() {
		if err := r.RunOnce(ctx); err != nil {
			log.Printf("refresher: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule refresh %q: %w", r.schedule, err)
	}

	log.Printf("refresher: started with schedule %s", r.schedule)
	r.cron.Start()

	<-ctx.Done()
	log.Println("refresher: shutting down")
	<-r.cron.Stop().Done()
	return nil
}

// RunOnce runs the job immediately with the refresher's timeout.
func (r *Refresher) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	err := r.job(ctx)
	switch {
	case errors.Is(err, ErrNothingToRefresh):
		metrics.RefreshRunsTotal.WithLabelValues("skipped").Inc()
		return nil
	case err != nil:
		metrics.RefreshRunsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("refresh failed after %s: %w", time.Since(start).Round(time.Millisecond), err)
	}

	metrics.RefreshRunsTotal.WithLabelValues("ok").Inc()
	log.Printf("refresher: refreshed in %s", time.Since(start).Round(time.Millisecond))
	return nil
}
