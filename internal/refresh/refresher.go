package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"calview/internal/config"
	"calview/internal/ics"
	appLog "calview/internal/log"
)

// Fetcher retrieves ICS bodies. *ics.Fetcher implements it.
type Fetcher interface {
	FetchAll(ctx context.Context, sources []ics.Source) ([]ics.FetchResult, []error)
}

// Refresher runs fetch and parse into a Store, on demand and on a cron
// schedule.
type Refresher struct {
	fetcher  Fetcher
	sources  []ics.Source
	store    *Store
	schedule string

	runMu sync.Mutex // serializes refresh runs

	mu   sync.Mutex
	cron *cron.Cron
}

// New validates schedule (standard 5-field cron) and returns a Refresher.
func New(fetcher Fetcher, sources []ics.Source, store *Store, schedule string) (*Refresher, error) {
	if fetcher == nil || store == nil {
		return nil, errors.New("refresh: fetcher and store are required")
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("refresh: schedule %q: %w", schedule, err)
	}
	return &Refresher{
		fetcher:  fetcher,
		sources:  sources,
		store:    store,
		schedule: schedule,
	}, nil
}

// RefreshNow fetches and parses every source and replaces the snapshot.
// When every source fails the previous snapshot is kept. Per-source errors
// are joined into the returned error.
func (r *Refresher) RefreshNow(ctx context.Context) error {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	start := time.Now()
	results, errs := r.fetcher.FetchAll(ctx, r.sources)

	events := make([]ics.ParsedEvent, 0)
	parsed := 0
	for _, res := range results {
		evs, err := ics.ParseICS(res.Source, res.Body)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		parsed++
		events = append(events, evs...)
	}

	joined := errors.Join(errs...)
	if parsed == 0 && len(r.sources) > 0 {
		if joined == nil {
			joined = errors.New("refresh: no source produced events")
		}
		r.store.SetError(joined)
		appLog.Error("refresh failed; keeping previous snapshot", joined, "sources", len(r.sources))
		return joined
	}

	r.store.Set(events, len(r.sources), time.Now())
	r.store.SetError(joined)

	if joined != nil {
		appLog.Warn("refresh completed with errors",
			"sources", len(r.sources),
			"failed", len(errs),
			"events", len(events),
		)
	} else {
		appLog.Info("refresh completed",
			"sources", len(r.sources),
			"events", len(events),
			"took", time.Since(start).Round(time.Millisecond),
		)
	}
	return joined
}

// Start schedules RefreshNow on the cron schedule. The scheduled runs use
// ctx, so cancelling it aborts in-flight fetches; Stop must still be called.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return errors.New("refresh: already started")
	}

	logger := cronLogger{}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(r.schedule, func() {
		if ctx.Err() != nil {
			return
		}
		_ = r.RefreshNow(ctx)
	}); err != nil {
		return fmt.Errorf("refresh: schedule %q: %w", r.schedule, err)
	}
	c.Start()
	r.cron = c

	appLog.Info("refresh scheduled", "schedule", r.schedule, "sources", len(r.sources))
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
}

// cronLogger routes cron's logging through the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}

// Sources maps configured subscriptions to ICS sources, skipping entries
// without a URL. The ID falls back to the name, then the URL.
func Sources(cfgs []config.ICSConfig) []ics.Source {
	sources := make([]ics.Source, 0, len(cfgs))
	for _, c := range cfgs {
		if c.URL == "" {
			continue
		}
		id := c.ID
		if id == "" {
			if c.Name != "" {
				id = c.Name
			} else {
				id = c.URL
			}
		}
		sources = append(sources, ics.Source{ID: id, Name: c.Name, URL: c.URL})
	}
	return sources
}
