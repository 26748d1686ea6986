/*
scheduler.go - Scheduled CSV exports

PURPOSE:
  Periodically writes a full-history CSV report of every store to a
  directory, so a shop keeps offline copies without pressing Export.

DESIGN:
  - robfig/cron drives the job on a standard 5-field expression or descriptor
    ("@daily", "0 0 * * *"), evaluated in the configured location
  - Each run exports every store; one failing store does not stop the rest
  - Files are named "<store-id>-<export filename>"
  - Runs never overlap: a run still in progress skips the next tick

USAGE:
  scheduler := NewExportScheduler(svc, "/var/exports", "@daily", loc, logger)
  if err := scheduler.Start(); err != nil {
      log.Fatal(err)
  }
  // ... later
  scheduler.Stop()

SEE ALSO:
  - report/export.go: Report rendering
  - handlers.go: Export endpoint (on-demand export)
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/warp/store-ledger/ledger"
	"github.com/warp/store-ledger/report"
)

// ExportScheduler writes a CSV report per store on a cron schedule.
type ExportScheduler struct {
	Service  *ledger.Service
	Dir      string
	Schedule string
	Location *time.Location
	Logger   zerolog.Logger
	Now      func() time.Time

	cron *cron.Cron
	mu   sync.Mutex
}

// NewExportScheduler creates a scheduler writing into dir.
func NewExportScheduler(svc *ledger.Service, dir, schedule string, loc *time.Location, logger zerolog.Logger) *ExportScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &ExportScheduler{
		Service:  svc,
		Dir:      dir,
		Schedule: schedule,
		Location: loc,
		Logger:   logger,
		Now:      time.Now,
	}
}

// Start registers the job and starts the cron runner.
func (s *ExportScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	c := cron.New(
		cron.WithLocation(s.Location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(s.Schedule, s.run); err != nil {
		return fmt.Errorf("invalid export schedule %q: %w", s.Schedule, err)
	}
	c.Start()
	s.cron = c

	s.Logger.Info().Str("schedule", s.Schedule).Str("dir", s.Dir).Msg("export scheduler started")
	return nil
}

// Stop stops the runner and waits for a running export to finish.
func (s *ExportScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
	s.Logger.Info().Msg("export scheduler stopped")
}

func (s *ExportScheduler) run() {
	written, err := s.RunOnce(context.Background())
	if err != nil {
		s.Logger.Error().Err(err).Int("written", len(written)).Msg("scheduled export incomplete")
		return
	}
	s.Logger.Info().Int("written", len(written)).Msg("scheduled export finished")
}

// RunOnce exports every store now and returns the written file paths. The
// returned error joins the failures of individual stores.
func (s *ExportScheduler) RunOnce(ctx context.Context) ([]string, error) {
	stores, err := s.Service.AllStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}

	now := s.Now()
	var (
		written []string
		errs    []error
	)
	for _, store := range stores {
		path, err := s.export(ctx, store, now)
		if err != nil {
			s.Logger.Warn().Err(err).Str("store", store.ID).Msg("export failed")
			errs = append(errs, fmt.Errorf("store %s: %w", store.ID, err))
			continue
		}
		written = append(written, path)
	}
	return written, errors.Join(errs...)
}

func (s *ExportScheduler) export(ctx context.Context, store ledger.Store, now time.Time) (string, error) {
	txs, err := s.Service.Transactions(ctx, store.ID)
	if err != nil {
		return "", err
	}
	doc := report.Export(report.ExportRequest{
		Store:        store,
		Transactions: txs,
		Kind:         report.KindAll,
		Now:          now,
		Location:     s.Location,
	})

	// Store names are not unique; the id keeps one file per store.
	path := filepath.Join(s.Dir, store.ID+"-"+doc.Filename)
	if err := os.WriteFile(path, []byte(doc.Body), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

