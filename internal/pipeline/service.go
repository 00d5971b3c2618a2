// Package pipeline orchestrates a reconciliation run: fetch the directory
// and record stream, build the index, match the roster, aggregate per
// identity, and persist the result as an inspectable run.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"rosterboard/internal/aggregate"
	"rosterboard/internal/audit"
	"rosterboard/internal/directory"
	"rosterboard/internal/identity/index"
	"rosterboard/internal/identity/models"
	"rosterboard/internal/platform/metrics"
	"rosterboard/internal/reconcile"
	"rosterboard/internal/remote"
	"rosterboard/internal/roster"
)

// Source is the upstream data dependency, satisfied by the records API
// client in production and by mocks in tests.
type Source interface {
	FetchUsers(ctx context.Context) ([]remote.User, error)
	FetchRecords(ctx context.Context) ([]remote.Record, error)
}

// Service runs the pipeline and owns run persistence. It takes every
// dependency explicitly; metrics may be nil in tests.
type Service struct {
	source  Source
	cache   directory.Cache
	store   RunStore
	audit   audit.Publisher
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

func NewService(source Source, cache directory.Cache, store RunStore, publisher audit.Publisher, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		source:  source,
		cache:   cache,
		store:   store,
		audit:   publisher,
		logger:  logger,
		metrics: m,
		tracer:  otel.Tracer("rosterboard/pipeline"),
	}
}

// Execute performs one full run against the given roster. The returned Run
// is always persisted, including on failure, so operators can inspect what
// went wrong.
func (s *Service) Execute(ctx context.Context, table roster.Table, cfg reconcile.Config, actor string) (Run, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.run")
	defer span.End()

	run := Run{
		ID:        uuid.NewString(),
		Status:    StatusRunning,
		Actor:     actor,
		StartedAt: time.Now().UTC(),
		Config:    cfg,
	}
	span.SetAttributes(
		attribute.String("run.id", run.ID),
		attribute.Int("roster.rows", len(table.Rows)),
	)

	if err := s.store.Save(ctx, run); err != nil {
		return Run{}, err
	}
	s.emit(ctx, run, audit.ActionRunStarted, "")

	identities, records, err := s.fetch(ctx)
	if err != nil {
		return s.fail(ctx, span, run, err)
	}

	idx := index.Build(identities)
	s.recordCollisions(ctx, run.ID, idx.Collisions())

	report, err := reconcile.Reconcile(table, idx, cfg)
	if err != nil {
		return s.fail(ctx, span, run, err)
	}
	leaderboard := aggregate.Aggregate(report.Rows, records)
	augmented := report.AugmentedTable(table)

	now := time.Now().UTC()
	run.Status = StatusCompleted
	run.FinishedAt = &now
	run.Reconciliation = report
	run.Leaderboard = leaderboard
	run.Augmented = &augmented
	run.Collisions = idx.Collisions()

	if err := s.store.Save(ctx, run); err != nil {
		return Run{}, err
	}
	s.emit(ctx, run, audit.ActionRunCompleted, "")

	if s.metrics != nil {
		s.metrics.RunsTotal.Inc()
		s.metrics.RowsProcessed.Add(float64(report.Stats.Total))
		s.metrics.OrphanRecords.Add(float64(leaderboard.Summary.OrphanRecords))
		for mt, n := range map[string]int{
			"exact_name":     report.Stats.ExactName,
			"fuzzy_name":     report.Stats.FuzzyName,
			"exact_phone":    report.Stats.ExactPhone,
			"original_phone": report.Stats.OriginalPhone,
			"none":           report.Stats.Unmatched,
		} {
			s.metrics.MatchesByType.WithLabelValues(mt).Add(float64(n))
		}
	}
	span.SetAttributes(
		attribute.Int("reconcile.matched", report.Stats.Matched),
		attribute.Int("aggregate.orphans", leaderboard.Summary.OrphanRecords),
	)

	s.logger.InfoContext(ctx, "run completed",
		"run_id", run.ID,
		"rows", report.Stats.Total,
		"matched", report.Stats.Matched,
		"unmatched", report.Stats.Unmatched,
		"orphan_records", leaderboard.Summary.OrphanRecords,
	)
	return run, nil
}

// fetch pulls the directory and record stream concurrently. The directory
// goes through the cache; records are always fetched live.
func (s *Service) fetch(ctx context.Context) ([]models.Identity, []remote.Record, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.fetch")
	defer span.End()

	var (
		identities []models.Identity
		records    []remote.Record
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		identities, err = s.directory(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		records, err = s.source.FetchRecords(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	span.SetAttributes(
		attribute.Int("directory.size", len(identities)),
		attribute.Int("records.count", len(records)),
	)
	return identities, records, nil
}

func (s *Service) directory(ctx context.Context) ([]models.Identity, error) {
	if cached, ok, err := s.cache.Get(ctx); err == nil && ok {
		s.logger.DebugContext(ctx, "directory served from cache", "size", len(cached))
		return cached, nil
	}

	users, err := s.source.FetchUsers(ctx)
	if err != nil {
		return nil, err
	}

	identities := make([]models.Identity, 0, len(users))
	for _, u := range users {
		identities = append(identities, models.Identity{ID: u.ID, Name: u.Name, Phone: u.Phone})
	}
	if err := s.cache.Set(ctx, identities); err != nil {
		s.logger.WarnContext(ctx, "directory cache write failed", "error", err)
	}
	return identities, nil
}

func (s *Service) recordCollisions(ctx context.Context, runID string, collisions index.Collisions) {
	if n := len(collisions.Name); n > 0 {
		s.logger.WarnContext(ctx, "directory name collisions", "run_id", runID, "count", n)
		if s.metrics != nil {
			s.metrics.Collisions.WithLabelValues(string(index.KindName)).Add(float64(n))
		}
	}
	if n := len(collisions.Phone); n > 0 {
		s.logger.WarnContext(ctx, "directory phone collisions", "run_id", runID, "count", n)
		if s.metrics != nil {
			s.metrics.Collisions.WithLabelValues(string(index.KindPhone)).Add(float64(n))
		}
	}
}

func (s *Service) fail(ctx context.Context, span trace.Span, run Run, cause error) (Run, error) {
	now := time.Now().UTC()
	run.Status = StatusFailed
	run.FinishedAt = &now
	run.Error = cause.Error()

	span.SetStatus(codes.Error, cause.Error())
	if s.metrics != nil {
		s.metrics.RunFailures.Inc()
	}
	if err := s.store.Save(ctx, run); err != nil {
		s.logger.ErrorContext(ctx, "persisting failed run", "run_id", run.ID, "error", err)
	}
	s.emit(ctx, run, audit.ActionRunFailed, cause.Error())
	s.logger.ErrorContext(ctx, "run failed", "run_id", run.ID, "error", cause)
	return run, cause
}

func (s *Service) emit(ctx context.Context, run Run, action, detail string) {
	err := s.audit.Emit(ctx, audit.Event{
		RunID:   run.ID,
		Action:  action,
		Actor:   run.Actor,
		Outcome: string(run.Status),
		Detail:  detail,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "run_id", run.ID, "action", action, "error", err)
	}
}

// Get returns one run by ID.
func (s *Service) Get(ctx context.Context, id string) (Run, error) {
	return s.store.Get(ctx, id)
}

// List returns run summaries, newest first.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	return s.store.List(ctx)
}
