// Package app provides the core service driving ingestion, retention and
// the sandbox path, and implements the dependencies required by the HTTP API.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hedvall/vakthund/internal/adapters/repository"
	"github.com/hedvall/vakthund/internal/domain/feedtime"
	"github.com/hedvall/vakthund/internal/domain/model"
	"github.com/hedvall/vakthund/internal/domain/scoring"
	"github.com/hedvall/vakthund/pkg/logger"
	"github.com/hedvall/vakthund/pkg/metrics"
)

// Default pipeline configuration constants.
const (
	defaultSyncInterval  = 10 * time.Minute
	defaultBackfillDays  = 7
	defaultBackfillDelay = 500 * time.Millisecond // politeness delay between day queries
	defaultRetention     = 7 * 24 * time.Hour
	defaultRecentLimit   = 1000

	// sandboxKeyPrefix keeps injected records out of the real key space.
	sandboxKeyPrefix = "mock_"

	// sandboxTimestampBias sorts injected records above real records with
	// the same nominal time, so QA inspection is deterministic.
	sandboxTimestampBias = 10 * time.Second
)

// Feed is the upstream source the pipeline pulls from.
type Feed interface {
	Latest(ctx context.Context) ([]model.Incident, error)
	Day(ctx context.Context, day time.Time) ([]model.Incident, error)
}

// Service owns the backfill -> live sync <-> prune lifecycle and the
// out-of-band sandbox and read paths.
type Service struct {
	mu sync.RWMutex

	store  repository.Store
	feed   Feed
	scorer *scoring.IntegrityScorer

	syncInterval  time.Duration
	backfillDays  int
	backfillDelay time.Duration
	retention     time.Duration
	recentLimit   int

	clock     Clock
	scheduler *Scheduler
	started   bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the incident store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithFeed sets the upstream feed source.
func WithFeed(feed Feed) Option {
	return func(s *Service) {
		if feed != nil {
			s.feed = feed
		}
	}
}

// WithScorer sets the integrity scorer.
func WithScorer(scorer *scoring.IntegrityScorer) Option {
	return func(s *Service) {
		if scorer != nil {
			s.scorer = scorer
		}
	}
}

// WithClock sets the time source. Tests supply a virtual clock.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithSyncInterval sets the live sync period.
func WithSyncInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.syncInterval = d
		}
	}
}

// WithBackfillDays sets the historical window fetched on startup.
func WithBackfillDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.backfillDays = days
		}
	}
}

// WithBackfillDelay sets the politeness delay between day queries.
func WithBackfillDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.backfillDelay = d
		}
	}
}

// WithRetention sets the retention horizon.
func WithRetention(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithRecentLimit caps GET /api/incidents results.
func WithRecentLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.recentLimit = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		scorer:        scoring.New(),
		syncInterval:  defaultSyncInterval,
		backfillDays:  defaultBackfillDays,
		backfillDelay: defaultBackfillDelay,
		retention:     defaultRetention,
		recentLimit:   defaultRecentLimit,
		clock:         SystemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the background pipeline: backfill, one immediate live
// sync, then live sync on the configured interval. The timer rearms only
// after a cycle completes, so cycles never overlap.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.store == nil || s.feed == nil {
		return fmt.Errorf("%w: store and feed are required", ErrNotConfigured)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.scheduler = NewScheduler(s.syncInterval, s.clock,
		WithWarmup(s.warmup),
		WithSchedulerLogger(s.logger),
	)
	s.scheduler.Start(ctx, s.syncCycle)

	s.started = true
	s.logger.Info(ctx, "pipeline started",
		logger.Int("backfillDays", s.backfillDays),
		logger.Any("syncInterval", s.syncInterval),
		logger.Any("retention", s.retention),
	)
	return nil
}

// Stop shuts down the background pipeline and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping pipeline...")
	s.scheduler.Stop()
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "closing store", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "pipeline stopped")
}

// warmup runs once when the scheduler starts: historical backfill followed
// by the first live sync.
func (s *Service) warmup(ctx context.Context) {
	s.Backfill(ctx)
	s.syncCycle(ctx)
}

// syncCycle is one scheduled unit of work: live sync then prune. Failures
// are logged and absorbed; the next cycle corrects them.
func (s *Service) syncCycle(ctx context.Context) {
	if err := s.SyncLatest(ctx); err != nil {
		metrics.RecordSyncFailure()
		s.logger.Error(ctx, "live sync failed", logger.Error(err))
	}
	if err := s.Prune(ctx); err != nil {
		s.logger.Error(ctx, "prune failed", logger.Error(err))
	}
}

// Backfill fetches the historical window one day at a time. A failed day is
// logged and skipped; the remaining days still run.
func (s *Service) Backfill(ctx context.Context) {
	s.logger.Info(ctx, "backfilling historical window", logger.Int("days", s.backfillDays))
	total := 0
	for i := 1; i <= s.backfillDays; i++ {
		day := s.clock.Now().AddDate(0, 0, -i)
		batch, err := s.feed.Day(ctx, day)
		if err != nil {
			metrics.RecordBackfillDayFailure()
			s.logger.Warn(ctx, "skipping day batch",
				logger.String("day", day.Format("2006-01-02")),
				logger.Error(err),
			)
		} else {
			n := s.upsertBatch(ctx, batch)
			total += n
			s.logger.Info(ctx, "backfilled day",
				logger.String("day", day.Format("2006-01-02")),
				logger.Int("incidents", n),
			)
		}
		if i < s.backfillDays && !s.sleep(ctx, s.backfillDelay) {
			return
		}
	}
	s.logger.Info(ctx, "backfill complete", logger.Int("incidents", total))
}

// SyncLatest fetches the feed's latest incidents and upserts them.
func (s *Service) SyncLatest(ctx context.Context) error {
	batch, err := s.feed.Latest(ctx)
	if err != nil {
		return fmt.Errorf("fetching latest incidents: %w", err)
	}
	n := s.upsertBatch(ctx, batch)
	metrics.RecordSyncCycle()
	metrics.UpdateLastSyncUnix(s.clock.Now().Unix())
	s.logger.Info(ctx, "live sync complete", logger.Int("incidents", n))
	return nil
}

// Prune deletes every record whose timestamp is strictly older than the
// retention horizon. Nothing matching is a no-op, not an error.
func (s *Service) Prune(ctx context.Context) error {
	cutoff := s.clock.Now().Add(-s.retention).UnixMilli()
	keys, err := s.store.KeysOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("querying expired incidents: %w", err)
	}
	if len(keys) == 0 {
		s.logger.Debug(ctx, "nothing to prune")
		return nil
	}
	if err := s.store.DeleteBatch(ctx, keys); err != nil {
		return fmt.Errorf("deleting expired incidents: %w", err)
	}
	metrics.RecordPruned(len(keys))
	s.logger.Info(ctx, "pruned expired incidents", logger.Int("count", len(keys)))
	return nil
}

// Inject scores a caller-supplied incident through the same normalize+score
// path as real ingestion, marks it synthetic and stores it under the
// sandbox key namespace. The stored record is returned for display.
func (s *Service) Inject(ctx context.Context, in model.Incident) (model.StoredIncident, error) {
	if in.ID == "" {
		in.ID = model.ID(uuid.NewString())
	}
	rec := s.enrich(in)
	rec.Key = sandboxKeyPrefix + string(in.ID)
	rec.IsMockedData = true
	rec.Timestamp += sandboxTimestampBias.Milliseconds()

	if err := s.store.Replace(ctx, rec); err != nil {
		return model.StoredIncident{}, fmt.Errorf("storing sandbox incident: %w", err)
	}
	metrics.RecordSandboxInjection()
	s.logger.Info(ctx, "sandbox incident injected",
		logger.String("key", rec.Key),
		logger.Int("score", rec.Integrity.Score),
	)
	return rec, nil
}

// Recent returns up to n stored incidents, newest first. n is clamped to
// the configured limit; n < 1 selects the limit itself.
func (s *Service) Recent(ctx context.Context, n int) ([]model.StoredIncident, error) {
	if n < 1 || n > s.recentLimit {
		n = s.recentLimit
	}
	recs, err := s.store.RecentN(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("querying recent incidents: %w", err)
	}
	return recs, nil
}

// TriggerSync runs one immediate out-of-cycle live sync plus prune.
// Failures are absorbed the same way scheduled cycles absorb them.
func (s *Service) TriggerSync(ctx context.Context) {
	s.logger.Info(ctx, "manual sync triggered")
	s.syncCycle(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"backfillDays": s.backfillDays,
		"syncInterval": s.syncInterval.String(),
		"retention":    s.retention.String(),
		"recentLimit":  s.recentLimit,
	}
	if s.store != nil {
		if n, err := s.store.Count(context.Background()); err == nil {
			stats["storedIncidents"] = n
			metrics.UpdateStoredIncidents(n)
		}
	}
	return stats
}

// upsertBatch enriches and stores a batch, returning how many records were
// written. Per-record store failures are logged and skipped.
func (s *Service) upsertBatch(ctx context.Context, batch []model.Incident) int {
	count := 0
	for _, in := range batch {
		if in.ID == "" {
			s.logger.Warn(ctx, "dropping incident without id")
			continue
		}
		rec := s.enrich(in)
		if err := s.store.Upsert(ctx, rec); err != nil {
			s.logger.Warn(ctx, "upsert failed",
				logger.String("key", rec.Key),
				logger.Error(err),
			)
			continue
		}
		metrics.RecordIncidentUpserted()
		if rec.Integrity.IsLowConfidence {
			metrics.RecordLowConfidence()
		}
		count++
	}
	return count
}

// enrich builds the stored record: normalized timestamp (falling back to
// the ingestion wall clock so retention never silently skips a record) and
// a freshly computed assessment.
func (s *Service) enrich(in model.Incident) model.StoredIncident {
	now := s.clock.Now()
	ts, err := feedtime.NormalizeMillis(in.Datetime)
	if err != nil {
		ts = now.UnixMilli()
	}
	return model.StoredIncident{
		Incident:  in,
		Integrity: s.scorer.Score(in, now),
		Timestamp: ts,
		Key:       string(in.ID),
	}
}

// sleep waits for d on the service clock; returns false if ctx ended first.
func (s *Service) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-s.clock.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
