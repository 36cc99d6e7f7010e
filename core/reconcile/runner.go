package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultRetryMargin is subtracted from the earliest failed observation when
// the window advance is held back, so the failed record is collected again.
const DefaultRetryMargin = time.Second

// Runner drives reconciliation cycles for the mappings of a registry.
type Runner struct {
	registry    *Registry
	tracker     *Tracker
	logger      *zap.Logger
	concurrency int
	retryMargin time.Duration
	now         func() time.Time

	initializer  *Initializer
	synchronizer Synchronizer
	cleaner      Cleaner

	inflight singleflight.Group

	mu      sync.RWMutex
	reports map[string]*CycleReport
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithConcurrency bounds the number of mappings reconciled at once.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithRetryMargin sets the hold-back margin used after per-record failures.
func WithRetryMargin(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d >= 0 {
			r.retryMargin = d
		}
	}
}

// WithClock replaces the clock that stamps cycle starts.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRunner creates a runner. A nil logger disables logging.
func NewRunner(registry *Registry, tracker *Tracker, logger *zap.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		registry:    registry,
		tracker:     tracker,
		logger:      logger,
		concurrency: 1,
		retryMargin: DefaultRetryMargin,
		now:         time.Now,
		initializer: NewInitializer(registry),
		reports:     make(map[string]*CycleReport),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the registry the runner reconciles.
func (r *Runner) Registry() *Registry {
	return r.registry
}

// Tracker returns the tracker holding the windows.
func (r *Runner) Tracker() *Tracker {
	return r.tracker
}

// RunMapping runs one cycle for the named mapping. Concurrent calls for the
// same mapping share a single cycle and its report.
func (r *Runner) RunMapping(ctx context.Context, name string) (*CycleReport, error) {
	m, ok := r.registry.Get(name)
	if !ok {
		return nil, Configurationf("unknown mapping %q", name)
	}
	v, err, _ := r.inflight.Do(name, func() (any, error) {
		return r.cycle(ctx, m)
	})
	report, _ := v.(*CycleReport)
	if report != nil {
		r.mu.Lock()
		r.reports[name] = report
		r.mu.Unlock()
	}
	return report, err
}

// LastReport returns the report of the latest cycle of the named mapping,
// scheduled or on demand, or nil before its first cycle.
func (r *Runner) LastReport(name string) *CycleReport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.reports[name]
}

// RunAll runs one cycle for every mapping, at most concurrency at a time.
// A failing mapping does not stop the others; every report is returned with
// the errors of all failed mappings joined.
func (r *Runner) RunAll(ctx context.Context) ([]*CycleReport, error) {
	mappings := r.registry.Mappings()
	reports := make([]*CycleReport, len(mappings))
	errs := make([]error, len(mappings))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, m := range mappings {
		g.Go(func() error {
			report, err := r.RunMapping(ctx, m.Name)
			reports[i] = report
			if err != nil {
				errs[i] = errors.Wrapf(err, "mapping %s", m.Name)
			}
			return nil
		})
	}
	_ = g.Wait()
	return reports, errors.Join(errs...)
}

// Run reconciles every mapping each interval until ctx is cancelled.
func (r *Runner) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return Configurationf("polling interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("Reconciliation loop started",
		zap.Duration("interval", interval),
		zap.Strings("mappings", r.registry.Names()))

	for {
		if _, err := r.RunAll(ctx); err != nil && ctx.Err() == nil {
			r.logger.Warn("Reconciliation round finished with errors", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			r.logger.Info("Reconciliation loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (r *Runner) cycle(ctx context.Context, m *Mapping) (*CycleReport, error) {
	started := r.now()
	log := r.logger.With(zap.String("mapping", m.Name))

	window, err := r.tracker.Window(ctx, m.Name, started)
	if err != nil {
		return r.abort(log, &CycleReport{Mapping: m.Name}, started, err)
	}
	report := &CycleReport{Mapping: m.Name, Window: window, Advanced: window.After}

	changes, err := Collect(ctx, m, window)
	if err != nil {
		return r.abort(log, report, started, err)
	}
	report.Collected = len(changes.Keys)
	report.Unpaired = len(changes.Unpaired)

	pairs, err := r.initializer.Initialize(ctx, m, changes, report)
	if err != nil {
		return r.abort(log, report, started, err)
	}
	if err := r.synchronizer.Synchronize(ctx, m, changes, pairs, report); err != nil {
		return r.abort(log, report, started, err)
	}
	if err := r.cleaner.Clean(ctx, m, window, report); err != nil {
		return r.abort(log, report, started, err)
	}

	end := window.Before
	if !report.retryFrom.IsZero() {
		if held := report.retryFrom.Add(-r.retryMargin); held.Before(end) {
			end = held
		}
	}
	advanced, err := r.tracker.Advance(ctx, m.Name, end)
	if err != nil {
		return r.abort(log, report, started, err)
	}
	report.Advanced = advanced
	report.Duration = r.now().Sub(started)

	for _, f := range report.Failures {
		log.Warn("Record not reconciled",
			zap.String("key", f.Key.String()),
			zap.String("operation", f.Operation),
			zap.Stringer("side", f.Side),
			zap.Any("attributes", f.Attributes),
			zap.Error(f.Err))
	}
	log.Info("Cycle completed",
		zap.Time("after", window.After),
		zap.Time("before", window.Before),
		zap.Int("collected", report.Collected),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("removed", report.Removed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failures", len(report.Failures)),
		zap.Time("advanced", report.Advanced),
		zap.Duration("duration", report.Duration))

	return report, nil
}

// abort ends a cycle without advancing its window.
func (r *Runner) abort(log *zap.Logger, report *CycleReport, started time.Time, err error) (*CycleReport, error) {
	report.Duration = r.now().Sub(started)
	report.Error = err.Error()
	log.Error("Cycle aborted, window not advanced",
		zap.Time("after", report.Window.After),
		zap.Int("failures", len(report.Failures)),
		zap.Error(err))
	return report, err
}
