package live

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"transit-map/internal/feed"
	mmetrics "transit-map/internal/metrics"
	"transit-map/internal/track"
)

// Fetcher retrieves one full snapshot per call.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) (feed.Snapshot, error)
}

type poller struct {
	fetcher  Fetcher
	interval time.Duration
}

// Manager runs the map state machine. One loop goroutine owns every
// reconciler, the animator and the freshness tracker; pollers only do I/O and
// hand snapshots to the loop.
type Manager struct {
	presenter         track.Presenter
	animator          *track.Animator
	freshness         *track.Freshness
	freshnessInterval time.Duration
	frameInterval     time.Duration
	metrics           *mmetrics.Collector
	logger            *zap.Logger
	now               func() time.Time

	reconcilers map[string]*track.Reconciler
	pollers     []poller

	snapshots chan feed.Snapshot
	calls     chan func()
	done      chan struct{} // closed when the loop exits

	cancel  context.CancelFunc
	loopWG  sync.WaitGroup
	pollWG  sync.WaitGroup
	started bool
}

func NewManager(p track.Presenter, freshnessInterval, frameInterval time.Duration, metrics *mmetrics.Collector, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		presenter:         p,
		animator:          track.NewAnimator(p),
		freshness:         track.NewFreshness(p),
		freshnessInterval: freshnessInterval,
		frameInterval:     frameInterval,
		metrics:           metrics,
		logger:            logger,
		now:               time.Now,
		reconcilers:       make(map[string]*track.Reconciler),
		snapshots:         make(chan feed.Snapshot),
		calls:             make(chan func()),
		done:              make(chan struct{}),
	}
}

// AddFeed registers a feed polled every interval. Feeds must be added
// before Start; each gets its own entity table.
func (m *Manager) AddFeed(f Fetcher, interval time.Duration, opts track.Options) {
	opts.Feed = f.Name()
	if opts.Logger == nil {
		opts.Logger = m.logger
	}
	m.reconcilers[f.Name()] = track.NewReconciler(opts, m.presenter, m.animator, m.freshness)
	m.pollers = append(m.pollers, poller{fetcher: f, interval: interval})
}

func (m *Manager) Start(parent context.Context) {
	if m.started {
		return
	}
	m.started = true
	ctx, cancel := context.WithCancel(parent)
	m.cancel = cancel

	m.loopWG.Add(1)
	go func() {
		defer m.loopWG.Done()
		defer close(m.done)
		m.run(ctx)
	}()

	for _, p := range m.pollers {
		m.pollWG.Add(1)
		go func(p poller) {
			defer m.pollWG.Done()
			m.poll(ctx, p)
		}(p)
	}
	m.logger.Info("live map started", zap.Int("feeds", len(m.pollers)))
}

func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.pollWG.Wait()
	m.loopWG.Wait()
}

// poll fetches immediately and then on every tick. The fetch runs on this
// goroutine, so a feed never has two requests in flight; ticks that fire
// while a request is outstanding are dropped by the ticker.
func (m *Manager) poll(ctx context.Context, p poller) {
	m.fetchOnce(ctx, p.fetcher)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.fetchOnce(ctx, p.fetcher)
		}
	}
}

func (m *Manager) fetchOnce(ctx context.Context, f Fetcher) {
	start := time.Now()
	snap, err := f.Fetch(ctx)
	if m.metrics != nil {
		m.metrics.FetchDuration.WithLabelValues(f.Name()).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.logger.Warn("feed fetch failed", zap.String("feed", f.Name()), zap.Error(err))
		if m.metrics != nil {
			m.metrics.FetchErrors.WithLabelValues(f.Name(), string(feed.KindOf(err))).Inc()
		}
		return
	}
	snap.Feed = f.Name()
	select {
	case m.snapshots <- snap:
	case <-ctx.Done():
	}
}

func (m *Manager) run(ctx context.Context) {
	fresh := time.NewTicker(m.freshnessInterval)
	defer fresh.Stop()

	var frame *time.Ticker
	var frameC <-chan time.Time
	defer func() {
		if frame != nil {
			frame.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-m.snapshots:
			m.apply(snap)
		case <-fresh.C:
			m.freshness.Tick(m.now())
			if m.metrics != nil {
				m.metrics.AgeLabels.Set(float64(m.freshness.Len()))
			}
		case <-frameC:
			m.animator.Step(m.now())
		case fn := <-m.calls:
			fn()
		}

		// the frame clock only runs while something is moving
		switch active := m.animator.Active(); {
		case active && frame == nil:
			frame = time.NewTicker(m.frameInterval)
			frameC = frame.C
		case !active && frame != nil:
			frame.Stop()
			frame, frameC = nil, nil
		}
		if m.metrics != nil {
			m.metrics.ActiveAnimations.Set(float64(m.animator.Len()))
		}
	}
}

func (m *Manager) apply(snap feed.Snapshot) {
	r, ok := m.reconcilers[snap.Feed]
	if !ok {
		m.logger.Warn("snapshot for unknown feed", zap.String("feed", snap.Feed))
		return
	}
	start := time.Now()
	res := r.Reconcile(m.now(), snap)
	if m.metrics != nil {
		m.metrics.ReconcileDuration.Observe(time.Since(start).Seconds())
		m.metrics.Snapshots.WithLabelValues(snap.Feed).Inc()
		m.metrics.TrackedEntities.WithLabelValues(snap.Feed).Set(float64(r.Len()))
		m.metrics.EntitiesCreated.WithLabelValues(snap.Feed).Add(float64(res.Created))
		m.metrics.EntitiesRemoved.WithLabelValues(snap.Feed).Add(float64(res.Removed))
		m.metrics.EntitiesAnimated.WithLabelValues(snap.Feed).Add(float64(res.Animated))
		m.metrics.EntitiesSnapped.WithLabelValues(snap.Feed).Add(float64(res.Snapped))
		m.metrics.RecordsSkipped.WithLabelValues(snap.Feed).Add(float64(res.Skipped))
		m.metrics.CreateFailures.WithLabelValues(snap.Feed).Add(float64(res.Failed))
	}
	m.logger.Debug("snapshot reconciled",
		zap.String("feed", snap.Feed),
		zap.Int("records", len(snap.Records)),
		zap.Int("tracked", r.Len()),
		zap.Int("created", res.Created),
		zap.Int("animated", res.Animated),
		zap.Int("snapped", res.Snapped),
		zap.Int("removed", res.Removed),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
	)
}

var errNotRunning = errors.New("live map not running")

// do runs fn on the loop goroutine and waits for it. It fails with
// errNotRunning before Start and after the loop has stopped.
func (m *Manager) do(ctx context.Context, fn func()) error {
	if !m.started {
		return errNotRunning
	}
	finished := make(chan struct{})
	select {
	case m.calls <- func() { fn(); close(finished) }:
	case <-m.done:
		return errNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
	// an accepted call always runs before the loop can exit
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tracked returns the identifiers currently shown for a feed.
func (m *Manager) Tracked(ctx context.Context, feedName string) ([]string, error) {
	var ids []string
	err := m.do(ctx, func() {
		if r, ok := m.reconcilers[feedName]; ok {
			ids = r.IDs()
		}
	})
	return ids, err
}

// Entity returns a copy of one tracked entity.
func (m *Manager) Entity(ctx context.Context, feedName, id string) (track.Entity, bool, error) {
	var (
		e  track.Entity
		ok bool
	)
	err := m.do(ctx, func() {
		if r, found := m.reconcilers[feedName]; found {
			e, ok = r.Entity(id)
		}
	})
	return e, ok, err
}
