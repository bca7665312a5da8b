package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	domain "github.com/oshokin/downtime-alerts/internal/domain/alert"
	"github.com/oshokin/downtime-alerts/internal/logger"
	"github.com/oshokin/downtime-alerts/internal/metrics"
)

// DefaultFailureThreshold is the number of consecutive failed ticks that
// marks the feed as disconnected.
const DefaultFailureThreshold = 1

// errStaleGeneration is returned by Poll when the scheduler was restarted
// while the fetch was in flight.
var errStaleGeneration = errors.New("stale polling generation")

// FetchFunc fetches and normalises the current alert feed.
type FetchFunc func(ctx context.Context) ([]domain.Alert, error)

// ResultFunc consumes a successful fetch.
type ResultFunc func(ctx context.Context, alerts []domain.Alert)

// FailureFunc observes a failed fetch.
type FailureFunc func(ctx context.Context, err error)

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithFailureThreshold sets how many consecutive failures degrade connectivity.
func WithFailureThreshold(threshold int) Option {
	return func(s *Scheduler) {
		if threshold > 0 {
			s.threshold = threshold
		}
	}
}

// WithOnFailure sets the hook run after every failed fetch.
func WithOnFailure(fn FailureFunc) Option {
	return func(s *Scheduler) {
		s.onFailure = fn
	}
}

// Scheduler polls the alert feed.
type Scheduler struct {
	// fetch retrieves the feed.
	fetch FetchFunc
	// handle consumes successful fetches.
	handle ResultFunc
	// onFailure observes failed fetches, may be nil.
	onFailure FailureFunc
	// threshold is the consecutive failure count that degrades connectivity.
	threshold int

	// mu protects the fields below.
	mu sync.Mutex
	// base is the context of the last Start, reused by Restart.
	base context.Context
	// cancel stops the running loop.
	cancel context.CancelFunc
	// interval is the cadence of the running loop.
	interval time.Duration
	// generation increments on every start and stop.
	generation uint64
	// running reports an active loop.
	running bool
	// connected is the connectivity flag.
	connected bool
	// failures counts consecutive failed fetches.
	failures int

	// loops tracks loop goroutines.
	loops sync.WaitGroup
}

// New creates a stopped scheduler.
func New(fetch FetchFunc, handle ResultFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		fetch:     fetch,
		handle:    handle,
		threshold: DefaultFailureThreshold,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start stops any running loop and starts a new one at interval. The first
// fetch happens immediately.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = domain.DefaultRefreshInterval * time.Second
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	loopCtx, cancel := context.WithCancel(ctx)
	s.base = ctx
	s.cancel = cancel
	s.interval = interval
	s.generation++
	s.running = true
	s.connected = true
	s.failures = 0

	metrics.SetConnected(true)

	generation := s.generation

	s.loops.Add(1)

	go s.loop(logger.WithName(loopCtx, "poller"), generation, interval)

	logger.DebugKV(ctx, "Polling started", "interval", interval.String(), "generation", generation)
}

// Restart starts again at interval when running. A stopped scheduler stays stopped.
func (s *Scheduler) Restart(interval time.Duration) {
	s.mu.Lock()
	running, base := s.running, s.base
	s.mu.Unlock()

	if !running {
		return
	}

	s.Start(base, interval)
}

// Stop cancels future ticks. It is safe to call when not running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.stopLocked()
	s.connected = false

	metrics.SetConnected(false)
}

// Wait blocks until every loop goroutine has exited.
func (s *Scheduler) Wait() {
	s.loops.Wait()
}

// Running reports whether a loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// Connected reports the connectivity flag.
func (s *Scheduler) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.connected
}

// Interval returns the cadence of the running loop.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.interval
}

// Poll runs one fetch synchronously within the current generation.
func (s *Scheduler) Poll(ctx context.Context) error {
	s.mu.Lock()
	generation := s.generation
	s.mu.Unlock()

	return s.tick(ctx, generation)
}

func (s *Scheduler) stopLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	if s.running {
		s.generation++
	}

	s.running = false
}

func (s *Scheduler) loop(ctx context.Context, generation uint64, interval time.Duration) {
	defer s.loops.Done()

	if ctx.Err() != nil {
		return
	}

	_ = s.tick(ctx, generation)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.tick(ctx, generation)
		}
	}
}

// tick fetches once and routes the outcome, unless generation went stale.
func (s *Scheduler) tick(ctx context.Context, generation uint64) error {
	started := time.Now()
	alerts, err := s.fetch(ctx)

	metrics.PollDuration.Observe(time.Since(started).Seconds())

	if !s.record(generation, err) {
		logger.DebugKV(ctx, "Discarding stale poll result", "generation", generation)
		return errStaleGeneration
	}

	if err != nil {
		metrics.PollsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		logger.WarnKV(ctx, "Poll failed", "error", err)

		if s.onFailure != nil {
			s.onFailure(ctx, err)
		}

		return err
	}

	metrics.PollsTotal.WithLabelValues(metrics.ResultSuccess).Inc()

	s.handle(ctx, alerts)

	return nil
}

// record updates connectivity for the outcome and reports whether the
// generation is still current.
func (s *Scheduler) record(generation uint64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return false
	}

	if err == nil {
		s.failures = 0
		s.connected = true
	} else {
		s.failures++
		if s.failures >= s.threshold {
			s.connected = false
		}
	}

	metrics.SetConnected(s.connected)

	return true
}
