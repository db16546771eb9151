package poller

import (
	"context"
	"sync"
	"time"

	"github.com/quandify2mqtt/quandify2mqtt/internal/log"
	"github.com/quandify2mqtt/quandify2mqtt/internal/quandify"
)

// HealthStatus represents coordinator health for readiness reporting.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "HEALTHY"
	HealthDegraded HealthStatus = "DEGRADED"
	HealthError    HealthStatus = "ERROR"
)

const (
	defaultInterval = time.Hour
	minInterval     = time.Minute
	backoffBase     = time.Minute
	refreshTimeout  = 2 * time.Minute
)

// Source fetches consumption readings. Implemented by quandify.Client.
type Source interface {
	DailyConsumption(ctx context.Context) (quandify.Reading, error)
	HourlyConsumption(ctx context.Context) (quandify.Reading, error)
}

// Snapshot is the coordinator state after the most recent refresh attempt.
// A failed refresh keeps the previous readings and marks them stale.
type Snapshot struct {
	Daily  quandify.Reading
	Hourly quandify.Reading

	LastAttempt         time.Time
	LastSuccess         time.Time
	LastError           string
	Stale               bool
	ConsecutiveFailures int
}

// HasData reports whether at least one refresh has ever succeeded.
func (s Snapshot) HasData() bool {
	return !s.LastSuccess.IsZero()
}

// Listener receives the snapshot after every refresh attempt, successful or
// not.
type Listener func(context.Context, Snapshot)

// Config defines runtime configuration for the poller.
type Config struct {
	Interval time.Duration
}

// Poller periodically fetches readings from the source and fans the result
// out to listeners. Only one fetch is ever in flight.
type Poller struct {
	source    Source
	interval  time.Duration
	listeners []Listener
	kick      chan struct{}

	mu   sync.RWMutex
	snap Snapshot
}

func New(source Source, cfg Config) *Poller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	if interval < minInterval {
		interval = minInterval
	}
	return &Poller{
		source:   source,
		interval: interval,
		kick:     make(chan struct{}, 1),
	}
}

// AddListener registers a listener. Must be called before Run.
func (p *Poller) AddListener(listener Listener) {
	p.listeners = append(p.listeners, listener)
}

// Snapshot returns a copy of the current coordinator state.
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

// Health classifies the snapshot. Failures with no prior data are ERROR;
// failures with stale data still being served are DEGRADED.
func (p *Poller) Health() (HealthStatus, string) {
	snap := p.Snapshot()
	switch {
	case snap.LastError == "":
		return HealthHealthy, ""
	case snap.HasData():
		return HealthDegraded, snap.LastError
	default:
		return HealthError, snap.LastError
	}
}

// Refresh requests an immediate fetch. Requests arriving while a fetch is
// already queued coalesce into one.
func (p *Poller) Refresh() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Run fetches once immediately and then on every tick or manual refresh
// until the context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	log.Ctx(ctx).InfoContext(ctx, "poller starting", "interval", p.interval.String())
	p.refresh(ctx)

	timer := time.NewTimer(p.delay())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Ctx(ctx).InfoContext(ctx, "poller stopped")
			return
		case <-timer.C:
		case <-p.kick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		p.refresh(ctx)
		timer.Reset(p.delay())
	}
}

// delay returns the wait before the next automatic fetch: the poll interval
// normally, an exponential backoff capped at the interval after failures.
func (p *Poller) delay() time.Duration {
	p.mu.RLock()
	failures := p.snap.ConsecutiveFailures
	p.mu.RUnlock()

	if failures == 0 {
		return p.interval
	}
	shift := failures - 1
	if shift > 6 {
		shift = 6
	}
	backoff := backoffBase << shift
	if backoff > p.interval {
		backoff = p.interval
	}
	return backoff
}

func (p *Poller) refresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	start := time.Now()
	daily, err := p.source.DailyConsumption(ctx)
	var hourly quandify.Reading
	if err == nil {
		hourly, err = p.source.HourlyConsumption(ctx)
	}

	p.mu.Lock()
	p.snap.LastAttempt = start
	if err != nil {
		p.snap.Stale = true
		p.snap.LastError = err.Error()
		p.snap.ConsecutiveFailures++
	} else {
		p.snap.Daily = daily
		p.snap.Hourly = hourly
		p.snap.LastSuccess = start
		p.snap.Stale = false
		p.snap.LastError = ""
		p.snap.ConsecutiveFailures = 0
	}
	snap := p.snap
	p.mu.Unlock()

	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "refresh failed",
			"error", err,
			"consecutive_failures", snap.ConsecutiveFailures,
			"has_data", snap.HasData())
	} else {
		log.Ctx(ctx).InfoContext(ctx, "refresh succeeded",
			"daily_liters", snap.Daily.VolumeLiters,
			"hourly_liters", snap.Hourly.VolumeLiters,
			"took", time.Since(start).String())
	}

	for _, listener := range p.listeners {
		listener(ctx, snap)
	}
}
