package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is the cadence of scheduled probes
const DefaultInterval = 30 * time.Second

// Options configures a Monitor
type Options struct {
	Interval     time.Duration
	AutoStart    bool
	CheckOnMount bool
	Logger       *zap.Logger
}

// DefaultOptions returns a 30s interval with auto start and check on mount enabled
func DefaultOptions() Options {
	return Options{
		Interval:     DefaultInterval,
		AutoStart:    true,
		CheckOnMount: true,
	}
}

// State is the read model published to the view
type State struct {
	Record
	IsChecking   bool
	IsMonitoring bool
}

// Monitor schedules probes on a fixed interval and publishes the most
// recently completed record. It is owned by one view and must be closed
// when that view goes away; no state is published after Close.
type Monitor struct {
	ctx      context.Context
	prober   Prober
	interval time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	current  Record
	inFlight int
	sched    *schedule
	closed   bool
	updates  chan State
}

// schedule is one running ticker goroutine
type schedule struct {
	stop chan struct{}
	done chan struct{}
}

// New creates a monitor driving prober. Probes run on ctx, which should live
// as long as the process; Stop and Close never cancel a probe already in flight.
func New(ctx context.Context, prober Prober, opts Options) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	m := &Monitor{
		ctx:      ctx,
		prober:   prober,
		interval: opts.Interval,
		logger:   opts.Logger,
		current:  UnknownRecord(),
		updates:  make(chan State, 1),
	}

	if opts.CheckOnMount {
		m.CheckHealth()
	}
	if opts.AutoStart {
		m.Start()
	}

	return m
}

// Start fires one immediate probe and schedules one every interval.
// Calling Start while already monitoring does nothing.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.closed || m.sched != nil {
		m.mu.Unlock()
		return
	}
	s := &schedule{stop: make(chan struct{}), done: make(chan struct{})}
	m.sched = s
	m.publishLocked()
	m.mu.Unlock()

	m.logger.Info("monitor_started", zap.Duration("interval", m.interval))

	m.CheckHealth()
	go m.run(s)
}

// Stop cancels the schedule. In-flight probes still complete and publish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	s := m.stopLocked()
	if s != nil && !m.closed {
		m.publishLocked()
	}
	m.mu.Unlock()

	if s != nil {
		<-s.done
		m.logger.Info("monitor_stopped")
	}
}

// Toggle stops a running schedule or starts an idle one
func (m *Monitor) Toggle() {
	if m.IsMonitoring() {
		m.Stop()
		return
	}
	m.Start()
}

// IsMonitoring reports whether a schedule is active
func (m *Monitor) IsMonitoring() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sched != nil
}

// CheckHealth issues one probe outside the schedule and returns immediately.
// Overlapping probes are allowed; whichever completes last becomes current.
func (m *Monitor) CheckHealth() {
	m.issue(nil)
}

// issue starts a probe. Scheduled probes pass their schedule so a tick that
// raced with Stop is dropped.
func (m *Monitor) issue(from *schedule) {
	m.mu.Lock()
	if m.closed || (from != nil && m.sched != from) {
		m.mu.Unlock()
		return
	}
	m.inFlight++
	m.publishLocked()
	m.mu.Unlock()

	go m.probe()
}

// State returns the current read model
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

// Updates delivers the newest state after every change. A slow reader only
// misses intermediate states. The channel is closed by Close.
func (m *Monitor) Updates() <-chan State {
	return m.updates
}

// Close stops the schedule and detaches the monitor: results of probes still
// in flight are discarded and nothing is published afterwards. Safe to call twice.
func (m *Monitor) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	s := m.stopLocked()
	close(m.updates)
	m.mu.Unlock()

	if s != nil {
		<-s.done
	}
	m.logger.Info("monitor_closed")
}

func (m *Monitor) run(s *schedule) {
	defer close(s.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			m.issue(s)
		}
	}
}

func (m *Monitor) probe() {
	record := m.prober.Check(m.ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		m.logger.Debug("probe_discarded", zap.String("status", string(record.Status)))
		return
	}

	m.inFlight--
	m.current = record.Clone()
	m.publishLocked()

	fields := []zap.Field{
		zap.String("status", string(record.Status)),
		zap.Int64("latency_ms", record.Latency.Milliseconds()),
	}
	if record.Error != "" {
		m.logger.Warn("probe_failed", append(fields, zap.String("error", record.Error))...)
		return
	}
	m.logger.Debug("probe_completed", fields...)
}

// stopLocked clears the schedule and returns it, or nil if none was running
func (m *Monitor) stopLocked() *schedule {
	s := m.sched
	if s == nil {
		return nil
	}
	close(s.stop)
	m.sched = nil
	return s
}

func (m *Monitor) stateLocked() State {
	return State{
		Record:       m.current.Clone(),
		IsChecking:   m.inFlight > 0,
		IsMonitoring: m.sched != nil,
	}
}

// publishLocked replaces any unread state with the newest one
func (m *Monitor) publishLocked() {
	s := m.stateLocked()
	select {
	case m.updates <- s:
		return
	default:
	}
	select {
	case <-m.updates:
	default:
	}
	m.updates <- s
}
