package monitor

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubProber counts calls and can hold each call until the test releases it
type stubProber struct {
	mu     sync.Mutex
	calls  int
	record Record
	block  bool
	gates  []chan Record
}

func (s *stubProber) Check(ctx context.Context) Record {
	s.mu.Lock()
	s.calls++
	rec := s.record
	var gate chan Record
	if s.block {
		gate = make(chan Record, 1)
		s.gates = append(s.gates, gate)
	}
	s.mu.Unlock()

	if gate != nil {
		return <-gate
	}
	return rec
}

func (s *stubProber) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubProber) gate(i int) chan Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gates[i]
}

func healthyRecord() Record {
	return Record{
		Status:    StatusHealthy,
		CheckedAt: time.Now(),
		Latency:   10 * time.Millisecond,
		Backend:   &BackendInfo{Status: "ok", Version: "1.0"},
		Services:  healthyServices(),
	}
}

func unhealthyRecord(msg string) Record {
	return Record{
		Status:    StatusUnhealthy,
		CheckedAt: time.Now(),
		Latency:   20 * time.Millisecond,
		Error:     msg,
		Services:  failedServices(),
	}
}

func idleOptions(interval time.Duration) Options {
	return Options{Interval: interval}
}

func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", desc)
}

func TestMonitorAutoStart(t *testing.T) {
	prober := &stubProber{record: healthyRecord()}
	m := New(context.Background(), prober, Options{Interval: time.Hour, AutoStart: true})
	defer m.Close()

	if !m.IsMonitoring() {
		t.Error("Expected monitor to be monitoring after auto start")
	}

	waitFor(t, "healthy state", func() bool { return m.State().Status == StatusHealthy })

	if calls := prober.Calls(); calls != 1 {
		t.Errorf("Expected exactly one immediate probe, got %d", calls)
	}

	state := m.State()
	if state.IsChecking {
		t.Error("Expected IsChecking false once the probe completed")
	}
	if !state.IsMonitoring {
		t.Error("Expected IsMonitoring in published state")
	}
	if state.Error != "" {
		t.Errorf("Expected no error, got %q", state.Error)
	}
}

func TestMonitorCheckOnMountWithoutAutoStart(t *testing.T) {
	prober := &stubProber{record: healthyRecord()}
	m := New(context.Background(), prober, Options{Interval: time.Hour, CheckOnMount: true})
	defer m.Close()

	waitFor(t, "mount probe", func() bool { return m.State().Status == StatusHealthy })

	if m.IsMonitoring() {
		t.Error("Expected check on mount alone not to start monitoring")
	}
	if calls := prober.Calls(); calls != 1 {
		t.Errorf("Expected one probe on mount, got %d", calls)
	}
}

func TestMonitorIdleDoesNothing(t *testing.T) {
	prober := &stubProber{record: healthyRecord()}
	m := New(context.Background(), prober, idleOptions(time.Hour))
	defer m.Close()

	time.Sleep(20 * time.Millisecond)

	if calls := prober.Calls(); calls != 0 {
		t.Errorf("Expected no probes, got %d", calls)
	}
	if m.State().Status != StatusUnknown {
		t.Errorf("Expected unknown status, got %v", m.State().Status)
	}
}

func TestMonitorStartIsIdempotent(t *testing.T) {
	prober := &stubProber{record: healthyRecord()}
	m := New(context.Background(), prober, idleOptions(100*time.Millisecond))
	defer m.Close()

	m.Start()
	m.Start()

	waitFor(t, "immediate probe", func() bool { return prober.Calls() >= 1 })
	if calls := prober.Calls(); calls != 1 {
		t.Errorf("Expected one immediate probe after two starts, got %d", calls)
	}

	// One timer gives 1 + 3 probes in 350ms; a duplicate timer would give 7
	time.Sleep(350 * time.Millisecond)
	if calls := prober.Calls(); calls < 3 || calls > 5 {
		t.Errorf("Expected a single schedule (about 4 probes), got %d", calls)
	}
}

func TestMonitorStopWhenIdle(t *testing.T) {
	prober := &stubProber{record: healthyRecord()}
	m := New(context.Background(), prober, idleOptions(time.Hour))
	defer m.Close()

	before := m.State()
	m.Stop()
	after := m.State()

	if before.IsMonitoring != after.IsMonitoring || before.IsChecking != after.IsChecking || before.Status != after.Status {
		t.Errorf("Expected Stop on an idle monitor to change nothing: %+v -> %+v", before, after)
	}

	select {
	case s := <-m.Updates():
		t.Errorf("Expected no published update, got %+v", s)
	default:
	}
}

func TestMonitorStopHaltsSchedule(t *testing.T) {
	prober := &stubProber{record: healthyRecord()}
	m := New(context.Background(), prober, Options{Interval: 30 * time.Millisecond, AutoStart: true})
	defer m.Close()

	waitFor(t, "a scheduled probe", func() bool { return prober.Calls() >= 2 })

	m.Stop()
	if m.IsMonitoring() {
		t.Fatal("Expected monitoring to stop")
	}

	calls := prober.Calls()
	time.Sleep(100 * time.Millisecond)
	if got := prober.Calls(); got != calls {
		t.Errorf("Expected no probes after Stop, got %d more", got-calls)
	}

	// Manual checks still work while idle
	m.CheckHealth()
	waitFor(t, "manual probe", func() bool { return prober.Calls() == calls+1 })
}

func TestMonitorToggle(t *testing.T) {
	prober := &stubProber{record: healthyRecord()}
	m := New(context.Background(), prober, idleOptions(time.Hour))
	defer m.Close()

	m.Toggle()
	if !m.IsMonitoring() {
		t.Fatal("Expected toggle on an idle monitor to start monitoring")
	}
	waitFor(t, "immediate probe", func() bool { return prober.Calls() == 1 })

	m.Toggle()
	if m.IsMonitoring() {
		t.Error("Expected second toggle to stop monitoring")
	}
}

func TestMonitorFailureKeepsSchedule(t *testing.T) {
	prober := &stubProber{record: unhealthyRecord("health check failed: 500 Internal Server Error")}
	m := New(context.Background(), prober, Options{Interval: 30 * time.Millisecond, AutoStart: true})
	defer m.Close()

	waitFor(t, "repeated failing probes", func() bool { return prober.Calls() >= 3 })

	state := m.State()
	if state.Status != StatusUnhealthy {
		t.Errorf("Expected unhealthy status, got %v", state.Status)
	}
	if state.Error == "" {
		t.Error("Expected error on unhealthy state")
	}
	if !state.IsMonitoring {
		t.Error("Expected failures not to stop monitoring")
	}
}

func TestMonitorIsCheckingWhileInFlight(t *testing.T) {
	prober := &stubProber{block: true}
	m := New(context.Background(), prober, idleOptions(time.Hour))
	defer m.Close()

	m.CheckHealth()
	if !m.State().IsChecking {
		t.Error("Expected IsChecking right after issuing a probe")
	}

	waitFor(t, "probe issued", func() bool { return prober.Calls() == 1 })
	prober.gate(0) <- healthyRecord()

	waitFor(t, "probe completion", func() bool { return !m.State().IsChecking })
	if m.State().Status != StatusHealthy {
		t.Errorf("Expected healthy status, got %v", m.State().Status)
	}
}

func TestMonitorLastCompletedWins(t *testing.T) {
	prober := &stubProber{block: true}
	m := New(context.Background(), prober, idleOptions(time.Hour))
	defer m.Close()

	m.CheckHealth()
	m.CheckHealth()
	waitFor(t, "two probes issued", func() bool { return prober.Calls() == 2 })

	prober.gate(1) <- healthyRecord()
	waitFor(t, "first completion", func() bool { return m.State().Status == StatusHealthy })
	if !m.State().IsChecking {
		t.Error("Expected IsChecking while the other probe is in flight")
	}

	prober.gate(0) <- unhealthyRecord("late failure")
	waitFor(t, "second completion", func() bool { return !m.State().IsChecking })

	state := m.State()
	if state.Status != StatusUnhealthy || state.Error != "late failure" {
		t.Errorf("Expected the last completed probe to win, got %v %q", state.Status, state.Error)
	}
}

func TestMonitorCloseDiscardsInFlight(t *testing.T) {
	prober := &stubProber{block: true}
	m := New(context.Background(), prober, Options{Interval: time.Hour, AutoStart: true})

	waitFor(t, "probe issued", func() bool { return prober.Calls() == 1 })
	before := m.State()

	m.Close()
	if m.IsMonitoring() {
		t.Error("Expected Close to stop monitoring")
	}

	prober.gate(0) <- healthyRecord()
	time.Sleep(50 * time.Millisecond)

	after := m.State()
	if after.Status != before.Status || after.Status != StatusUnknown {
		t.Errorf("Expected no state change after Close, got %v", after.Status)
	}

	// Drain whatever was published before Close; the channel must then be closed
	for range m.Updates() {
	}

	// Everything is a no-op once closed
	m.Start()
	m.CheckHealth()
	m.Close()
	if m.IsMonitoring() {
		t.Error("Expected Start after Close to do nothing")
	}
	if prober.Calls() != 1 {
		t.Errorf("Expected no probes after Close, got %d", prober.Calls())
	}
}

func TestMonitorUpdatesCoalesce(t *testing.T) {
	prober := &stubProber{record: healthyRecord()}
	m := New(context.Background(), prober, idleOptions(time.Hour))
	defer m.Close()

	m.CheckHealth()
	waitFor(t, "probe completion", func() bool { return m.State().Status == StatusHealthy && !m.State().IsChecking })

	// Only the newest state is buffered
	select {
	case s := <-m.Updates():
		if s.Status != StatusHealthy || s.IsChecking {
			t.Errorf("Expected newest state, got %+v", s)
		}
	default:
		t.Fatal("Expected a published update")
	}

	select {
	case s := <-m.Updates():
		t.Errorf("Expected a single buffered update, got extra %+v", s)
	default:
	}
}

func TestMonitorStateIsSnapshot(t *testing.T) {
	prober := &stubProber{record: healthyRecord()}
	m := New(context.Background(), prober, idleOptions(time.Hour))
	defer m.Close()

	m.CheckHealth()
	waitFor(t, "probe completion", func() bool { return m.State().Status == StatusHealthy && !m.State().IsChecking })

	s := m.State()
	s.Services[ServiceAPI] = StatusUnhealthy
	s.Backend.Version = "tampered"

	got := m.State()
	if got.Services[ServiceAPI] != StatusHealthy {
		t.Errorf("Expected current services to be unchanged, got %v", got.Services[ServiceAPI])
	}
	if got.Backend.Version != "1.0" {
		t.Errorf("Expected current backend version 1.0, got %q", got.Backend.Version)
	}

	published := <-m.Updates()
	published.Services[ServiceFunctions] = StatusUnknown
	if m.State().Services[ServiceFunctions] != StatusHealthy {
		t.Error("Expected published states not to share the current services map")
	}
}

func TestMonitorWithHTTPProbe(t *testing.T) {
	var mu sync.Mutex
	var hits []time.Time

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits = append(hits, time.Now())
		mu.Unlock()

		time.Sleep(50 * time.Millisecond)
		fmt.Fprint(w, `{"status":"ok","version":"1.0"}`)
	}))
	defer ts.Close()

	probe := NewProbe(ts.URL, time.Second)
	defer probe.Close()

	interval := 300 * time.Millisecond
	m := New(context.Background(), probe, Options{Interval: interval, AutoStart: true})
	defer m.Close()

	waitFor(t, "healthy state", func() bool { return m.State().Status == StatusHealthy })

	state := m.State()
	if state.Error != "" {
		t.Errorf("Expected no error, got %q", state.Error)
	}
	if state.LatencyMs() < 50 {
		t.Errorf("Expected latency of about 50ms, got %dms", state.LatencyMs())
	}
	if state.Backend == nil || state.Backend.Version != "1.0" {
		t.Errorf("Unexpected backend info: %+v", state.Backend)
	}

	waitFor(t, "scheduled probe", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(hits) >= 2
	})

	mu.Lock()
	gap := hits[1].Sub(hits[0])
	mu.Unlock()
	if gap < interval-50*time.Millisecond {
		t.Errorf("Expected the second probe one interval later, got %s", gap)
	}
}
