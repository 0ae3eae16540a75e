package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/juststeveking/iris/internal/monitor"
)

type sent struct {
	title string
	text  string
}

func newTestNotifier(enabled bool) (*Notifier, *[]sent) {
	var log []sent
	n := NewNotifier(enabled)
	n.send = func(app, title, text, icon string) {
		log = append(log, sent{title: title, text: text})
	}
	return n, &log
}

func TestNotifyStatusChange(t *testing.T) {
	healthy := monitor.Record{Status: monitor.StatusHealthy, CheckedAt: time.Now(), Latency: 120 * time.Millisecond,
		Backend: &monitor.BackendInfo{Version: "1.0.0"}}
	unhealthy := monitor.Record{Status: monitor.StatusUnhealthy, CheckedAt: time.Now(), Error: "health check timeout after 5s"}

	tests := []struct {
		name     string
		record   monitor.Record
		previous monitor.Status
		want     bool
	}{
		{"recovery", healthy, monitor.StatusUnhealthy, true},
		{"failure after healthy", unhealthy, monitor.StatusHealthy, true},
		{"failure on first check", unhealthy, monitor.StatusUnknown, true},
		{"still healthy", healthy, monitor.StatusHealthy, false},
		{"still failing", unhealthy, monitor.StatusUnhealthy, false},
		{"first check healthy", healthy, monitor.StatusUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, log := newTestNotifier(true)
			if got := n.NotifyStatusChange(tt.record, tt.previous); got != tt.want {
				t.Errorf("NotifyStatusChange() = %v, want %v", got, tt.want)
			}
			if tt.want && len(*log) != 1 {
				t.Errorf("Expected one notification, got %d", len(*log))
			}
		})
	}
}

func TestNotificationContent(t *testing.T) {
	n, log := newTestNotifier(true)

	n.NotifyStatusChange(monitor.Record{Status: monitor.StatusUnhealthy, CheckedAt: time.Now(), Error: "health check failed: 502 Bad Gateway"}, monitor.StatusHealthy)
	n.NotifyStatusChange(monitor.Record{Status: monitor.StatusHealthy, CheckedAt: time.Now(), Latency: 1500 * time.Millisecond,
		Backend: &monitor.BackendInfo{Version: "2.1"}}, monitor.StatusUnhealthy)

	if len(*log) != 2 {
		t.Fatalf("Expected two notifications, got %d", len(*log))
	}
	if (*log)[0].text != "health check failed: 502 Bad Gateway" {
		t.Errorf("Unexpected failure text %q", (*log)[0].text)
	}
	if !strings.Contains((*log)[1].text, "1.50s") || !strings.Contains((*log)[1].text, "2.1") {
		t.Errorf("Unexpected recovery text %q", (*log)[1].text)
	}
}

func TestDisabledNotifier(t *testing.T) {
	n, log := newTestNotifier(false)

	if n.NotifyStatusChange(monitor.Record{Status: monitor.StatusUnhealthy, Error: "x"}, monitor.StatusHealthy) {
		t.Error("Expected disabled notifier to report nothing sent")
	}
	if len(*log) != 0 {
		t.Errorf("Expected no notifications, got %d", len(*log))
	}
}
