package monitor

import (
	"fmt"
	"maps"
	"time"
)

// Status represents the health status of the backend or one of its services
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusUnknown   Status = "unknown"
)

// Service names reported in Record.Services
const (
	ServiceAPI       = "api"
	ServiceFunctions = "functions"
)

// BackendInfo is the metadata returned by a successful health endpoint call
type BackendInfo struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// Record is an immutable snapshot of one probe attempt.
//
// A zero Record (Status unknown, zero CheckedAt) means no probe has completed yet.
// Unhealthy records always carry Error and never Backend; healthy records never carry Error.
type Record struct {
	Status    Status            `json:"status"`
	CheckedAt time.Time         `json:"checked_at"`
	Latency   time.Duration     `json:"-"`
	Error     string            `json:"error,omitempty"`
	Backend   *BackendInfo      `json:"backend,omitempty"`
	Services  map[string]Status `json:"services,omitempty"`
}

// UnknownRecord returns the record held before the first probe completes
func UnknownRecord() Record {
	return Record{Status: StatusUnknown}
}

// Healthy reports the tri-state health as (value, known)
func (r Record) Healthy() (healthy bool, known bool) {
	switch r.Status {
	case StatusHealthy:
		return true, true
	case StatusUnhealthy:
		return false, true
	default:
		return false, false
	}
}

// Clone returns a copy that shares no map or pointer with r
func (r Record) Clone() Record {
	c := r
	c.Services = maps.Clone(r.Services)
	if r.Backend != nil {
		b := *r.Backend
		c.Backend = &b
	}
	return c
}

// Completed reports whether the record came from a finished probe
func (r Record) Completed() bool {
	return !r.CheckedAt.IsZero()
}

// LatencyMs returns the round-trip time in whole milliseconds, or -1 before the first probe
func (r Record) LatencyMs() int64 {
	if !r.Completed() {
		return -1
	}
	return r.Latency.Milliseconds()
}

// StatusColor classifies the record for display: gray, green or red
func (r Record) StatusColor() string {
	switch r.Status {
	case StatusHealthy:
		return "green"
	case StatusUnhealthy:
		return "red"
	default:
		return "gray"
	}
}

// StatusText returns Unknown, Healthy or Unhealthy
func (r Record) StatusText() string {
	switch r.Status {
	case StatusHealthy:
		return "Healthy"
	case StatusUnhealthy:
		return "Unhealthy"
	default:
		return "Unknown"
	}
}

// FormattedLatency renders the latency, or "Unknown" before the first probe
func (r Record) FormattedLatency() string {
	if !r.Completed() {
		return "Unknown"
	}
	return FormatLatency(r.Latency)
}

// FormatLatency renders durations under a second as "{n}ms" and longer ones
// as seconds with two decimals, rounding half up on whole milliseconds.
func FormatLatency(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	centis := (ms + 5) / 10
	return fmt.Sprintf("%d.%02ds", centis/100, centis%100)
}

func healthyServices() map[string]Status {
	return map[string]Status{
		ServiceAPI:       StatusHealthy,
		ServiceFunctions: StatusHealthy,
	}
}

func failedServices() map[string]Status {
	return map[string]Status{
		ServiceAPI:       StatusUnhealthy,
		ServiceFunctions: StatusUnknown,
	}
}
