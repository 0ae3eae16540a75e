package notify

import (
	"fmt"

	"github.com/martinlindhe/notify"

	"github.com/juststeveking/iris/internal/monitor"
)

const appName = "Iris"

// Notifier sends desktop notifications when the backend goes down or recovers
type Notifier struct {
	enabled bool
	send    func(appName, title, text, iconPath string)
}

// NewNotifier creates a new notifier instance
func NewNotifier(enabled bool) *Notifier {
	return &Notifier{
		enabled: enabled,
		send:    notify.Notify,
	}
}

// NotifyFailure sends a desktop notification when a health check fails
func (n *Notifier) NotifyFailure(record monitor.Record) {
	if !n.enabled {
		return
	}

	title := "⚠️  Backend Health Check Failed"
	n.send(appName, title, record.Error, "")
}

// NotifyRecovery sends a desktop notification when the backend recovers
func (n *Notifier) NotifyRecovery(record monitor.Record) {
	if !n.enabled {
		return
	}

	title := "✅ Backend Recovered"
	message := fmt.Sprintf("Response time: %s", record.FormattedLatency())
	if record.Backend != nil && record.Backend.Version != "" {
		message = fmt.Sprintf("%s (version %s)", message, record.Backend.Version)
	}

	n.send(appName, title, message, "")
}

// NotifyStatusChange notifies on healthy→unhealthy, unknown→unhealthy and
// unhealthy→healthy transitions. It reports whether a notification was sent.
func (n *Notifier) NotifyStatusChange(record monitor.Record, previous monitor.Status) bool {
	if !n.enabled {
		return false
	}

	// Service recovered (was unhealthy, now healthy)
	if record.Status == monitor.StatusHealthy && previous == monitor.StatusUnhealthy {
		n.NotifyRecovery(record)
		return true
	}

	// Service failed (was healthy or unknown, now unhealthy)
	if record.Status == monitor.StatusUnhealthy && (previous == monitor.StatusHealthy || previous == monitor.StatusUnknown) {
		n.NotifyFailure(record)
		return true
	}

	return false
}

// WithEnabled returns a copy of the notifier switched on or off
func (n *Notifier) WithEnabled(enabled bool) *Notifier {
	c := *n
	c.enabled = enabled
	return &c
}
