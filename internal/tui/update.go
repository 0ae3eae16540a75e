package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"go.uber.org/zap"

	"github.com/juststeveking/iris/internal/config"
	"github.com/juststeveking/iris/internal/monitor"
)

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Always update window size
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = msg.Width
		m.height = msg.Height
	}

	// Handle form updates if form is active
	if m.showForm {
		if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
			m.showForm = false
			m.form = nil
			return m, nil
		}

		// Monitor and stats traffic keeps flowing behind the form
		switch msg.(type) {
		case healthMsg, monitorClosedMsg, statsMsg, statsTickMsg, tickMsg, spinner.TickMsg, clipboardMsg:
			return m.handle(msg)
		}

		form, cmd := m.form.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.form = f
		}

		switch m.form.State {
		case huh.StateCompleted:
			reload := m.applySettings()
			m.showForm = false
			m.form = nil
			return m, tea.Batch(cmd, reload)
		case huh.StateAborted:
			m.showForm = false
			m.form = nil
		}

		return m, cmd
	}

	return m.handle(msg)
}

func (m Model) handle(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			m.Close()
			return m, tea.Quit
		case "c":
			m.monitor.CheckHealth()
		case "m":
			m.monitor.Toggle()
			if m.monitor.IsMonitoring() {
				m.setFlash("Monitoring resumed")
			} else {
				m.setFlash("Monitoring paused")
			}
		case "r":
			if m.statsSrc != nil && !m.statsLoading {
				m.statsLoading = true
				return m, fetchStats(m.statsSrc, m.cfg.StatsDaysBack)
			}
		case "s":
			m.showForm = true
			m.initSettingsForm()
			return m, m.form.Init()
		case "y":
			return m, copyToClipboard(statusLine(m.health))
		}

	case healthMsg:
		if msg.src != m.monitor {
			// Stale state from a monitor that has been replaced
			return m, nil
		}
		m.applyHealth(msg.state)
		return m, waitForHealth(m.monitor)

	case monitorClosedMsg:
		return m, nil

	case statsMsg:
		m.statsLoading = false
		if msg.err != nil {
			m.statsErr = msg.err.Error()
			m.logger.Warn("stats_fetch_failed", zap.Error(msg.err))
			return m, nil
		}
		m.stats = msg.stats
		m.statsErr = ""
		m.statsUpdated = time.Now()

	case statsTickMsg:
		if m.statsSrc == nil {
			return m, nil
		}
		cmds := []tea.Cmd{scheduleStats(m.cfg.StatsRefresh())}
		if !m.statsLoading {
			m.statsLoading = true
			cmds = append(cmds, fetchStats(m.statsSrc, m.cfg.StatsDaysBack))
		}
		return m, tea.Batch(cmds...)

	case clipboardMsg:
		m.setFlash(msg.message)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		return m, doTick()
	}

	return m, nil
}

// applyHealth stores a published state and reacts to status transitions
func (m *Model) applyHealth(state monitor.State) {
	previous := m.health
	m.health = state

	if !state.Completed() || state.CheckedAt.Equal(previous.CheckedAt) {
		return
	}
	if state.Status != previous.Status {
		m.logger.Info("health_status_changed",
			zap.String("from", string(previous.Status)),
			zap.String("to", string(state.Status)),
			zap.String("error", state.Error),
		)
		m.notifier.NotifyStatusChange(state.Record, previous.Status)
	}
}

// applySettings saves the form values and remounts the monitor with them
func (m *Model) applySettings() tea.Cmd {
	d := m.formData
	updated := *m.cfg
	updated.BaseURL = strings.TrimSpace(d.BaseURL)
	updated.CheckInterval = strings.TrimSpace(d.CheckInterval)
	updated.Timeout = strings.TrimSpace(d.Timeout)
	updated.AutoStart = &d.AutoStart
	updated.CheckOnMount = &d.CheckOnMount
	updated.Notifications = d.Notifications

	if err := updated.Validate(); err != nil {
		m.setFlash(fmt.Sprintf("Settings not applied: %v", err))
		return nil
	}

	if err := config.SaveConfig(&updated); err != nil {
		m.logger.Warn("config_save_failed", zap.Error(err))
		m.setFlash(fmt.Sprintf("Settings applied but not saved: %v", err))
	} else {
		m.setFlash("Settings saved")
	}

	m.monitor.Close()
	m.cfg = &updated
	m.monitor = m.newMonitor(m.cfg)
	m.health = m.monitor.State()
	m.notifier = m.notifier.WithEnabled(updated.Notifications)

	m.logger.Info("monitor_remounted",
		zap.String("base_url", updated.ResolvedBaseURL()),
		zap.Duration("interval", updated.Interval()),
	)

	return waitForHealth(m.monitor)
}

// initSettingsForm initializes the form for editing monitor settings
func (m *Model) initSettingsForm() {
	m.formData = &FormData{
		BaseURL:       m.cfg.BaseURL,
		CheckInterval: m.cfg.CheckInterval,
		Timeout:       m.cfg.Timeout,
		AutoStart:     m.cfg.AutoStartEnabled(),
		CheckOnMount:  m.cfg.CheckOnMountEnabled(),
		Notifications: m.cfg.Notifications,
	}
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Backend URL").
				Value(&m.formData.BaseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Check Interval").
				Description("Go duration, e.g. 30s or 1m").
				Value(&m.formData.CheckInterval).
				Validate(validateDuration),
			huh.NewInput().
				Title("Request Timeout").
				Value(&m.formData.Timeout).
				Validate(validateDuration),
		).Title("Health Monitor (Esc to cancel)"),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Start monitoring automatically?").
				Value(&m.formData.AutoStart),
			huh.NewConfirm().
				Title("Check health when the dashboard opens?").
				Value(&m.formData.CheckOnMount),
			huh.NewConfirm().
				Title("Desktop notifications on status change?").
				Value(&m.formData.Notifications),
		).Title("Behaviour"),
	).WithTheme(huh.ThemeCatppuccin()).WithWidth(70).WithShowHelp(true)
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("not a duration")
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateURL(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("required")
	}
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") && !strings.HasPrefix(s, "${") {
		return fmt.Errorf("must start with http:// or https://")
	}
	return nil
}

func (m *Model) setFlash(msg string) {
	m.flash = msg
	m.flashTime = time.Now()
}

// statusLine summarizes the current health for the clipboard
func statusLine(s monitor.State) string {
	line := fmt.Sprintf("Backend %s (%s)", s.StatusText(), s.FormattedLatency())
	if s.Completed() {
		line += " at " + s.CheckedAt.Format(time.RFC3339)
	}
	if s.Error != "" {
		line += ": " + s.Error
	}
	return line
}

func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(text); err != nil {
			return clipboardMsg{success: false, message: "Clipboard unavailable"}
		}
		return clipboardMsg{success: true, message: "Copied status to clipboard"}
	}
}
