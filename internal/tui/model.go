package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/juststeveking/iris/internal/api"
	"github.com/juststeveking/iris/internal/config"
	"github.com/juststeveking/iris/internal/monitor"
	"github.com/juststeveking/iris/internal/notify"
)

// MonitorFactory builds a health monitor for the given configuration. The
// dashboard owns every monitor it creates and closes it on quit or reconfigure.
type MonitorFactory func(cfg *config.Config) *monitor.Monitor

// StatsSource loads usage statistics for the stats panel
type StatsSource interface {
	Stats(ctx context.Context, daysBack int) (*api.Stats, error)
}

// Model represents the TUI application state
type Model struct {
	cfg        *config.Config
	newMonitor MonitorFactory
	monitor    *monitor.Monitor
	statsSrc   StatsSource
	notifier   *notify.Notifier
	logger     *zap.Logger

	health  monitor.State
	spinner spinner.Model

	stats        *api.Stats
	statsErr     string
	statsLoading bool
	statsUpdated time.Time

	width    int
	height   int
	quitting bool

	flash     string
	flashTime time.Time

	// Form state
	form     *huh.Form
	showForm bool
	formData *FormData
}

// FormData holds the data for the settings form
type FormData struct {
	BaseURL       string
	CheckInterval string
	Timeout       string
	AutoStart     bool
	CheckOnMount  bool
	Notifications bool
}

// Deps bundles what the dashboard needs from the outside
type Deps struct {
	Config     *config.Config
	NewMonitor MonitorFactory
	Stats      StatsSource
	Notifier   *notify.Notifier
	Logger     *zap.Logger
}

// NewModel creates a new TUI model and mounts its health monitor
func NewModel(d Deps) Model {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := d.Notifier
	if notifier == nil {
		notifier = notify.NewNotifier(false)
	}

	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = lipgloss.NewStyle().Foreground(colorChecking)

	mon := d.NewMonitor(d.Config)

	return Model{
		cfg:          d.Config,
		newMonitor:   d.NewMonitor,
		monitor:      mon,
		statsSrc:     d.Stats,
		notifier:     notifier,
		logger:       logger,
		health:       mon.State(),
		spinner:      s,
		statsLoading: d.Stats != nil,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		waitForHealth(m.monitor),
		m.spinner.Tick,
		doTick(),
	}
	if m.statsSrc != nil {
		cmds = append(cmds, fetchStats(m.statsSrc, m.cfg.StatsDaysBack), scheduleStats(m.cfg.StatsRefresh()))
	}
	return tea.Batch(cmds...)
}

// Close tears down the monitor. Safe to call more than once.
func (m Model) Close() {
	if m.monitor != nil {
		m.monitor.Close()
	}
}

// healthMsg carries a published monitor state. src identifies the monitor so
// states from a monitor replaced by the settings form are ignored.
type healthMsg struct {
	src   *monitor.Monitor
	state monitor.State
}

// monitorClosedMsg is sent when a monitor's update channel closes
type monitorClosedMsg struct {
	src *monitor.Monitor
}

// waitForHealth listens for the next monitor state
func waitForHealth(mon *monitor.Monitor) tea.Cmd {
	return func() tea.Msg {
		state, ok := <-mon.Updates()
		if !ok {
			return monitorClosedMsg{src: mon}
		}
		return healthMsg{src: mon, state: state}
	}
}

// statsMsg carries the result of a stats fetch
type statsMsg struct {
	stats *api.Stats
	err   error
}

// statsTickMsg triggers a periodic stats refresh
type statsTickMsg time.Time

func fetchStats(src StatsSource, daysBack int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		stats, err := src.Stats(ctx, daysBack)
		return statsMsg{stats: stats, err: err}
	}
}

func scheduleStats(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg {
		return statsTickMsg(t)
	})
}

// tickMsg is sent on every tick
type tickMsg time.Time

// doTick returns a command that waits for the next tick
func doTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// clipboardMsg is sent when clipboard operation completes
type clipboardMsg struct {
	success bool
	message string
}
