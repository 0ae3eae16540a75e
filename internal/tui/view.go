package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/juststeveking/iris/internal/api"
	"github.com/juststeveking/iris/internal/monitor"
)

var (
	colorAccent    = lipgloss.Color("#04D9FF") // Neon Cyan
	colorHealthy   = lipgloss.Color("#00FF94") // Neon Green
	colorUnhealthy = lipgloss.Color("#FF0055") // Neon Red
	colorChecking  = lipgloss.Color("#FFD700") // Gold
	colorUnknown   = lipgloss.Color("#a9b1d6") // Gray
	colorMuted     = lipgloss.Color("#565f89") // Muted Blue
	colorSubtle    = lipgloss.Color("#24283b") // Dark Blue
	colorCard      = lipgloss.Color("#16161e") // Very Dark Blue
	colorText      = lipgloss.Color("#c0caf5") // Light Blue/White

	// Title style
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent).
			MarginBottom(1)

	// Subtitle/header style
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent).
			MarginTop(1).
			MarginBottom(1)

	// Base card style (border color will be overridden)
	baseCardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Background(colorCard).
			Padding(0, 1).
			MarginRight(1).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Width(14)

	valueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorText)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorUnhealthy)

	secondaryStyle = lipgloss.NewStyle().
			Foreground(colorMuted)
)

// statusColors maps the record's color classification to the palette
var statusColors = map[string]lipgloss.Color{
	"green": colorHealthy,
	"red":   colorUnhealthy,
	"gray":  colorUnknown,
}

// View renders the dashboard
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	// Render form if active
	if m.showForm {
		return lipgloss.Place(
			m.width,
			m.height,
			lipgloss.Center,
			lipgloss.Center,
			lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorAccent).
				Padding(1, 2).
				Render(m.form.View()),
		)
	}

	width := m.width
	if width < 40 {
		width = 80
	}

	cardWidth := (width - 4) / 2
	stack := false
	if cardWidth < 36 {
		cardWidth = width - 4
		stack = true
	}

	var b strings.Builder

	b.WriteString(m.renderHeader(width))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("System Health"))
	b.WriteString("\n")

	health := m.renderHealthCard(cardWidth)
	services := m.renderServicesCard(cardWidth)
	if stack {
		b.WriteString(lipgloss.JoinVertical(lipgloss.Left, health, services))
	} else {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, health, services))
	}
	b.WriteString("\n")

	if m.statsSrc != nil {
		b.WriteString(headerStyle.Render(fmt.Sprintf("Usage Statistics (%dd)", m.cfg.StatsDaysBack)))
		b.WriteString("\n")
		b.WriteString(m.renderStats(width - 4))
		b.WriteString("\n")
	}

	b.WriteString(m.renderFooter(width))
	b.WriteString("\n")

	return b.String()
}

// renderHeader renders the title with the overall status on the right
func (m Model) renderHeader(width int) string {
	var b strings.Builder

	titleRendered := titleStyle.Render("IRIS")

	indicator := lipgloss.NewStyle().
		Foreground(statusColors[m.health.StatusColor()]).
		Bold(true).
		Render("● " + m.health.StatusText())

	availableWidth := width - lipgloss.Width(titleRendered) - lipgloss.Width(indicator) - 2
	if availableWidth < 0 {
		availableWidth = 0
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center,
		titleRendered,
		strings.Repeat(" ", availableWidth),
		indicator,
	))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(colorSubtle).Render(strings.Repeat("━", width)))

	return b.String()
}

// renderHealthCard renders the current health record
func (m Model) renderHealthCard(width int) string {
	var b strings.Builder
	s := m.health

	color := statusColors[s.StatusColor()]

	var icon string
	if s.IsChecking {
		icon = m.spinner.View()
	} else {
		icon = statusIcon(s.Status)
	}
	b.WriteString(fmt.Sprintf("%s %s", icon, lipgloss.NewStyle().Foreground(color).Bold(true).Render(s.StatusText())))
	if s.IsChecking {
		b.WriteString(secondaryStyle.Render("  checking..."))
	}
	b.WriteString("\n\n")

	b.WriteString(row("Backend", m.cfg.ResolvedBaseURL()))
	b.WriteString(row("Response", s.FormattedLatency()))

	lastChecked := "Never"
	if s.Completed() {
		lastChecked = humanize.Time(s.CheckedAt)
	}
	b.WriteString(row("Last checked", lastChecked))

	if s.IsMonitoring {
		b.WriteString(row("Monitoring", fmt.Sprintf("every %s", m.cfg.Interval())))
	} else {
		b.WriteString(row("Monitoring", "paused"))
	}

	if s.Backend != nil {
		if s.Backend.Version != "" {
			b.WriteString(row("Version", s.Backend.Version))
		}
		if s.Backend.Status != "" {
			b.WriteString(row("Reported", s.Backend.Status))
		}
	}

	if s.Error != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(truncate(s.Error, width-4)))
	}

	return baseCardStyle.
		Width(width).
		BorderForeground(color).
		Render(strings.TrimRight(b.String(), "\n"))
}

// renderServicesCard renders the per-service statuses
func (m Model) renderServicesCard(width int) string {
	var b strings.Builder

	b.WriteString(valueStyle.Render("Services"))
	b.WriteString("\n\n")

	services := m.health.Services
	if len(services) == 0 {
		b.WriteString(secondaryStyle.Render("Waiting for first check..."))
	} else {
		names := make([]string, 0, len(services))
		for name := range services {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			status := services[name]
			b.WriteString(fmt.Sprintf("%s %s %s\n",
				lipgloss.NewStyle().Foreground(serviceColor(status)).Render(statusIcon(status)),
				labelStyle.Render(strings.ToUpper(name[:1])+name[1:]),
				lipgloss.NewStyle().Foreground(serviceColor(status)).Render(string(status)),
			))
		}
	}

	return baseCardStyle.
		Width(width).
		BorderForeground(colorSubtle).
		Render(strings.TrimRight(b.String(), "\n"))
}

// renderStats renders the usage statistics panel
func (m Model) renderStats(width int) string {
	var b strings.Builder

	switch {
	case m.stats == nil && m.statsErr == "":
		b.WriteString(secondaryStyle.Render("⟳ Loading statistics..."))
	case m.statsErr != "" && m.stats == nil:
		b.WriteString(errorStyle.Render("Unable to load statistics"))
		b.WriteString("\n")
		b.WriteString(secondaryStyle.Render(truncate(m.statsErr, width-4) + " (r to retry)"))
	default:
		st := m.stats
		b.WriteString(row("Images", api.FormatCount(st.Summary.TotalImagesAnalyzed)+" analyzed"))
		b.WriteString(row("With faces", fmt.Sprintf("%s (%.1f%%)", api.FormatCount(st.Summary.ImagesWithFaces), st.Percentages.Faces)))
		b.WriteString(row("Objects", fmt.Sprintf("%s (%.1f%%)", api.FormatCount(st.Summary.TotalObjectsDetected), st.Percentages.Objects)))
		b.WriteString(row("With text", fmt.Sprintf("%s (%.1f%%)", api.FormatCount(st.Summary.ImagesWithText), st.Percentages.Text)))
		b.WriteString(row("Confidence", fmt.Sprintf("%.1f%%", st.Summary.AverageConfidence*100)))
		b.WriteString(row("Total faces", api.FormatCount(st.Summary.TotalFacesDetected)))

		updated := "updated " + humanize.Time(m.statsUpdated)
		if m.statsLoading {
			updated = "refreshing..."
		}
		b.WriteString(secondaryStyle.Render(updated))
		if m.statsErr != "" {
			b.WriteString("\n")
			b.WriteString(errorStyle.Render(truncate("Last refresh failed: "+m.statsErr, width-4)))
		}
	}

	return baseCardStyle.
		Width(width).
		BorderForeground(colorSubtle).
		Render(strings.TrimRight(b.String(), "\n"))
}

// renderFooter renders the status bar with key help
func (m Model) renderFooter(width int) string {
	footerStyle := lipgloss.NewStyle().
		Foreground(colorMuted).
		BorderTop(true).
		BorderForeground(colorSubtle).
		Width(width).
		PaddingTop(1)

	timeStr := time.Now().Format("15:04:05")
	helpStr := "c check • m pause/resume • r stats • s settings • y copy • q quit"

	left := fmt.Sprintf(" %s │ %s", timeStr, helpStr)
	right := ""
	if m.flash != "" && time.Since(m.flashTime) < 3*time.Second {
		right = m.flash + " "
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	return footerStyle.Render(left + strings.Repeat(" ", gap) + right)
}

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value) + "\n"
}

// statusIcon returns the icon for a status
func statusIcon(status monitor.Status) string {
	switch status {
	case monitor.StatusHealthy:
		return "✓"
	case monitor.StatusUnhealthy:
		return "✗"
	default:
		return "?"
	}
}

func serviceColor(status monitor.Status) lipgloss.Color {
	switch status {
	case monitor.StatusHealthy:
		return colorHealthy
	case monitor.StatusUnhealthy:
		return colorUnhealthy
	default:
		return colorUnknown
	}
}

func truncate(s string, max int) string {
	if max < 4 || len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
