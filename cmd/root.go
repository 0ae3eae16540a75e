package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/juststeveking/iris/internal/api"
	"github.com/juststeveking/iris/internal/config"
	"github.com/juststeveking/iris/internal/logging"
	"github.com/juststeveking/iris/internal/monitor"
	"github.com/juststeveking/iris/internal/notify"
	"github.com/juststeveking/iris/internal/tui"
)

// version is set at build time with -ldflags "-X github.com/juststeveking/iris/cmd.version=..."
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "iris",
	Short: "Image recognition client with a live backend health dashboard",
	Long: `Iris talks to the image recognition backend from the terminal.

Run it without arguments to open the health dashboard: it checks the backend's
/api/health endpoint on a fixed interval, shows latency and service status, and
summarizes usage statistics. Use 'iris analyze' to upload and analyze an image.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadOrInitConfig()
		if err != nil {
			return err
		}

		// The TUI owns the terminal, so logs only go to the file
		logger, err := commandLogger(cfg, false)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		// Probes run for the life of the process; Ctrl+C from outside the TUI cancels them
		ctx, cancel := signalContext()
		defer cancel()

		client := api.NewClient(cfg.ResolvedBaseURL(), cfg.RequestTimeout())
		defer client.Close()

		var probes []*monitor.Probe
		defer func() {
			for _, p := range probes {
				p.Close()
			}
		}()

		model := tui.NewModel(tui.Deps{
			Config: cfg,
			NewMonitor: func(c *config.Config) *monitor.Monitor {
				p := monitor.NewProbe(c.ResolvedBaseURL(), c.RequestTimeout())
				probes = append(probes, p)
				return monitor.New(ctx, p, monitorOptions(c, logger))
			},
			Stats:    client,
			Notifier: notify.NewNotifier(cfg.Notifications),
			Logger:   logger,
		})
		defer model.Close()

		logger.Info("dashboard_started", zap.String("base_url", cfg.ResolvedBaseURL()), zap.String("version", version))

		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
		final, err := p.Run()
		if m, ok := final.(tui.Model); ok {
			m.Close()
		}
		if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("failed to start TUI: %w", err)
		}

		logger.Info("dashboard_stopped")
		return nil
	},
}

func Execute() {
	monitor.UserAgent = "iris/" + version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadOrInitConfig loads the config file, creating the default one on first run
func loadOrInitConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err == nil {
		return cfg, nil
	}

	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load config: %w (run 'iris init --force' to reset it)", err)
	}

	fmt.Println("Config not found, creating default config...")
	if initErr := config.InitConfig(false); initErr != nil {
		return nil, fmt.Errorf("failed to create default config: %w", initErr)
	}

	cfg, err = config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config after creation: %w", err)
	}
	return cfg, nil
}

func monitorOptions(cfg *config.Config, logger *zap.Logger) monitor.Options {
	return monitor.Options{
		Interval:     cfg.Interval(),
		AutoStart:    cfg.AutoStartEnabled(),
		CheckOnMount: cfg.CheckOnMountEnabled(),
		Logger:       logger.Named("monitor"),
	}
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// commandLogger logs to the rotating file and, when verbose, to stderr
func commandLogger(cfg *config.Config, verbose bool) (*zap.Logger, error) {
	var console io.Writer
	if verbose {
		console = os.Stderr
	}
	logger, err := logging.NewLogger(cfg.LogDirectory(), cfg.LogLevel, console)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
