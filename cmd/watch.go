package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/juststeveking/iris/internal/httpapi"
	"github.com/juststeveking/iris/internal/metrics"
	"github.com/juststeveking/iris/internal/monitor"
	"github.com/juststeveking/iris/internal/notify"
)

var (
	watchListen  string
	watchVerbose bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor backend health without the dashboard",
	Long: `Run the health monitor headless, logging every state change.

With --listen, the current state is served at /state and probe metrics in the
prometheus text format at /metrics.

Examples:
  iris watch
  iris watch --verbose
  iris watch --listen :9110`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		cfg, err := loadOrInitConfig()
		if err != nil {
			return err
		}

		logger, err := commandLogger(cfg, watchVerbose)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, syncLogger(logger)) }()

		ctx, cancel := signalContext()
		defer cancel()

		probe := monitor.NewProbe(cfg.ResolvedBaseURL(), cfg.RequestTimeout())
		defer probe.Close()

		m := metrics.New()
		opts := monitorOptions(cfg, logger)
		opts.AutoStart = true

		mon := monitor.New(ctx, m.Instrument(probe), opts)
		notifier := notify.NewNotifier(cfg.Notifications)

		var srv *http.Server
		serveErr := make(chan error, 1)
		if watchListen != "" {
			srv = &http.Server{
				Addr:              watchListen,
				Handler:           httpapi.NewServer(logger.Named("http"), mon, m.Handler()).Router(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
			}()
			logger.Info("http_listening", zap.String("addr", watchListen))
		}

		logger.Info("watch_started",
			zap.String("endpoint", probe.Endpoint()),
			zap.Duration("interval", cfg.Interval()),
		)

		runErr := watchLoop(ctx, mon, notifier, logger, serveErr)

		mon.Close()
		if srv != nil {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			runErr = multierr.Append(runErr, srv.Shutdown(shutdownCtx))
		}

		logger.Info("watch_stopped")
		return runErr
	},
}

// watchLoop logs every published state until ctx is done or the server fails
func watchLoop(ctx context.Context, mon *monitor.Monitor, n *notify.Notifier, logger *zap.Logger, serveErr <-chan error) error {
	previous := mon.State().Status
	var lastChecked time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-serveErr:
			return fmt.Errorf("http server failed: %w", err)
		case s, ok := <-mon.Updates():
			if !ok {
				return nil
			}
			if !s.Completed() || s.CheckedAt.Equal(lastChecked) {
				continue
			}
			lastChecked = s.CheckedAt

			fields := []zap.Field{
				zap.String("status", string(s.Status)),
				zap.Int64("latency_ms", s.LatencyMs()),
				zap.Bool("monitoring", s.IsMonitoring),
			}
			if s.Error != "" {
				fields = append(fields, zap.String("error", s.Error))
			}
			logger.Info("health_state", fields...)

			n.NotifyStatusChange(s.Record, previous)
			previous = s.Status
		}
	}
}

// syncLogger flushes the logger. Syncing a terminal stderr fails with EINVAL or ENOTTY, which is ignored.
func syncLogger(logger *zap.Logger) error {
	err := logger.Sync()
	if err == nil || errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return fmt.Errorf("failed to flush logs: %w", err)
}

func init() {
	watchCmd.Flags().StringVar(&watchListen, "listen", "", "address to serve /state and /metrics on (e.g. :9110)")
	watchCmd.Flags().BoolVarP(&watchVerbose, "verbose", "v", false, "also log to stderr")
	rootCmd.AddCommand(watchCmd)
}
