package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/juststeveking/iris/internal/httpapi"
	"github.com/juststeveking/iris/internal/monitor"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check backend health once",
	Long: `Run a single health check against {base_url}/api/health and print the result.
Exits with status 1 when the backend is unhealthy.

Examples:
  iris status
  iris status --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadOrInitConfig()
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		probe := monitor.NewProbe(cfg.ResolvedBaseURL(), cfg.RequestTimeout())
		defer probe.Close()

		record := probe.Check(ctx)

		if statusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(httpapi.NewStateView(monitor.State{Record: record})); err != nil {
				return fmt.Errorf("failed to encode status: %w", err)
			}
		} else {
			printRecord(probe.Endpoint(), record)
		}

		if record.Status != monitor.StatusHealthy {
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true
			return fmt.Errorf("backend unhealthy")
		}
		return nil
	},
}

func printRecord(endpoint string, r monitor.Record) {
	icon := "✓"
	if r.Status != monitor.StatusHealthy {
		icon = "✗"
	}

	fmt.Printf("%s %s\n", icon, r.StatusText())
	fmt.Println("─────────────────────────────────────")
	fmt.Printf("Endpoint:      %s\n", endpoint)
	fmt.Printf("Response Time: %s\n", r.FormattedLatency())
	fmt.Printf("Checked At:    %s\n", r.CheckedAt.Format("2006-01-02 15:04:05"))

	if r.Backend != nil {
		fmt.Printf("Version:       %s\n", r.Backend.Version)
		fmt.Printf("Reported:      %s\n", r.Backend.Status)
		if r.Backend.Timestamp != "" {
			fmt.Printf("Server Time:   %s\n", r.Backend.Timestamp)
		}
	}

	if r.Error != "" {
		fmt.Printf("Error:         %s\n", r.Error)
	}

	if len(r.Services) > 0 {
		fmt.Println("\nServices:")
		names := make([]string, 0, len(r.Services))
		for name := range r.Services {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-10s %s\n", name, r.Services[name])
		}
	}
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(statusCmd)
}
