package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/juststeveking/iris/internal/config"
	"github.com/juststeveking/iris/internal/monitor"
)

var configShowCmd = &cobra.Command{
	Use:   "config:show",
	Short: "Show the active configuration",
	Long: `Display the configuration iris will use, with defaults filled in
and environment placeholders in base_url expanded.

Example:
  iris config:show`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		configPath, _ := config.GetConfigPath()

		fmt.Printf("Config: %s\n", configPath)
		fmt.Println("─────────────────────────────────────")
		fmt.Printf("Backend:          %s\n", cfg.ResolvedBaseURL())
		fmt.Printf("Health Endpoint:  %s%s\n", cfg.ResolvedBaseURL(), monitor.HealthPath)
		fmt.Printf("Check Interval:   %s\n", cfg.Interval())
		fmt.Printf("Timeout:          %s\n", cfg.RequestTimeout())
		fmt.Printf("Auto Start:       %t\n", cfg.AutoStartEnabled())
		fmt.Printf("Check On Mount:   %t\n", cfg.CheckOnMountEnabled())
		fmt.Printf("Notifications:    %t\n", cfg.Notifications)

		fmt.Println("\nStatistics:")
		fmt.Printf("  Refresh:        %s\n", cfg.StatsRefresh())
		fmt.Printf("  Window:         %d days\n", cfg.StatsDaysBack)

		fmt.Println("\nLogging:")
		fmt.Printf("  Directory:      %s\n", cfg.LogDirectory())
		fmt.Printf("  Level:          %s\n", cfg.LogLevel)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(configShowCmd)
}
