package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/juststeveking/iris/internal/api"
)

var statsDays int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show image analysis statistics",
	Long: `Fetch usage statistics from the backend for the last N days.

Examples:
  iris stats
  iris stats --days 30`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadOrInitConfig()
		if err != nil {
			return err
		}

		days := cfg.StatsDaysBack
		if cmd.Flags().Changed("days") {
			days = statsDays
		}
		if days < 1 {
			return fmt.Errorf("--days must be at least 1")
		}

		ctx, cancel := signalContext()
		defer cancel()

		client := api.NewClient(cfg.ResolvedBaseURL(), cfg.RequestTimeout())
		defer client.Close()

		stats, err := client.Stats(ctx, days)
		if err != nil {
			return err
		}

		s := stats.Summary
		p := stats.Percentages

		fmt.Printf("Statistics (last %d days)\n", stats.DaysBack)
		fmt.Println("─────────────────────────────────────")
		fmt.Printf("Images analyzed:    %s\n", api.FormatCount(s.TotalImagesAnalyzed))
		fmt.Printf("With faces:         %s (%.1f%%)\n", api.FormatCount(s.ImagesWithFaces), p.Faces)
		fmt.Printf("Objects detected:   %s (%.1f%%)\n", api.FormatCount(s.TotalObjectsDetected), p.Objects)
		fmt.Printf("With text:          %s (%.1f%%)\n", api.FormatCount(s.ImagesWithText), p.Text)
		fmt.Printf("Faces detected:     %s\n", api.FormatCount(s.TotalFacesDetected))
		fmt.Printf("Average confidence: %.1f%%\n", s.AverageConfidence*100)

		return nil
	},
}

func init() {
	statsCmd.Flags().IntVarP(&statsDays, "days", "d", 0, "number of days to include (defaults to stats_days_back)")
	rootCmd.AddCommand(statsCmd)
}
