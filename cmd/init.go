package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/juststeveking/iris/internal/config"
)

var (
	forceInit bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize iris configuration",
	Long: `Create a new iris configuration file at ~/.config/iris/config.yml
with sensible defaults. Edit base_url to point at your backend.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(forceInit); err != nil {
			return err
		}

		configPath, _ := config.GetConfigPath()

		if forceInit {
			fmt.Printf("✓ Configuration reset at %s\n", configPath)
		} else {
			fmt.Printf("✓ Configuration initialized at %s\n", configPath)
		}

		fmt.Println("\nSet base_url in the config file, then run:")
		fmt.Println("  iris status   # one-off health check")
		fmt.Println("  iris          # live dashboard")

		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "overwrite existing configuration")
	rootCmd.AddCommand(initCmd)
}
