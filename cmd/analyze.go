package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/juststeveking/iris/internal/api"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Upload an image and analyze it",
	Long: `Upload an image to the backend and print what the recognizer found:
a description, tags, detected objects, faces and any text.

Example:
  iris analyze ./photos/beach.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		cfg, err := loadOrInitConfig()
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open image: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}

		ctx, cancel := signalContext()
		defer cancel()

		client := api.NewClient(cfg.ResolvedBaseURL(), 0)
		defer client.Close()

		fmt.Printf("Uploading %s (%s)...\n", filepath.Base(path), humanize.Bytes(uint64(info.Size())))
		uploaded, err := client.Upload(ctx, filepath.Base(path), f)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Uploaded as %s\n", uploaded.ImageID)

		fmt.Println("Analyzing...")
		analysis, err := client.Analyze(ctx, uploaded.ImageID)
		if err != nil {
			return err
		}

		printAnalysis(analysis)
		return nil
	},
}

func printAnalysis(a *api.Analysis) {
	fmt.Println("\nAnalysis")
	fmt.Println("─────────────────────────────────────")

	if a.Description != "" {
		fmt.Printf("Description: %s\n", a.Description)
	}

	if len(a.Tags) > 0 {
		fmt.Printf("Tags:        %s\n", strings.Join(a.Tags, ", "))
	}

	if len(a.Objects) > 0 {
		fmt.Println("\nObjects:")
		for _, o := range a.Objects {
			fmt.Printf("  • %s (%d%%)\n", o.Name, api.ConfidencePercent(o.Confidence))
		}
	}

	fmt.Printf("\nFaces: %s\n", api.FaceCount(len(a.Faces)))
	for i, face := range a.Faces {
		var parts []string
		if face.Age != "" {
			parts = append(parts, "age "+face.Age)
		}
		if face.Gender != "" {
			parts = append(parts, face.Gender)
		}
		if len(parts) == 0 {
			parts = append(parts, "no details")
		}
		fmt.Printf("  %d. %s\n", i+1, strings.Join(parts, ", "))
	}

	if len(a.Text) > 0 {
		fmt.Println("\nText:")
		for _, line := range a.Text {
			fmt.Printf("  %s\n", line)
		}
	}
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
