package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/facegallery/facegallery/internal/pipeline"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Detect faces in all photos and group them into people",
	Long: `Scan the photo source, detect faces in every photo and cluster the
face embeddings into people. Results are cached, so an unchanged photo
collection is not processed twice.

Examples:
  # Process the configured photo folder
  facegallery process

  # Recompute even when the cache is still valid
  facegallery process --force

  # Use different concurrency
  facegallery process --concurrency 8

  # Only look at the first 100 photos
  facegallery process --limit 100`,
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().Bool("force", false, "Recompute even when the cached result is valid")
	processCmd.Flags().Int("concurrency", 4, "Number of parallel workers")
	processCmd.Flags().Int("limit", 0, "Limit number of photos to process (0 = no limit)")
}

func runProcess(cmd *cobra.Command, args []string) error {
	force := mustGetBool(cmd, "force")
	concurrency := mustGetInt(cmd, "concurrency")
	limit := mustGetInt(cmd, "limit")

	comp, err := loadComponents()
	if err != nil {
		return err
	}

	det, err := comp.detector()
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(comp.src, det, comp.store,
		comp.pipelineOptions(force, concurrency, limit, true))

	rec, stats, err := runner.Run(context.Background())
	if err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}

	fmt.Println()
	if stats.FromCache {
		fmt.Println("Photo collection unchanged, reused cached result")
	}
	fmt.Printf("Photos: %d processed", stats.Processed)
	if len(stats.Skipped) > 0 {
		fmt.Printf(", %d skipped", len(stats.Skipped))
	}
	fmt.Println()
	fmt.Printf("Faces found: %d\n", stats.FacesFound)
	fmt.Printf("People identified: %d (%d faces unmatched)\n", stats.People, stats.NoiseFaces)
	fmt.Printf("Snapshot fingerprint: %s\n", rec.Fingerprint)

	for _, id := range stats.Skipped {
		fmt.Printf("  skipped: %s\n", id)
	}

	return nil
}
