package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/facegallery/facegallery/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the face detection cache",
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show details about the cached processing result",
	RunE:  runCacheInfo,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the cached processing result",
	Long: `Delete the cached processing result. The next 'facegallery process'
run recomputes everything from scratch. Person labels refer to cluster
ids of the deleted result and become meaningless.`,
	RunE: runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheInfo(cmd *cobra.Command, args []string) error {
	comp, err := loadComponents()
	if err != nil {
		return err
	}

	rec, err := comp.store.Load(context.Background())
	if errors.Is(err, cache.ErrNotFound) {
		fmt.Println("No cached result")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading cache: %w", err)
	}

	faces := 0
	for _, p := range rec.Photos {
		faces += len(p.Faces)
	}

	fmt.Printf("Created:         %s\n", time.Unix(rec.CreatedAt, 0).Format(time.RFC3339))
	fmt.Printf("Fingerprint:     %s\n", rec.Fingerprint)
	fmt.Printf("Photos:          %d\n", len(rec.Photos))
	fmt.Printf("Faces:           %d\n", faces)
	fmt.Printf("Detector:        %s (jitter %d)\n", rec.Detector, rec.Jitter)
	fmt.Printf("Tolerance:       %.2f\n", rec.Tolerance)
	fmt.Printf("Min group size:  %d\n", rec.MinClusterSize)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	comp, err := loadComponents()
	if err != nil {
		return err
	}

	clearer, ok := comp.store.(interface{ Clear() error })
	if !ok {
		return fmt.Errorf("cache store %q does not support clearing", comp.cfg.Cache.Kind)
	}
	if err := clearer.Clear(); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}

	fmt.Println("Cache cleared")
	return nil
}
