package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/facegallery/facegallery/internal/imgutil"
)

var resizeCmd = &cobra.Command{
	Use:   "resize <input> <output>",
	Short: "Resize a photo to fit within a maximum edge length",
	Long: `Resize a single photo so its longer edge fits within --size pixels,
keeping aspect ratio. Output is JPEG. Useful for preparing oversized
originals before publishing a gallery.`,
	Args: cobra.ExactArgs(2),
	RunE: runResize,
}

func init() {
	rootCmd.AddCommand(resizeCmd)

	resizeCmd.Flags().Int("size", 2048, "Maximum edge length in pixels")
}

func runResize(cmd *cobra.Command, args []string) error {
	size := mustGetInt(cmd, "size")
	if size < 1 {
		return fmt.Errorf("size must be positive, got %d", size)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	out, err := imgutil.Resize(data, size)
	if err != nil {
		return fmt.Errorf("resizing %s: %w", args[0], err)
	}

	if err := os.WriteFile(args[1], out, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", args[1], err)
	}

	fmt.Printf("Wrote %s (%d bytes)\n", args[1], len(out))
	return nil
}
