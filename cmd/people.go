package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/facegallery/facegallery/internal/gallery"
)

var peopleCmd = &cobra.Command{
	Use:   "people",
	Short: "List the people found in the photo collection",
	Long: `List all clustered identities from the cached processing result,
most photographed first. Run 'facegallery process' first.`,
	RunE: runPeople,
}

func init() {
	rootCmd.AddCommand(peopleCmd)
}

func runPeople(cmd *cobra.Command, args []string) error {
	comp, err := loadComponents()
	if err != nil {
		return err
	}

	rec, err := comp.store.Load(context.Background())
	if err != nil {
		return fmt.Errorf("no processed result available, run 'facegallery process' first: %w", err)
	}

	names, err := gallery.LoadNames(comp.cfg.Cache.NamesPath)
	if err != nil {
		return fmt.Errorf("loading person names: %w", err)
	}

	g := gallery.New(rec, names)
	people := g.People()
	if len(people) == 0 {
		fmt.Println("No people found. The photos may not contain recognizable faces.")
		return nil
	}

	fmt.Printf("%-6s %-24s %-8s %s\n", "ID", "NAME", "FACES", "PHOTOS")
	for _, p := range people {
		name := p.Name
		if name == "" {
			name = "(unlabeled)"
		}
		fmt.Printf("%-6d %-24s %-8d %d\n", p.ID, name, p.FaceCount, p.PhotoCount)
	}
	return nil
}
