package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/facegallery/facegallery/internal/cache"
	"github.com/facegallery/facegallery/internal/gallery"
	"github.com/facegallery/facegallery/internal/pipeline"
	"github.com/facegallery/facegallery/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gallery web server",
	Long: `Start the Face Gallery web server.
Guests browse photos by person, admins label people and trigger
reprocessing when new photos arrive.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
}

func runServe(cmd *cobra.Command, args []string) error {
	comp, err := loadComponents()
	if err != nil {
		return err
	}
	cfg := comp.cfg

	if port := mustGetInt(cmd, "port"); port != 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}

	names, err := gallery.LoadNames(cfg.Cache.NamesPath)
	if err != nil {
		return fmt.Errorf("loading person names: %w", err)
	}

	holder := gallery.NewHolder(nil)

	// Serve whatever snapshot already exists; processing can run later.
	if rec, err := comp.store.Load(context.Background()); err == nil {
		holder.Swap(gallery.New(rec, names))
		fmt.Printf("Loaded snapshot with %d photos\n", len(rec.Photos))
	} else if errors.Is(err, cache.ErrNotFound) {
		fmt.Println("No snapshot yet, run 'facegallery process' or POST /api/v1/process")
	} else {
		return fmt.Errorf("loading snapshot: %w", err)
	}

	// Processing jobs triggered over HTTP swap the projection on success.
	run := func(ctx context.Context, opts pipeline.Options) (*pipeline.Stats, error) {
		det, err := comp.detector()
		if err != nil {
			return nil, err
		}
		runner := pipeline.NewRunner(comp.src, det, comp.store, opts)
		rec, stats, err := runner.Run(ctx)
		if err != nil {
			return nil, err
		}
		holder.Swap(gallery.New(rec, names))
		return stats, nil
	}

	server := web.NewServer(cfg, holder, names, comp.src, run)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Gallery on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
