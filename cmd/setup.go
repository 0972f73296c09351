package cmd

import (
	"fmt"

	"github.com/facegallery/facegallery/internal/cache"
	"github.com/facegallery/facegallery/internal/config"
	"github.com/facegallery/facegallery/internal/detect"
	"github.com/facegallery/facegallery/internal/pipeline"
	"github.com/facegallery/facegallery/internal/source"
)

// components bundles everything a pipeline run needs.
type components struct {
	cfg   *config.Config
	src   source.Source
	store cache.Store
}

// loadComponents builds the source and cache store from configuration.
// The detector is created separately because serve can run without one
// until a processing job is requested.
func loadComponents() (*components, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	src, err := source.FromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating photo source: %w", err)
	}

	store, err := cache.FromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating cache store: %w", err)
	}

	return &components{cfg: cfg, src: src, store: store}, nil
}

func (c *components) detector() (detect.Detector, error) {
	det, err := detect.FromConfig(c.cfg)
	if err != nil {
		return nil, fmt.Errorf("creating face detector: %w", err)
	}
	return det, nil
}

// pipelineOptions derives run options from config with CLI overrides.
func (c *components) pipelineOptions(force bool, concurrency, limit int, progress bool) pipeline.Options {
	return pipeline.Options{
		Concurrency:    concurrency,
		Force:          force,
		Limit:          limit,
		Detector:       c.cfg.Detector.Kind,
		Jitter:         c.cfg.Detector.Jitter,
		Tolerance:      c.cfg.Cluster.Tolerance,
		MinClusterSize: c.cfg.Cluster.MinClusterSize,
		Progress:       progress,
	}
}
