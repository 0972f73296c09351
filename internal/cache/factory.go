package cache

import (
	"fmt"

	"github.com/facegallery/facegallery/internal/config"
)

// FromConfig builds the configured snapshot store.
func FromConfig(cfg *config.Config) (Store, error) {
	switch cfg.Cache.Kind {
	case config.CacheFile:
		return NewFileStore(cfg.Cache.Path), nil
	case config.CachePostgres:
		return NewPostgresStore(&cfg.Cache)
	default:
		return nil, fmt.Errorf("unknown cache kind %q", cfg.Cache.Kind)
	}
}
