package source

import (
	"fmt"
	"time"

	"github.com/facegallery/facegallery/internal/config"
)

// FromConfig builds the source selected by configuration.
func FromConfig(cfg *config.Config) (Source, error) {
	switch cfg.Source.Kind {
	case config.SourceLocal:
		return NewLocal(cfg.Source.Folder), nil
	case config.SourceRemote:
		timeout := time.Duration(cfg.Source.FetchTimeout) * time.Second
		return NewRemote(cfg.Source.URLList, timeout), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}
