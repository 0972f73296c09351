// Package source resolves photo identifiers to raw image bytes. The rest of
// the pipeline is agnostic to whether photos live on disk or behind URLs.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable marks a photo that could not be fetched: a missing file or a
// non-success HTTP status. Callers skip the photo rather than abort the batch.
var ErrUnavailable = errors.New("photo source unavailable")

// Entry describes one photo in the source set. Size and ModTime are zero for
// sources that cannot cheaply provide them (remote URL lists).
type Entry struct {
	ID      string
	Size    int64
	ModTime time.Time
}

// Source lists the photo set and fetches individual photos.
type Source interface {
	// List returns all photo entries, sorted by ID.
	List(ctx context.Context) ([]Entry, error)
	// Fetch returns the raw bytes for a photo ID. A single attempt, no retries.
	Fetch(ctx context.Context, id string) ([]byte, error)
}

// imageExtensions are the formats the detector stack can decode.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".bmp":  true,
}

// IsImagePath reports whether the lowercase extension is an accepted image format.
func IsImagePath(ext string) bool {
	return imageExtensions[ext]
}

func unavailable(id string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, id, err)
}
