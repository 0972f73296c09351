// Package detect wraps external face detectors behind a single contract:
// image bytes in, zero or more faces with embeddings out.
package detect

import (
	"context"
	"errors"
	"fmt"

	"github.com/facegallery/facegallery/internal/config"
)

// ErrDecode marks bytes that are not a valid image. The pipeline skips the
// photo and counts it; it never aborts the batch.
var ErrDecode = errors.New("image decode failed")

// BoundingBox locates a face inside its photo, in pixel coordinates. The
// field order (top, right, bottom, left) follows the css-style tuple the
// face data has always used.
type BoundingBox struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// Face is one detection: where it is and what it looks like.
type Face struct {
	Box       BoundingBox `json:"box"`
	Embedding []float32   `json:"embedding"`
	Score     float64     `json:"score"`
}

// Detector finds faces and computes their embeddings. An empty result is a
// valid outcome, not an error. The detector mode (fast vs accurate) and the
// jitter count change cost and quality, never the output shape.
type Detector interface {
	Detect(ctx context.Context, imageData []byte) ([]Face, error)
}

// FromConfig builds the detector selected by configuration.
func FromConfig(cfg *config.Config) (Detector, error) {
	switch cfg.Detector.Kind {
	case config.DetectorRemote:
		return NewRemote(cfg.Detector.ServiceURL, cfg.Detector.Mode, cfg.Detector.Jitter), nil
	case config.DetectorGoCV:
		return NewGoCV(GoCVOptions{
			Mode:          cfg.Detector.Mode,
			Jitter:        cfg.Detector.Jitter,
			CascadePath:   cfg.Detector.CascadePath,
			DetectorModel: cfg.Detector.DetectorModel,
			EmbedderModel: cfg.Detector.EmbedderModel,
		})
	default:
		return nil, fmt.Errorf("unknown detector kind %q", cfg.Detector.Kind)
	}
}
