package gallery

import (
	"context"
	"fmt"
	"image"

	"github.com/facegallery/facegallery/internal/imgutil"
	"github.com/facegallery/facegallery/internal/source"
)

// Thumbnailer renders face crops for people. Crops come from the original
// photo bytes so boxes line up with what the detector saw.
type Thumbnailer struct {
	src     source.Source
	size    int
	padding int
}

func NewThumbnailer(src source.Source, size, padding int) *Thumbnailer {
	return &Thumbnailer{src: src, size: size, padding: padding}
}

// PersonThumb renders the face thumbnail for a person using their highest
// scoring face. Returns JPEG bytes.
func (t *Thumbnailer) PersonThumb(ctx context.Context, g *Gallery, personID int) ([]byte, error) {
	photoID, face, err := g.BestFace(personID)
	if err != nil {
		return nil, err
	}

	data, err := t.src.Fetch(ctx, photoID)
	if err != nil {
		return nil, fmt.Errorf("fetching photo %s: %w", photoID, err)
	}

	img, err := imgutil.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding photo %s: %w", photoID, err)
	}

	crop := image.Rect(face.Box.Left, face.Box.Top, face.Box.Right, face.Box.Bottom)
	return imgutil.CropSquare(img, crop, t.padding, t.size)
}
