package handlers

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/facegallery/facegallery/internal/cache"
	"github.com/facegallery/facegallery/internal/cluster"
	"github.com/facegallery/facegallery/internal/config"
	"github.com/facegallery/facegallery/internal/detect"
	"github.com/facegallery/facegallery/internal/gallery"
	"github.com/facegallery/facegallery/internal/source"
)

// testConfig creates a minimal config for testing.
func testConfig() *config.Config {
	return &config.Config{
		Web: config.WebConfig{
			AccessCode:    "wedding2024",
			SessionSecret: "test-secret",
		},
		Thumbnail: config.ThumbnailConfig{Size: 100, Padding: 20},
	}
}

// fakeSource serves in-memory photo bytes.
type fakeSource struct {
	photos map[string][]byte
}

func (f *fakeSource) List(ctx context.Context) ([]source.Entry, error) {
	var entries []source.Entry
	for id, data := range f.photos {
		entries = append(entries, source.Entry{ID: id, Size: int64(len(data))})
	}
	return entries, nil
}

func (f *fakeSource) Fetch(ctx context.Context, id string) ([]byte, error) {
	data, ok := f.photos[id]
	if !ok {
		return nil, source.ErrUnavailable
	}
	return data, nil
}

// testPhotoBytes renders a decodable PNG.
func testPhotoBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 180, B: 160, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// testSnapshot has person 0 on two photos, person 1 on one, a noise face
// and a faceless photo.
func testSnapshot() *cache.Record {
	face := func(clusterID int, score float64, emb []float32) cache.FaceRecord {
		return cache.FaceRecord{
			Box:       detect.BoundingBox{Top: 20, Right: 120, Bottom: 120, Left: 20},
			Embedding: emb,
			Score:     score,
			Cluster:   clusterID,
		}
	}
	return &cache.Record{
		Version:     cache.RecordVersion,
		Fingerprint: "fp",
		CreatedAt:   1700000000,
		Photos: []cache.PhotoRecord{
			{ID: "photos/a.jpg", Size: 1, Faces: []cache.FaceRecord{
				face(0, 0.9, []float32{1, 0}),
			}},
			{ID: "photos/b.jpg", Size: 2, Faces: []cache.FaceRecord{
				face(0, 0.95, []float32{1.1, 0}),
				face(1, 0.8, []float32{5, 5}),
			}},
			{ID: "photos/c.jpg", Size: 3, Faces: []cache.FaceRecord{
				face(cluster.Noise, 0.4, []float32{0, 9}),
			}},
			{ID: "photos/d.jpg", Size: 4},
		},
	}
}

// testGallery builds a holder, names store and source for handler tests.
func testGallery(t *testing.T) (*gallery.Holder, *gallery.Names, *fakeSource) {
	t.Helper()
	names, err := gallery.LoadNames(filepath.Join(t.TempDir(), "person_names.json"))
	if err != nil {
		t.Fatal(err)
	}

	photo := testPhotoBytes(t, 200, 200)
	src := &fakeSource{photos: map[string][]byte{
		"photos/a.jpg": photo,
		"photos/b.jpg": photo,
		"photos/c.jpg": photo,
		"photos/d.jpg": photo,
	}}

	holder := gallery.NewHolder(gallery.New(testSnapshot(), names))
	return holder, names, src
}

// requestWithChiParams creates a request with chi URL parameters.
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
