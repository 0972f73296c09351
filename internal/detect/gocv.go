package detect

import (
	"context"
	"fmt"
	"image"
	"math"
	"math/rand"
	"os"

	"gocv.io/x/gocv"

	"github.com/facegallery/facegallery/internal/config"
)

const (
	embedInputSize = 112
	ssdInputSize   = 300
	ssdConfidence  = 0.5
)

// GoCVOptions configures the local OpenCV detector.
type GoCVOptions struct {
	Mode          string // fast (Haar cascade) or accurate (DNN)
	Jitter        int
	CascadePath   string
	DetectorModel string
	EmbedderModel string
}

// GoCV detects faces locally with OpenCV. Fast mode runs a Haar cascade,
// accurate mode an SSD face network; both hand the crop to an embedding
// network (SFace/ArcFace-style, 128 dimensions).
type GoCV struct {
	opts     GoCVOptions
	cascade  gocv.CascadeClassifier
	detector gocv.Net
	embedder gocv.Net
}

// NewGoCV loads the configured models. Model files must exist; a missing
// detector is a setup error, not a per-photo condition.
func NewGoCV(opts GoCVOptions) (*GoCV, error) {
	if opts.Jitter < 1 {
		opts.Jitter = 1
	}
	g := &GoCV{opts: opts}

	switch opts.Mode {
	case config.ModeFast:
		if err := statModel(opts.CascadePath); err != nil {
			return nil, err
		}
		g.cascade = gocv.NewCascadeClassifier()
		if !g.cascade.Load(opts.CascadePath) {
			g.cascade.Close()
			return nil, fmt.Errorf("loading cascade %s failed", opts.CascadePath)
		}
	case config.ModeAccurate:
		if err := statModel(opts.DetectorModel); err != nil {
			return nil, err
		}
		g.detector = gocv.ReadNet(opts.DetectorModel, "")
		if g.detector.Empty() {
			return nil, fmt.Errorf("loading detector network %s failed", opts.DetectorModel)
		}
		g.detector.SetPreferableBackend(gocv.NetBackendDefault)
		g.detector.SetPreferableTarget(gocv.NetTargetCPU)
	default:
		return nil, fmt.Errorf("unknown detector mode %q", opts.Mode)
	}

	if err := statModel(opts.EmbedderModel); err != nil {
		g.Close()
		return nil, err
	}
	g.embedder = gocv.ReadNet(opts.EmbedderModel, "")
	if g.embedder.Empty() {
		g.Close()
		return nil, fmt.Errorf("loading embedding network %s failed", opts.EmbedderModel)
	}
	g.embedder.SetPreferableBackend(gocv.NetBackendDefault)
	g.embedder.SetPreferableTarget(gocv.NetTargetCPU)

	return g, nil
}

func statModel(path string) error {
	if path == "" {
		return fmt.Errorf("model path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("model file %s: %w", path, err)
	}
	return nil
}

// Close releases the OpenCV resources.
func (g *GoCV) Close() {
	if g.opts.Mode == config.ModeFast {
		g.cascade.Close()
	} else if !g.detector.Empty() {
		g.detector.Close()
	}
	if !g.embedder.Empty() {
		g.embedder.Close()
	}
}

// Detect finds faces in the image and computes an embedding per face,
// averaging over jittered re-crops when jitter > 1.
func (g *GoCV) Detect(ctx context.Context, imageData []byte) ([]Face, error) {
	img, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err != nil || img.Empty() {
		if err == nil {
			err = fmt.Errorf("empty matrix")
		}
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer img.Close()

	var boxes []image.Rectangle
	var scores []float64
	if g.opts.Mode == config.ModeFast {
		boxes, scores = g.detectCascade(img)
	} else {
		boxes, scores = g.detectDNN(img)
	}

	var faces []Face
	for i, box := range boxes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		emb := g.embedFace(img, box)
		if emb == nil {
			continue
		}
		faces = append(faces, Face{
			Box: BoundingBox{
				Top:    box.Min.Y,
				Right:  box.Max.X,
				Bottom: box.Max.Y,
				Left:   box.Min.X,
			},
			Embedding: emb,
			Score:     scores[i],
		})
	}
	return faces, nil
}

// detectCascade runs the Haar cascade. Cascades report no confidence, so
// every hit scores 1.
func (g *GoCV) detectCascade(img gocv.Mat) ([]image.Rectangle, []float64) {
	rects := g.cascade.DetectMultiScale(img)
	scores := make([]float64, len(rects))
	for i := range scores {
		scores[i] = 1.0
	}
	return rects, scores
}

// detectDNN runs the SSD face detector and keeps hits above the confidence
// threshold. Output rows are [_, _, confidence, x1, y1, x2, y2] with
// coordinates relative to the input.
func (g *GoCV) detectDNN(img gocv.Mat) ([]image.Rectangle, []float64) {
	blob := gocv.BlobFromImage(img, 1.0, image.Pt(ssdInputSize, ssdInputSize),
		gocv.NewScalar(104.0, 177.0, 123.0, 0), false, false)
	defer blob.Close()

	g.detector.SetInput(blob, "")
	out := g.detector.Forward("")
	defer out.Close()

	detections := out.Reshape(1, out.Total()/7)
	defer detections.Close()

	w := float32(img.Cols())
	h := float32(img.Rows())

	var boxes []image.Rectangle
	var scores []float64
	for row := 0; row < detections.Rows(); row++ {
		confidence := detections.GetFloatAt(row, 2)
		if confidence < ssdConfidence {
			continue
		}
		x1 := int(detections.GetFloatAt(row, 3) * w)
		y1 := int(detections.GetFloatAt(row, 4) * h)
		x2 := int(detections.GetFloatAt(row, 5) * w)
		y2 := int(detections.GetFloatAt(row, 6) * h)
		rect := image.Rect(x1, y1, x2, y2).Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))
		if rect.Empty() {
			continue
		}
		boxes = append(boxes, rect)
		scores = append(scores, float64(confidence))
	}
	return boxes, scores
}

// embedFace crops the face region and runs the embedding network. With
// jitter > 1 the crop is re-sampled with small random offsets and the
// embeddings averaged, which damps alignment noise. The jitter generator is
// seeded per face so repeated runs over the same bytes agree.
func (g *GoCV) embedFace(img gocv.Mat, box image.Rectangle) []float32 {
	base := g.forwardEmbedding(img, box)
	if base == nil {
		return nil
	}
	if g.opts.Jitter == 1 {
		return normalize(base)
	}

	sum := make([]float64, len(base))
	for i, v := range base {
		sum[i] = float64(v)
	}

	rng := rand.New(rand.NewSource(int64(box.Min.X)<<32 | int64(box.Min.Y)))
	count := 1
	for j := 1; j < g.opts.Jitter; j++ {
		jittered := jitterRect(rng, box, img.Cols(), img.Rows())
		emb := g.forwardEmbedding(img, jittered)
		if emb == nil || len(emb) != len(sum) {
			continue
		}
		for i, v := range emb {
			sum[i] += float64(v)
		}
		count++
	}

	avg := make([]float32, len(sum))
	for i, v := range sum {
		avg[i] = float32(v / float64(count))
	}
	return normalize(avg)
}

// forwardEmbedding runs one crop through the embedding net.
func (g *GoCV) forwardEmbedding(img gocv.Mat, box image.Rectangle) []float32 {
	region := img.Region(box)
	defer region.Close()

	blob := gocv.BlobFromImage(region, 1.0/128.0, image.Pt(embedInputSize, embedInputSize),
		gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	g.embedder.SetInput(blob, "")
	out := g.embedder.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil || len(data) == 0 {
		return nil
	}
	emb := make([]float32, len(data))
	copy(emb, data)
	return emb
}

// jitterRect shifts and scales the box by up to 5%, clamped to the image.
func jitterRect(rng *rand.Rand, box image.Rectangle, maxW, maxH int) image.Rectangle {
	dx := int(float64(box.Dx()) * 0.05 * (rng.Float64()*2 - 1))
	dy := int(float64(box.Dy()) * 0.05 * (rng.Float64()*2 - 1))
	grow := int(float64(box.Dx()) * 0.05 * rng.Float64())

	jittered := image.Rect(
		box.Min.X+dx-grow,
		box.Min.Y+dy-grow,
		box.Max.X+dx+grow,
		box.Max.Y+dy+grow,
	).Intersect(image.Rect(0, 0, maxW, maxH))
	if jittered.Empty() {
		return box
	}
	return jittered
}

// normalize scales the embedding to unit length so euclidean distances are
// comparable across photos.
func normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}
