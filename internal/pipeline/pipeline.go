// Package pipeline turns a photo source into a clustered face snapshot.
// It fetches every photo, runs face detection, groups the resulting
// embeddings into identities and persists the whole result through a
// cache store. A snapshot whose fingerprint still matches the source is
// reused without touching the detector.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/facegallery/facegallery/internal/cache"
	"github.com/facegallery/facegallery/internal/cluster"
	"github.com/facegallery/facegallery/internal/detect"
	"github.com/facegallery/facegallery/internal/source"
)

// ErrNoPhotos means the source yielded nothing usable: either the listing
// was empty or every single fetch failed.
var ErrNoPhotos = errors.New("no photos available")

// Clusterer groups embeddings into identity labels. Implementations must
// return one label per point, with cluster.Noise for unmatched points.
type Clusterer func(points [][]float32, eps float64, minPoints int) []int

// Options controls a single pipeline run.
type Options struct {
	Concurrency    int
	Force          bool // recompute even when the cached snapshot is valid
	Limit          int  // 0 means no limit
	Detector       string
	Jitter         int
	Tolerance      float64
	MinClusterSize int
	Progress       bool // render a terminal progress bar
}

// Stats summarizes a run for logs and the web process endpoint.
type Stats struct {
	TotalPhotos   int      `json:"total_photos"`
	Processed     int      `json:"processed"`
	Skipped       []string `json:"skipped,omitempty"`
	FacesFound    int      `json:"faces_found"`
	People        int      `json:"people"`
	NoiseFaces    int      `json:"noise_faces"`
	FromCache     bool     `json:"from_cache"`
}

// Runner wires a source, a detector and a snapshot store together.
type Runner struct {
	src       source.Source
	detector  detect.Detector
	store     cache.Store
	clusterer Clusterer
	opts      Options
}

func NewRunner(src source.Source, detector detect.Detector, store cache.Store, opts Options) *Runner {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Jitter < 1 {
		opts.Jitter = 1
	}
	return &Runner{
		src:       src,
		detector:  detector,
		store:     store,
		clusterer: cluster.DBSCAN,
		opts:      opts,
	}
}

// SetClusterer replaces the default grouping algorithm. Used by tests.
func (r *Runner) SetClusterer(c Clusterer) {
	r.clusterer = c
}

// Run executes the pipeline and returns the resulting snapshot.
func (r *Runner) Run(ctx context.Context) (*cache.Record, *Stats, error) {
	entries, err := r.src.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("listing photos: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil, ErrNoPhotos
	}

	if r.opts.Limit > 0 && len(entries) > r.opts.Limit {
		sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
		entries = entries[:r.opts.Limit]
	}

	fingerprint := cache.Fingerprint(entries)

	if !r.opts.Force {
		if rec, err := r.store.Load(ctx); err == nil && rec.Valid(fingerprint) && r.paramsMatch(rec) {
			stats := summarize(rec)
			stats.FromCache = true
			return rec, stats, nil
		} else if err != nil && !errors.Is(err, cache.ErrNotFound) {
			log.Printf("pipeline: cache load failed, recomputing: %v", err)
		}
	}

	photos, skipped := r.detectAll(ctx, entries)
	if len(photos) == 0 {
		return nil, nil, fmt.Errorf("%w: all %d photos failed", ErrNoPhotos, len(entries))
	}

	// Photos sorted by ID and faces kept in detection order give the
	// clusterer the same input for the same source state.
	sort.Slice(photos, func(i, j int) bool { return photos[i].ID < photos[j].ID })

	var points [][]float32
	for _, p := range photos {
		for _, f := range p.Faces {
			points = append(points, f.Embedding)
		}
	}

	labels := r.clusterer(points, r.opts.Tolerance, r.opts.MinClusterSize)

	i := 0
	for pi := range photos {
		for fi := range photos[pi].Faces {
			photos[pi].Faces[fi].Cluster = labels[i]
			i++
		}
	}

	rec := &cache.Record{
		Version:        cache.RecordVersion,
		Fingerprint:    fingerprint,
		CreatedAt:      time.Now().Unix(),
		Detector:       r.opts.Detector,
		Jitter:         r.opts.Jitter,
		Tolerance:      r.opts.Tolerance,
		MinClusterSize: r.opts.MinClusterSize,
		Photos:         photos,
	}

	if err := r.store.Save(ctx, rec); err != nil {
		return nil, nil, fmt.Errorf("saving snapshot: %w", err)
	}

	stats := summarize(rec)
	stats.TotalPhotos = len(entries)
	stats.Skipped = skipped
	return rec, stats, nil
}

// detectAll fetches and detects photos concurrently. Failed photos are
// logged and skipped rather than failing the whole run.
func (r *Runner) detectAll(ctx context.Context, entries []source.Entry) ([]cache.PhotoRecord, []string) {
	var bar *progressbar.ProgressBar
	if r.opts.Progress {
		bar = progressbar.NewOptions(len(entries),
			progressbar.OptionSetDescription("Detecting faces"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("photos"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	var (
		mu      sync.Mutex
		photos  []cache.PhotoRecord
		skipped []string
	)

	sem := make(chan struct{}, r.opts.Concurrency)
	var wg sync.WaitGroup

	for _, entry := range entries {
		wg.Add(1)
		go func(e source.Entry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			defer func() {
				if bar != nil {
					bar.Add(1)
				}
			}()

			data, err := r.src.Fetch(ctx, e.ID)
			if err != nil {
				log.Printf("pipeline: skipping %s: fetch failed: %v", e.ID, err)
				mu.Lock()
				skipped = append(skipped, e.ID)
				mu.Unlock()
				return
			}

			faces, err := r.detector.Detect(ctx, data)
			if err != nil {
				log.Printf("pipeline: skipping %s: detection failed: %v", e.ID, err)
				mu.Lock()
				skipped = append(skipped, e.ID)
				mu.Unlock()
				return
			}

			rec := cache.PhotoRecord{ID: e.ID, Size: e.Size}
			for _, f := range faces {
				rec.Faces = append(rec.Faces, cache.FaceRecord{
					Box:       f.Box,
					Embedding: f.Embedding,
					Score:     f.Score,
					Cluster:   cluster.Noise,
				})
			}

			mu.Lock()
			photos = append(photos, rec)
			mu.Unlock()
		}(entry)
	}

	wg.Wait()
	sort.Strings(skipped)
	return photos, skipped
}

func (r *Runner) paramsMatch(rec *cache.Record) bool {
	return rec.Detector == r.opts.Detector &&
		rec.Jitter == r.opts.Jitter &&
		rec.Tolerance == r.opts.Tolerance &&
		rec.MinClusterSize == r.opts.MinClusterSize
}

func summarize(rec *cache.Record) *Stats {
	stats := &Stats{TotalPhotos: len(rec.Photos), Processed: len(rec.Photos)}
	people := map[int]struct{}{}
	for _, p := range rec.Photos {
		for _, f := range p.Faces {
			stats.FacesFound++
			if f.Cluster == cluster.Noise {
				stats.NoiseFaces++
			} else {
				people[f.Cluster] = struct{}{}
			}
		}
	}
	stats.People = len(people)
	return stats
}
