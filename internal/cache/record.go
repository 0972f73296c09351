// Package cache persists the face pipeline's output so unchanged photo sets
// are served without re-running detection or clustering.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/facegallery/facegallery/internal/detect"
	"github.com/facegallery/facegallery/internal/source"
)

// ErrNotFound is returned when no usable snapshot exists. A corrupt or
// version-mismatched snapshot is reported the same way: the caller's only
// recovery in every case is a full recompute.
var ErrNotFound = errors.New("cache record not found")

// RecordVersion guards the snapshot layout. Older snapshots load as
// ErrNotFound rather than crashing on shape changes.
const RecordVersion = 1

// Record is a complete pipeline snapshot: the input set fingerprint, every
// photo with its faces, and each face's cluster assignment.
type Record struct {
	Version     int    `json:"version"`
	Fingerprint string `json:"fingerprint"`
	CreatedAt   int64  `json:"created_at"` // unix seconds

	// Processing parameters. A cached record is reused only when these
	// match the current run's parameters in addition to the fingerprint.
	Detector       string  `json:"detector"`
	Jitter         int     `json:"jitter"`
	Tolerance      float64 `json:"tolerance"`
	MinClusterSize int     `json:"min_cluster_size"`

	Photos []PhotoRecord `json:"photos"`
}

// PhotoRecord is one scanned photo. Faces may be empty: a photo with no
// detected faces is a valid, recorded outcome.
type PhotoRecord struct {
	ID    string       `json:"id"`
	Size  int64        `json:"size"`
	Faces []FaceRecord `json:"faces,omitempty"`
}

// FaceRecord is one detected face plus its cluster assignment.
// Cluster is -1 for noise.
type FaceRecord struct {
	Box       detect.BoundingBox `json:"box"`
	Embedding []float32          `json:"embedding"`
	Score     float64            `json:"score"`
	Cluster   int                `json:"cluster"`
}

// Store loads and saves snapshots. Save must be atomic with respect to
// readers: a loader never observes a partially written record.
type Store interface {
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, rec *Record) error
}

// Fingerprint derives a stable digest of the photo set from its sorted
// entries. Any change - a photo added, removed, resized, or touched -
// produces a different digest and forces a full recompute. There is no
// partial invalidation.
func Fingerprint(entries []source.Entry) string {
	sorted := make([]source.Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var b strings.Builder
	for _, e := range sorted {
		fmt.Fprintf(&b, "%s|%d|%d\n", e.ID, e.Size, e.ModTime.Unix())
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Valid reports whether the record still describes the given photo set.
func (r *Record) Valid(currentFingerprint string) bool {
	return r != nil && r.Version == RecordVersion && r.Fingerprint == currentFingerprint
}
