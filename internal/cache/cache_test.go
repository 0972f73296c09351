package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/facegallery/facegallery/internal/detect"
	"github.com/facegallery/facegallery/internal/source"
)

func testRecord() *Record {
	return &Record{
		Version:        RecordVersion,
		Fingerprint:    "abc123",
		CreatedAt:      time.Now().Unix(),
		Detector:       "gocv",
		Jitter:         1,
		Tolerance:      0.6,
		MinClusterSize: 2,
		Photos: []PhotoRecord{
			{
				ID:   "wedding_photos/a.jpg",
				Size: 1024,
				Faces: []FaceRecord{
					{
						Box:       detect.BoundingBox{Top: 10, Right: 110, Bottom: 110, Left: 10},
						Embedding: []float32{0.1, 0.2, 0.3},
						Score:     0.98,
						Cluster:   0,
					},
				},
			},
			{
				ID:   "wedding_photos/b.jpg",
				Size: 2048,
			},
		},
	}
}

func TestFileStore_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "face_cache.json"))

	rec := testRecord()
	if err := store.Save(context.Background(), rec); err != nil {
		t.Fatalf("failed to save record: %v", err)
	}

	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("failed to load record: %v", err)
	}

	if loaded.Fingerprint != rec.Fingerprint {
		t.Errorf("expected fingerprint %q, got %q", rec.Fingerprint, loaded.Fingerprint)
	}
	if len(loaded.Photos) != 2 {
		t.Fatalf("expected 2 photos, got %d", len(loaded.Photos))
	}
	if len(loaded.Photos[0].Faces) != 1 {
		t.Fatalf("expected 1 face on first photo, got %d", len(loaded.Photos[0].Faces))
	}
	face := loaded.Photos[0].Faces[0]
	if face.Box.Right != 110 || face.Cluster != 0 {
		t.Errorf("unexpected face data: %+v", face)
	}
	if len(loaded.Photos[1].Faces) != 0 {
		t.Errorf("expected no faces on second photo, got %d", len(loaded.Photos[1].Faces))
	}
}

func TestFileStore_LoadMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nope.json"))

	_, err := store.Load(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "face_cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewFileStore(path)
	_, err := store.Load(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for corrupt file, got %v", err)
	}
}

func TestFileStore_LoadVersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "face_cache.json")
	store := NewFileStore(path)

	rec := testRecord()
	rec.Version = RecordVersion + 1
	if err := store.Save(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	_, err := store.Load(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for version mismatch, got %v", err)
	}
}

func TestFileStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "face_cache.json"))

	if err := store.Save(context.Background(), testRecord()); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "face_cache.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only face_cache.json in dir, got %v", names)
	}
}

func TestFileStore_Clear(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "face_cache.json"))

	if err := store.Clear(); err != nil {
		t.Errorf("clearing an absent cache should succeed, got %v", err)
	}

	if err := store.Save(context.Background(), testRecord()); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("failed to clear cache: %v", err)
	}
	if _, err := store.Load(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after clear, got %v", err)
	}
}

func TestFingerprint(t *testing.T) {
	now := time.Now()
	a := source.Entry{ID: "a.jpg", Size: 100, ModTime: now}
	b := source.Entry{ID: "b.jpg", Size: 200, ModTime: now}

	base := Fingerprint([]source.Entry{a, b})

	if got := Fingerprint([]source.Entry{b, a}); got != base {
		t.Error("fingerprint should not depend on entry order")
	}

	grew := a
	grew.Size = 101
	if got := Fingerprint([]source.Entry{grew, b}); got == base {
		t.Error("fingerprint should change when a photo size changes")
	}

	touched := a
	touched.ModTime = now.Add(time.Second)
	if got := Fingerprint([]source.Entry{touched, b}); got == base {
		t.Error("fingerprint should change when a photo mtime changes")
	}

	if got := Fingerprint([]source.Entry{a}); got == base {
		t.Error("fingerprint should change when a photo is removed")
	}

	if Fingerprint(nil) != Fingerprint([]source.Entry{}) {
		t.Error("nil and empty entry lists should fingerprint identically")
	}
}

func TestRecordValid(t *testing.T) {
	rec := testRecord()

	tests := []struct {
		name        string
		rec         *Record
		fingerprint string
		want        bool
	}{
		{"matching", rec, "abc123", true},
		{"wrong fingerprint", rec, "def456", false},
		{"nil record", nil, "abc123", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Valid(tt.fingerprint); got != tt.want {
				t.Errorf("Valid(%q) = %v, want %v", tt.fingerprint, got, tt.want)
			}
		})
	}

	stale := testRecord()
	stale.Version = RecordVersion + 1
	if stale.Valid("abc123") {
		t.Error("record with mismatched version should not be valid")
	}
}
