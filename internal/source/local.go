package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Local serves photos from a single directory. Photo IDs are paths relative
// to nothing in particular - they are the joined folder/filename, stable as
// long as the folder does not move.
type Local struct {
	folder string
}

// NewLocal creates a local directory source.
func NewLocal(folder string) *Local {
	return &Local{folder: folder}
}

// List scans the folder for image files, sorted by path.
func (l *Local) List(ctx context.Context) ([]Entry, error) {
	dirEntries, err := os.ReadDir(l.folder)
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s: %v", ErrUnavailable, l.folder, err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		if !IsImagePath(strings.ToLower(filepath.Ext(de.Name()))) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			ID:      filepath.Join(l.folder, de.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// Fetch reads the photo file.
func (l *Local) Fetch(ctx context.Context, id string) ([]byte, error) {
	data, err := os.ReadFile(id)
	if err != nil {
		return nil, unavailable(id, err)
	}
	return data, nil
}
