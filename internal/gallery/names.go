package gallery

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Names is the person label sidecar. Labels are keyed by person ID and
// only meaningful for the snapshot generation they were assigned under;
// clearing the cache orphans them.
type Names struct {
	mu   sync.Mutex
	path string
	byID map[string]string
}

// LoadNames reads the sidecar file, starting empty when it does not exist.
func LoadNames(path string) (*Names, error) {
	n := &Names{path: path, byID: map[string]string{}}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return n, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading names file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &n.byID); err != nil {
		return nil, fmt.Errorf("parsing names file %s: %w", path, err)
	}
	return n, nil
}

// Get returns the label for a person, empty when unlabeled.
func (n *Names) Get(personID int) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.byID[strconv.Itoa(personID)]
}

// Set stores a label and persists the whole file. An empty name removes
// the label.
func (n *Names) Set(personID int, name string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	key := strconv.Itoa(personID)
	name = strings.TrimSpace(name)
	if name == "" {
		delete(n.byID, key)
	} else {
		n.byID[key] = name
	}
	return n.persist()
}

// Clear drops every label and removes the sidecar file.
func (n *Names) Clear() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.byID = map[string]string{}
	if err := os.Remove(n.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing names file: %w", err)
	}
	return nil
}

// Count returns how many people are labeled.
func (n *Names) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.byID)
}

// persist writes via temp file and rename so a crash never truncates labels.
func (n *Names) persist() error {
	data, err := json.MarshalIndent(n.byID, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding names: %w", err)
	}

	dir := filepath.Dir(n.path)
	tmp, err := os.CreateTemp(dir, ".names-*.json")
	if err != nil {
		return fmt.Errorf("creating temp names file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing names: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing names file: %w", err)
	}
	if err := os.Rename(tmp.Name(), n.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing names file: %w", err)
	}
	return nil
}

// RemoveDiacritics strips combining marks from a string ("Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizePersonName normalizes a label for comparison (lowercase, no
// diacritics, spaces for dashes).
func NormalizePersonName(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", " ")
	return strings.TrimSpace(name)
}
