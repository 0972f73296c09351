package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"
)

// Remote serves photos listed in a newline-delimited URL list file, the way
// the gallery is deployed against Cloudinary or S3: the list is generated
// once, no storage API credentials are needed at runtime.
type Remote struct {
	listPath string
	client   *http.Client
}

// NewRemote creates a URL-list source. A fetch that exceeds the timeout is
// abandoned; it surfaces as a skipped photo, not a pipeline abort.
func NewRemote(listPath string, timeout time.Duration) *Remote {
	return &Remote{
		listPath: listPath,
		client:   &http.Client{Timeout: timeout},
	}
}

// List reads the URL list file. URLs are the photo IDs; sizes and mtimes are
// unknown, so the set fingerprint degrades to the URLs themselves.
func (r *Remote) List(ctx context.Context) ([]Entry, error) {
	f, err := os.Open(r.listPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening url list %s: %v", ErrUnavailable, r.listPath, err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		url := strings.TrimSpace(scanner.Text())
		if url == "" {
			continue
		}
		entries = append(entries, Entry{ID: url})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading url list %s: %w", r.listPath, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// Fetch downloads the photo. Non-2xx responses count as unavailable.
func (r *Remote) Fetch(ctx context.Context, id string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, id, nil)
	if err != nil {
		return nil, unavailable(id, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, unavailable(id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: status %d", ErrUnavailable, id, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unavailable(id, err)
	}
	return data, nil
}
