package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
)

const defaultServiceURL = "http://localhost:8000"

// Remote computes face detections through an HTTP face embedding service
// (an InsightFace-style sidecar). The image is uploaded as multipart form
// data; mode and jitter ride along as form fields.
type Remote struct {
	baseURL string
	mode    string
	jitter  int
	client  *http.Client
}

// NewRemote creates a client for the face embedding service.
func NewRemote(baseURL, mode string, jitter int) *Remote {
	if baseURL == "" {
		baseURL = defaultServiceURL
	}
	if jitter < 1 {
		jitter = 1
	}
	return &Remote{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		mode:    mode,
		jitter:  jitter,
		client:  &http.Client{},
	}
}

// faceResponse is the service's wire format.
type faceResponse struct {
	FacesCount int            `json:"faces_count"`
	Faces      []faceResult   `json:"faces"`
	Error      string         `json:"error,omitempty"`
}

type faceResult struct {
	Box       [4]int    `json:"box"` // [top, right, bottom, left]
	Embedding []float32 `json:"embedding"`
	Score     float64   `json:"score"`
}

// Detect uploads the image and returns the detected faces.
func (r *Remote) Detect(ctx context.Context, imageData []byte) ([]Face, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.WriteField("mode", r.mode); err != nil {
		return nil, fmt.Errorf("failed to write mode field: %w", err)
	}
	if err := writer.WriteField("jitter", strconv.Itoa(r.jitter)); err != nil {
		return nil, fmt.Errorf("failed to write jitter field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/detect/faces", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// The service reports undecodable uploads as 422.
	if resp.StatusCode == http.StatusUnprocessableEntity {
		return nil, fmt.Errorf("%w: %s", ErrDecode, strings.TrimSpace(string(body)))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var faceResp faceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	faces := make([]Face, len(faceResp.Faces))
	for i, f := range faceResp.Faces {
		faces[i] = Face{
			Box: BoundingBox{
				Top:    f.Box[0],
				Right:  f.Box[1],
				Bottom: f.Box[2],
				Left:   f.Box[3],
			},
			Embedding: f.Embedding,
			Score:     f.Score,
		}
	}
	return faces, nil
}

// detectMIMEType detects the MIME type from image data magic bytes.
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// GIF: 47 49 46 38
	if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38 {
		return "image/gif"
	}
	// WebP: 52 49 46 46 ... 57 45 42 50
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}
	return "application/octet-stream"
}
