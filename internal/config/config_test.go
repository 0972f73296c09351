package config

import (
	"os"
	"path/filepath"
	"testing"
)

// clearGalleryEnv unsets every env var Load consults so tests see defaults.
func clearGalleryEnv(t *testing.T) {
	t.Helper()
	vars := []string{
		"GALLERY_CONFIG",
		"SOURCE_KIND", "SOURCE_FOLDER", "SOURCE_URL_LIST", "SOURCE_FETCH_TIMEOUT",
		"DETECTOR_KIND", "DETECTOR_MODE", "DETECTOR_JITTER", "DETECTOR_SERVICE_URL",
		"DETECTOR_CASCADE_PATH", "DETECTOR_MODEL_PATH", "EMBEDDER_MODEL_PATH",
		"CLUSTER_TOLERANCE", "CLUSTER_MIN_SIZE",
		"CACHE_KIND", "CACHE_PATH", "DATABASE_URL",
		"DATABASE_MAX_OPEN_CONNS", "DATABASE_MAX_IDLE_CONNS", "NAMES_PATH",
		"THUMBNAIL_SIZE", "THUMBNAIL_PADDING",
		"WEB_HOST", "WEB_PORT", "WEB_ACCESS_CODE", "WEB_SESSION_SECRET",
	}
	for _, v := range vars {
		if old, ok := os.LookupEnv(v); ok {
			t.Setenv(v, old) // restore on cleanup
			os.Unsetenv(v)
		}
	}
	// Point the config file lookup at an empty directory.
	t.Setenv("GALLERY_CONFIG", filepath.Join(t.TempDir(), "facegallery.yml"))
}

func TestLoad_Defaults(t *testing.T) {
	clearGalleryEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Source.Kind != SourceLocal {
		t.Errorf("expected default source kind 'local', got '%s'", cfg.Source.Kind)
	}
	if cfg.Detector.Mode != ModeFast {
		t.Errorf("expected default detector mode 'fast', got '%s'", cfg.Detector.Mode)
	}
	if cfg.Detector.Jitter != 1 {
		t.Errorf("expected default jitter 1, got %d", cfg.Detector.Jitter)
	}
	if cfg.Cluster.Tolerance != 0.6 {
		t.Errorf("expected default tolerance 0.6, got %f", cfg.Cluster.Tolerance)
	}
	if cfg.Cluster.MinClusterSize != 2 {
		t.Errorf("expected default min cluster size 2, got %d", cfg.Cluster.MinClusterSize)
	}
	if cfg.Cache.Kind != CacheFile {
		t.Errorf("expected default cache kind 'file', got '%s'", cfg.Cache.Kind)
	}
	if cfg.Thumbnail.Size != 100 {
		t.Errorf("expected default thumbnail size 100, got %d", cfg.Thumbnail.Size)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearGalleryEnv(t)
	t.Setenv("SOURCE_KIND", "remote")
	t.Setenv("SOURCE_URL_LIST", "urls.txt")
	t.Setenv("DETECTOR_MODE", "accurate")
	t.Setenv("DETECTOR_JITTER", "5")
	t.Setenv("CLUSTER_TOLERANCE", "0.45")
	t.Setenv("CLUSTER_MIN_SIZE", "3")
	t.Setenv("WEB_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Source.Kind != SourceRemote {
		t.Errorf("expected source kind 'remote', got '%s'", cfg.Source.Kind)
	}
	if cfg.Detector.Mode != ModeAccurate {
		t.Errorf("expected detector mode 'accurate', got '%s'", cfg.Detector.Mode)
	}
	if cfg.Detector.Jitter != 5 {
		t.Errorf("expected jitter 5, got %d", cfg.Detector.Jitter)
	}
	if cfg.Cluster.Tolerance != 0.45 {
		t.Errorf("expected tolerance 0.45, got %f", cfg.Cluster.Tolerance)
	}
	if cfg.Cluster.MinClusterSize != 3 {
		t.Errorf("expected min cluster size 3, got %d", cfg.Cluster.MinClusterSize)
	}
	if cfg.Web.Port != 9090 {
		t.Errorf("expected web port 9090, got %d", cfg.Web.Port)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	clearGalleryEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "facegallery.yml")
	content := `
source:
  kind: remote
  url_list: cloudinary_urls.txt
cluster:
  tolerance: 0.5
  min_cluster_size: 4
web:
  access_code: "wedding2024"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	t.Setenv("GALLERY_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Source.Kind != SourceRemote {
		t.Errorf("expected source kind 'remote', got '%s'", cfg.Source.Kind)
	}
	if cfg.Source.URLList != "cloudinary_urls.txt" {
		t.Errorf("expected url list 'cloudinary_urls.txt', got '%s'", cfg.Source.URLList)
	}
	if cfg.Cluster.Tolerance != 0.5 {
		t.Errorf("expected tolerance 0.5, got %f", cfg.Cluster.Tolerance)
	}
	if cfg.Cluster.MinClusterSize != 4 {
		t.Errorf("expected min cluster size 4, got %d", cfg.Cluster.MinClusterSize)
	}
	if cfg.Web.AccessCode != "wedding2024" {
		t.Errorf("expected access code 'wedding2024', got '%s'", cfg.Web.AccessCode)
	}
	// Untouched sections keep defaults.
	if cfg.Detector.Jitter != 1 {
		t.Errorf("expected default jitter 1, got %d", cfg.Detector.Jitter)
	}
}

func TestLoad_EnvWinsOverYAML(t *testing.T) {
	clearGalleryEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "facegallery.yml")
	if err := os.WriteFile(path, []byte("cluster:\n  tolerance: 0.5\n"), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	t.Setenv("GALLERY_CONFIG", path)
	t.Setenv("CLUSTER_TOLERANCE", "0.33")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Cluster.Tolerance != 0.33 {
		t.Errorf("expected env override 0.33, got %f", cfg.Cluster.Tolerance)
	}
}

func TestLoad_InvalidJitterFallsBack(t *testing.T) {
	clearGalleryEnv(t)
	t.Setenv("DETECTOR_JITTER", "-3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Detector.Jitter != 1 {
		t.Errorf("expected jitter to fall back to 1, got %d", cfg.Detector.Jitter)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"unknown source kind", func(c *Config) { c.Source.Kind = "ftp" }, true},
		{"unknown detector kind", func(c *Config) { c.Detector.Kind = "cloud" }, true},
		{"unknown detector mode", func(c *Config) { c.Detector.Mode = "turbo" }, true},
		{"zero jitter", func(c *Config) { c.Detector.Jitter = 0 }, true},
		{"negative tolerance", func(c *Config) { c.Cluster.Tolerance = -1 }, true},
		{"zero min cluster size", func(c *Config) { c.Cluster.MinClusterSize = 0 }, true},
		{"unknown cache kind", func(c *Config) { c.Cache.Kind = "redis" }, true},
		{"postgres without URL", func(c *Config) { c.Cache.Kind = CachePostgres }, true},
		{"postgres with URL", func(c *Config) {
			c.Cache.Kind = CachePostgres
			c.Cache.DatabaseURL = "postgres://localhost/gallery"
		}, false},
		{"zero thumbnail size", func(c *Config) { c.Thumbnail.Size = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
