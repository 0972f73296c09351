package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Source kinds supported by the photo source adapter.
const (
	SourceLocal  = "local"
	SourceRemote = "remote"
)

// Detector kinds and modes.
const (
	DetectorGoCV   = "gocv"
	DetectorRemote = "remote"

	ModeFast     = "fast"
	ModeAccurate = "accurate"
)

// Cache store kinds.
const (
	CacheFile     = "file"
	CachePostgres = "postgres"
)

type Config struct {
	Source    SourceConfig    `yaml:"source"`
	Detector  DetectorConfig  `yaml:"detector"`
	Cluster   ClusterConfig   `yaml:"cluster"`
	Cache     CacheConfig     `yaml:"cache"`
	Thumbnail ThumbnailConfig `yaml:"thumbnail"`
	Web       WebConfig       `yaml:"web"`
}

type SourceConfig struct {
	Kind         string `yaml:"kind"`     // local or remote
	Folder       string `yaml:"folder"`   // photo directory for local sources
	URLList      string `yaml:"url_list"` // newline-delimited URL list file for remote sources
	FetchTimeout int    `yaml:"fetch_timeout_seconds"`
}

type DetectorConfig struct {
	Kind          string `yaml:"kind"` // gocv or remote
	Mode          string `yaml:"mode"` // fast or accurate
	Jitter        int    `yaml:"jitter"`
	ServiceURL    string `yaml:"service_url"`    // remote face embedding service
	CascadePath   string `yaml:"cascade_path"`   // Haar cascade for fast mode (gocv)
	DetectorModel string `yaml:"detector_model"` // DNN detector for accurate mode (gocv)
	EmbedderModel string `yaml:"embedder_model"` // embedding network (gocv)
}

type ClusterConfig struct {
	Tolerance      float64 `yaml:"tolerance"`        // max intra-cluster embedding distance
	MinClusterSize int     `yaml:"min_cluster_size"` // fewer members than this is noise
}

type CacheConfig struct {
	Kind         string `yaml:"kind"` // file or postgres
	Path         string `yaml:"path"`
	DatabaseURL  string `yaml:"database_url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	NamesPath    string `yaml:"names_path"` // person name labels sidecar
}

type ThumbnailConfig struct {
	Size    int `yaml:"size"`    // face thumbnail edge in pixels
	Padding int `yaml:"padding"` // pixels of context around the face crop
}

type WebConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	AccessCode    string `yaml:"access_code"` // empty disables the gallery gate
	SessionSecret string `yaml:"session_secret"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envString reads an environment variable with a fallback.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func defaults() *Config {
	return &Config{
		Source: SourceConfig{
			Kind:         SourceLocal,
			Folder:       "wedding_photos",
			URLList:      "photo_urls.txt",
			FetchTimeout: 30,
		},
		Detector: DetectorConfig{
			Kind:   DetectorGoCV,
			Mode:   ModeFast,
			Jitter: 1,
		},
		Cluster: ClusterConfig{
			Tolerance:      0.6,
			MinClusterSize: 2,
		},
		Cache: CacheConfig{
			Kind:         CacheFile,
			Path:         "face_cache.json",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
			NamesPath:    "person_names.json",
		},
		Thumbnail: ThumbnailConfig{
			Size:    100,
			Padding: 20,
		},
		Web: WebConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file
// (GALLERY_CONFIG or ./facegallery.yml), and environment variable overrides,
// in that order.
func Load() (*Config, error) {
	cfg := defaults()

	path := os.Getenv("GALLERY_CONFIG")
	if path == "" {
		path = "facegallery.yml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Source.Kind = envString("SOURCE_KIND", cfg.Source.Kind)
	cfg.Source.Folder = envString("SOURCE_FOLDER", cfg.Source.Folder)
	cfg.Source.URLList = envString("SOURCE_URL_LIST", cfg.Source.URLList)
	cfg.Source.FetchTimeout = envInt("SOURCE_FETCH_TIMEOUT", cfg.Source.FetchTimeout)

	cfg.Detector.Kind = envString("DETECTOR_KIND", cfg.Detector.Kind)
	cfg.Detector.Mode = envString("DETECTOR_MODE", cfg.Detector.Mode)
	cfg.Detector.Jitter = envInt("DETECTOR_JITTER", cfg.Detector.Jitter)
	cfg.Detector.ServiceURL = envString("DETECTOR_SERVICE_URL", cfg.Detector.ServiceURL)
	cfg.Detector.CascadePath = envString("DETECTOR_CASCADE_PATH", cfg.Detector.CascadePath)
	cfg.Detector.DetectorModel = envString("DETECTOR_MODEL_PATH", cfg.Detector.DetectorModel)
	cfg.Detector.EmbedderModel = envString("EMBEDDER_MODEL_PATH", cfg.Detector.EmbedderModel)

	cfg.Cluster.Tolerance = envFloat("CLUSTER_TOLERANCE", cfg.Cluster.Tolerance)
	cfg.Cluster.MinClusterSize = envInt("CLUSTER_MIN_SIZE", cfg.Cluster.MinClusterSize)

	cfg.Cache.Kind = envString("CACHE_KIND", cfg.Cache.Kind)
	cfg.Cache.Path = envString("CACHE_PATH", cfg.Cache.Path)
	cfg.Cache.DatabaseURL = envString("DATABASE_URL", cfg.Cache.DatabaseURL)
	cfg.Cache.MaxOpenConns = envInt("DATABASE_MAX_OPEN_CONNS", cfg.Cache.MaxOpenConns)
	cfg.Cache.MaxIdleConns = envInt("DATABASE_MAX_IDLE_CONNS", cfg.Cache.MaxIdleConns)
	cfg.Cache.NamesPath = envString("NAMES_PATH", cfg.Cache.NamesPath)

	cfg.Thumbnail.Size = envInt("THUMBNAIL_SIZE", cfg.Thumbnail.Size)
	cfg.Thumbnail.Padding = envInt("THUMBNAIL_PADDING", cfg.Thumbnail.Padding)

	cfg.Web.Host = envString("WEB_HOST", cfg.Web.Host)
	cfg.Web.Port = envInt("WEB_PORT", cfg.Web.Port)
	cfg.Web.AccessCode = envString("WEB_ACCESS_CODE", cfg.Web.AccessCode)
	cfg.Web.SessionSecret = envString("WEB_SESSION_SECRET", cfg.Web.SessionSecret)
}

// Validate checks field ranges and enum values.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceLocal, SourceRemote:
	default:
		return fmt.Errorf("unknown source kind %q", c.Source.Kind)
	}
	switch c.Detector.Kind {
	case DetectorGoCV, DetectorRemote:
	default:
		return fmt.Errorf("unknown detector kind %q", c.Detector.Kind)
	}
	switch c.Detector.Mode {
	case ModeFast, ModeAccurate:
	default:
		return fmt.Errorf("unknown detector mode %q", c.Detector.Mode)
	}
	if c.Detector.Jitter < 1 {
		return fmt.Errorf("detector jitter must be >= 1, got %d", c.Detector.Jitter)
	}
	if c.Cluster.Tolerance <= 0 {
		return fmt.Errorf("cluster tolerance must be positive, got %f", c.Cluster.Tolerance)
	}
	if c.Cluster.MinClusterSize < 1 {
		return fmt.Errorf("cluster min size must be >= 1, got %d", c.Cluster.MinClusterSize)
	}
	switch c.Cache.Kind {
	case CacheFile, CachePostgres:
	default:
		return fmt.Errorf("unknown cache kind %q", c.Cache.Kind)
	}
	if c.Cache.Kind == CachePostgres && c.Cache.DatabaseURL == "" {
		return fmt.Errorf("postgres cache requires DATABASE_URL")
	}
	if c.Thumbnail.Size < 1 {
		return fmt.Errorf("thumbnail size must be >= 1, got %d", c.Thumbnail.Size)
	}
	return nil
}
