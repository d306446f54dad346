package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gobwas/glob"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/On-Jun9/ShutterOrient/internal/index"
)

type Config struct {
	IncludeExtensions []string      `yaml:"include_extensions" json:"include_extensions"`
	ExcludePatterns   []string      `yaml:"exclude" json:"exclude"`
	Jobs              int           `yaml:"jobs" json:"jobs"`
	IndexBackend      index.Backend `yaml:"index_backend" json:"index_backend"`
	IndexFile         string        `yaml:"index_file" json:"index_file"`
	ContentRoot       string        `yaml:"content_root" json:"content_root"`
	HTTPTimeout       time.Duration `yaml:"http_timeout" json:"http_timeout"`
	LogFile           string        `yaml:"log_file" json:"log_file"`
	LogJSON           bool          `yaml:"log_json" json:"log_json"`
	LongestSide       int           `yaml:"longest_side" json:"longest_side"`
	JPEGQuality       int           `yaml:"jpeg_quality" json:"jpeg_quality"`
}

func stateDir() string {
	homeDir, _ := homedir.Dir()
	return filepath.Join(homeDir, ".shutterorient")
}

func DefaultConfig() *Config {
	jobs := runtime.NumCPU()
	if jobs < 1 {
		jobs = 4
	}

	dir := stateDir()

	// IndexFile stays empty so Validate can name it after the chosen backend.
	return &Config{
		IncludeExtensions: []string{
			"jpg", "jpeg", "tif", "tiff", "heic", "heif", "png", "dng", "arw", "cr2", "nef",
		},
		Jobs:         jobs,
		IndexBackend: index.BackendJSON,
		ContentRoot:  "",
		HTTPTimeout:  30 * time.Second,
		LogFile:      filepath.Join(dir, "shutterorient.log"),
		LogJSON:      false,
		LongestSide:  0,
		JPEGQuality:  80,
	}
}

func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.IndexBackend {
	case "":
		c.IndexBackend = index.BackendJSON
	case index.BackendJSON, index.BackendBolt:
	default:
		return &ValidationError{Field: "index_backend", Message: "index backend must be json or bolt"}
	}
	if c.LongestSide < 0 {
		return &ValidationError{Field: "longest_side", Message: "longest side cannot be negative"}
	}
	if c.JPEGQuality < 0 || c.JPEGQuality > 100 {
		return &ValidationError{Field: "jpeg_quality", Message: "jpeg quality must be between 1 and 100"}
	}
	for _, pattern := range c.ExcludePatterns {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return &ValidationError{Field: "exclude", Message: "invalid pattern " + pattern + ": " + err.Error()}
		}
	}
	for _, path := range []*string{&c.IndexFile, &c.LogFile, &c.ContentRoot} {
		expanded, err := homedir.Expand(*path)
		if err != nil {
			return &ValidationError{Field: "path", Message: err.Error()}
		}
		*path = expanded
	}

	if c.Jobs < 1 {
		c.Jobs = runtime.NumCPU()
		if c.Jobs < 1 {
			c.Jobs = 4
		}
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	if c.JPEGQuality == 0 {
		c.JPEGQuality = 80
	}
	if len(c.IncludeExtensions) == 0 {
		c.IncludeExtensions = DefaultConfig().IncludeExtensions
	}

	dir := stateDir()

	if c.LogFile == "" {
		c.LogFile = filepath.Join(dir, "shutterorient.log")
	}
	if c.IndexFile == "" {
		name := "orientation.json"
		if c.IndexBackend == index.BackendBolt {
			name = "orientation.db"
		}
		c.IndexFile = filepath.Join(dir, name)
	}

	return nil
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
