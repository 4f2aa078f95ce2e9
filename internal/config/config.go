package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"katalog/internal/katalog"
)

// Config represents the main configuration for katalog.
type Config struct {
	BaseDir  string         `toml:"base_dir"`
	LogDir   string         `toml:"log_dir"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Scanner  ScannerConfig  `toml:"scanner"`
	Service  ServiceConfig  `toml:"service"`
	Server   ServerConfig   `toml:"server"`
	Snapshot SnapshotConfig `toml:"snapshot"`
}

// CatalogConfig selects the SQLite driver and the default catalog file.
type CatalogConfig struct {
	Driver string `toml:"driver"` // "sqlite3" (cgo, default), "sqlite" (pure Go) or "memory"
	Path   string `toml:"path,omitempty"`
}

// ScannerConfig holds the default options applied to every scan.
type ScannerConfig struct {
	IncludeHidden  bool     `toml:"include_hidden"`
	FollowSymlinks bool     `toml:"follow_symlinks"`
	ComputeHashes  bool     `toml:"compute_hashes"`
	ReadMediaTags  bool     `toml:"read_media_tags"`
	MaxDepth       int      `toml:"max_depth"` // -1 for unlimited
	Exclude        []string `toml:"exclude"`
}

// ServiceConfig tunes the job queue and label cache.
type ServiceConfig struct {
	ProgressBatch  int    `toml:"progress_batch"`
	QueueSize      int    `toml:"queue_size"`
	LabelCacheSize int    `toml:"label_cache_size"`
	LabelCacheTTL  string `toml:"label_cache_ttl"` // time.ParseDuration syntax
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// SnapshotConfig represents configuration for the catalog snapshot sink.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type SnapshotConfig struct {
	Type string `toml:"type"` // "filesystem", "s3" or "memory"

	// Filesystem-specific fields (only used when Type == "filesystem")
	Root string `toml:"root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket string `toml:"s3_bucket,omitempty"`
	S3Prefix string `toml:"s3_prefix,omitempty"`
	S3Region string `toml:"s3_region,omitempty"`
	// S3Endpoint points at an S3-compatible service (MinIO, Garage) and
	// switches to path-style addressing.
	S3Endpoint string `toml:"s3_endpoint,omitempty"`
	// Static credentials; the default AWS credential chain is used when empty.
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// AgeRecipients encrypts pushed snapshots when non-empty.
	AgeRecipients []string `toml:"age_recipients,omitempty"`
	// AgeIdentityPath decrypts pulled snapshots.
	AgeIdentityPath string `toml:"age_identity_path,omitempty"`
}

// NewConfig creates a new Config rooted at baseDir with default settings.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Catalog: CatalogConfig{
			Driver: "sqlite3",
			Path:   filepath.Join(baseDir, "catalog.katalog"),
		},
		Scanner: ScannerConfig{MaxDepth: -1},
		Service: ServiceConfig{
			ProgressBatch:  100,
			QueueSize:      16,
			LabelCacheSize: 256,
			LabelCacheTTL:  "1m",
		},
		Server: ServerConfig{Addr: "127.0.0.1:7788"},
		Snapshot: SnapshotConfig{
			Type: "filesystem",
			Root: filepath.Join(baseDir, "snapshots"),
		},
	}
}

// ScanOptions converts the scanner section into scan options.
func (c *Config) ScanOptions() katalog.ScanOptions {
	return katalog.ScanOptions{
		MaxDepth:        c.Scanner.MaxDepth,
		FollowSymlinks:  c.Scanner.FollowSymlinks,
		IncludeHidden:   c.Scanner.IncludeHidden,
		ComputeHashes:   c.Scanner.ComputeHashes,
		ReadMediaTags:   c.Scanner.ReadMediaTags,
		ExcludePatterns: append([]string(nil), c.Scanner.Exclude...),
	}
}

// ServiceConfig converts the catalog, scanner and service sections into the
// service's construction values. Zero values fall back to the service
// defaults.
func (c *Config) ServiceConfig() (katalog.ServiceConfig, error) {
	cfg := katalog.DefaultServiceConfig()
	cfg.DefaultCatalogPath = c.Catalog.Path
	cfg.ScanDefaults = c.ScanOptions()
	if c.Service.ProgressBatch > 0 {
		cfg.ProgressBatch = c.Service.ProgressBatch
	}
	if c.Service.QueueSize > 0 {
		cfg.QueueSize = c.Service.QueueSize
	}
	if c.Service.LabelCacheSize > 0 {
		cfg.LabelCacheSize = c.Service.LabelCacheSize
	}
	if c.Service.LabelCacheTTL != "" {
		ttl, err := time.ParseDuration(c.Service.LabelCacheTTL)
		if err != nil {
			return cfg, fmt.Errorf("invalid label_cache_ttl %q: %w", c.Service.LabelCacheTTL, err)
		}
		cfg.LabelCacheTTL = ttl
	}
	return cfg, nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader. Keys missing from the
// input keep their NewConfig defaults; paths left empty are derived from
// base_dir.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	cfg := NewConfig("")
	cfg.LogDir = ""
	cfg.Catalog.Path = ""
	cfg.Snapshot.Root = ""
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.derivePaths()
	return cfg, nil
}

// derivePaths fills empty paths below BaseDir.
func (c *Config) derivePaths() {
	if c.BaseDir == "" {
		return
	}
	defaults := NewConfig(c.BaseDir)
	if c.LogDir == "" {
		c.LogDir = defaults.LogDir
	}
	if c.Catalog.Path == "" && c.Catalog.Driver != "memory" {
		c.Catalog.Path = defaults.Catalog.Path
	}
	if c.Snapshot.Root == "" && c.Snapshot.Type == "filesystem" {
		c.Snapshot.Root = defaults.Snapshot.Root
	}
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
