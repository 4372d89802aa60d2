// Package config loads the harvester's YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"tidbyt.dev/gtfsmeta/model"
	"tidbyt.dev/gtfsmeta/process"
	"tidbyt.dev/gtfsmeta/storage"
)

type Config struct {
	// Directory holding downloaded archives and, for the sqlite
	// driver, the catalog database.
	WorkDir string `yaml:"work_dir" validate:"required"`

	// Dataset versions processed concurrently.
	Workers         int           `yaml:"workers" validate:"gte=1"`
	RefreshInterval time.Duration `yaml:"refresh_interval" validate:"gte=0"`
	KeepArchives    bool          `yaml:"keep_archives"`

	// "service_date" (default) or "now". Decides which instant's
	// UTC offset timestamps carry.
	OffsetClock string `yaml:"offset_clock" validate:"oneof=service_date now"`

	// Replacement names for basic route types, keyed on the GTFS
	// route_type value.
	RouteTypeKeys map[int]string `yaml:"route_type_keys" validate:"dive,keys,gte=0,lte=12,endkeys,required"`

	Download DownloadConfig `yaml:"download"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
	Sources  []SourceConfig `yaml:"sources" validate:"unique=ID,dive"`
}

type DownloadConfig struct {
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`

	// Largest archive accepted, in bytes.
	MaxSize int `yaml:"max_size" validate:"gte=0"`

	// Where downloads are cached: "none" (default), "memory" or
	// "filesystem" (the work dir, surviving restarts).
	Cache    string        `yaml:"cache" validate:"oneof=none memory filesystem"`
	CacheTTL time.Duration `yaml:"cache_ttl" validate:"gte=0"`
}

// TTL of cached downloads. Zero when caching is off.
func (d DownloadConfig) EffectiveCacheTTL() time.Duration {
	if d.Cache == "none" {
		return 0
	}
	return d.CacheTTL
}

type StorageConfig struct {
	Driver string `yaml:"driver" validate:"oneof=memory sqlite postgres"`

	// Postgres connection string.
	DSN string `yaml:"dsn" validate:"required_if=Driver postgres"`

	// Drop and recreate postgres tables on startup.
	ClearDB bool `yaml:"clear_db"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

type SourceConfig struct {
	ID      string            `yaml:"id" validate:"required,excludesall=/\\"`
	Name    string            `yaml:"name"`
	URL     string            `yaml:"url" validate:"required,url"`
	Headers map[string]string `yaml:"headers"`
}

// Load reads, defaults and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	// Relative work dirs are relative to the config file.
	if !filepath.IsAbs(cfg.WorkDir) {
		cfg.WorkDir = filepath.Join(filepath.Dir(path), cfg.WorkDir)
	}

	return cfg, nil
}

// Parse decodes, defaults and validates YAML config data.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}

	setDefaults(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.WorkDir == "" {
		cfg.WorkDir = "."
	}
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = 12 * time.Hour
	}
	if cfg.OffsetClock == "" {
		cfg.OffsetClock = "service_date"
	}
	if cfg.Download.Timeout == 0 {
		cfg.Download.Timeout = 60 * time.Second
	}
	if cfg.Download.MaxSize == 0 {
		cfg.Download.MaxSize = 800 << 20
	}
	if cfg.Download.Cache == "" {
		cfg.Download.Cache = "none"
	}
	if cfg.Download.Cache != "none" && cfg.Download.CacheTTL == 0 {
		cfg.Download.CacheTTL = time.Hour
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// Clock returns the configured offset clock.
func (c *Config) Clock() process.OffsetClock {
	if c.OffsetClock == "now" {
		return process.ClockNow
	}
	return process.ClockServiceDate
}

// RouteTypes returns the route type names with overrides applied.
func (c *Config) RouteTypes() process.RouteTypeKeys {
	overrides := make(map[model.RouteType]string, len(c.RouteTypeKeys))
	for t, k := range c.RouteTypeKeys {
		overrides[model.RouteType(t)] = k
	}
	return process.NewRouteTypeKeys(overrides)
}

// StorageSources converts the configured sources to storage records.
func (c *Config) StorageSources() []storage.Source {
	sources := make([]storage.Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		sources = append(sources, storage.Source{
			ID:      s.ID,
			Name:    s.Name,
			URL:     s.URL,
			Headers: s.Headers,
		})
	}
	return sources
}

// OpenStorage connects to the configured catalog.
func (c *Config) OpenStorage() (storage.Storage, error) {
	switch c.Storage.Driver {
	case "memory":
		return storage.NewMemoryStorage(), nil
	case "sqlite":
		s, err := storage.NewSQLiteStorage(storage.SQLiteConfig{
			OnDisk:    true,
			Directory: c.WorkDir,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := storage.NewPSQLStorage(c.Storage.DSN, c.Storage.ClearDB)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
}
