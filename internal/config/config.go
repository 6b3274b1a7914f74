package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/gst-filter/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Snapshot SnapshotConfig `yaml:"snapshot" mapstructure:"snapshot"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Geo      GeoConfig      `yaml:"geo" mapstructure:"geo"`
	Credits  CreditsConfig  `yaml:"credits" mapstructure:"credits"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// Snapshot source kinds.
const (
	SourceFile     = "file"
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
)

// SnapshotConfig selects where the full registration snapshot is read from.
type SnapshotConfig struct {
	Source       string `yaml:"source" mapstructure:"source"` // file | sqlite | postgres
	Path         string `yaml:"path" mapstructure:"path"`     // file path or SQLite DSN
	CacheTTLSecs int    `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
}

// CacheTTL returns the snapshot cache lifetime; zero means forever.
func (c SnapshotConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSecs) * time.Second
}

// StoreConfig configures the Postgres/PostGIS database.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// Geo backends.
const (
	GeoNone      = "none"
	GeoPostGIS   = "postgis"
	GeoShapefile = "shapefile"
)

// GeoConfig configures geographic-shape mode.
type GeoConfig struct {
	Backend     string            `yaml:"backend" mapstructure:"backend"`
	Shapefiles  []ShapefileConfig `yaml:"shapefiles" mapstructure:"shapefiles"`
	Concurrency int               `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimit   float64           `yaml:"rate_limit" mapstructure:"rate_limit"` // lookups per second, 0 = unlimited
	RateBurst   int               `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// ShapefileConfig names one shapefile served by the shapefile backend.
type ShapefileConfig struct {
	Path      string `yaml:"path" mapstructure:"path"`
	Level     string `yaml:"level" mapstructure:"level"`
	NameField string `yaml:"name_field" mapstructure:"name_field"`
}

// CreditsConfig configures export budgets.
type CreditsConfig struct {
	Initial int `yaml:"initial" mapstructure:"initial"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GSTFILTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("snapshot.source", SourceFile)
	v.SetDefault("snapshot.path", "gst_snapshot.csv")
	v.SetDefault("snapshot.cache_ttl_secs", 0)
	v.SetDefault("store.database_url", "")
	v.SetDefault("geo.backend", GeoNone)
	v.SetDefault("geo.concurrency", 4)
	v.SetDefault("geo.rate_limit", 0)
	v.SetDefault("geo.rate_burst", 1)
	v.SetDefault("credits.initial", 10000)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode needs. Modes: filter,
// options, serve, shapes.
func (c *Config) Validate(mode string) error {
	var errs []string
	switch mode {
	case "filter", "options":
		errs = c.validateSnapshot(errs)
		if mode == "filter" {
			errs = c.validateGeo(errs)
		}
	case "serve":
		errs = c.validateSnapshot(errs)
		errs = c.validateGeo(errs)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "shapes":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateSnapshot(errs []string) []string {
	switch c.Snapshot.Source {
	case SourceFile, SourceSQLite:
		if c.Snapshot.Path == "" {
			errs = append(errs, "snapshot.path is required")
		}
	case SourcePostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for snapshot.source=postgres")
		}
	default:
		errs = append(errs, "snapshot.source must be file, sqlite, or postgres")
	}
	if c.Snapshot.CacheTTLSecs < 0 {
		errs = append(errs, "snapshot.cache_ttl_secs must be >= 0")
	}
	return errs
}

func (c *Config) validateGeo(errs []string) []string {
	switch c.Geo.Backend {
	case "", GeoNone:
		return errs
	case GeoPostGIS:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for geo.backend=postgis")
		}
	case GeoShapefile:
		if len(c.Geo.Shapefiles) == 0 {
			errs = append(errs, "geo.shapefiles must list at least one shapefile")
		}
		for i, sf := range c.Geo.Shapefiles {
			if sf.Path == "" || sf.NameField == "" {
				errs = append(errs, fmt.Sprintf("geo.shapefiles[%d] needs path and name_field", i))
			}
			if lvl, err := model.ParseScopeLevel(sf.Level); err != nil || !lvl.Geographic() {
				errs = append(errs, fmt.Sprintf("geo.shapefiles[%d].level must be state or city", i))
			}
		}
	default:
		errs = append(errs, "geo.backend must be none, postgis, or shapefile")
	}
	if c.Geo.Concurrency <= 0 {
		errs = append(errs, "geo.concurrency must be > 0")
	}
	if c.Geo.RateLimit < 0 {
		errs = append(errs, "geo.rate_limit must be >= 0")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
