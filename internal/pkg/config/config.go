package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	EarthEngine EarthEngineConfig `mapstructure:"earthengine"`
	Viewer      ViewerConfig      `mapstructure:"viewer"`
	Database    DatabaseConfig    `mapstructure:"database"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Valkey      ValkeyConfig      `mapstructure:"valkey"`
	Temporal    TemporalConfig    `mapstructure:"temporal"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EarthEngineConfig configures the hosted catalog and rendering API.
// AccessToken, when set, bypasses application default credentials.
type EarthEngineConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	Project      string `mapstructure:"project"`
	AccessToken  string `mapstructure:"access_token"`
	Timeout      int    `mapstructure:"timeout"`
	ThumbnailTTL int    `mapstructure:"thumbnail_ttl"`
}

func (e EarthEngineConfig) RequestTimeout() time.Duration {
	return time.Duration(e.Timeout) * time.Second
}

// ViewerConfig is the initial map position served to the browser viewer.
type ViewerConfig struct {
	CenterLon float64 `mapstructure:"center_lon"`
	CenterLat float64 `mapstructure:"center_lat"`
	Zoom      int     `mapstructure:"zoom"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	TaskQueue string `mapstructure:"task_queue"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	return LoadFile(service, "")
}

// LoadFile is Load with an explicit config file path. An empty path searches
// ./config.yaml and ./configs/config.yaml.
func LoadFile(service, path string) (*Config, error) {
	return load(service, path, nil)
}

// LoadFlags reads the config file named by the "config" flag, then applies
// flags whose names are config keys ("viewer.zoom", "earthengine.project")
// over file and environment values.
func LoadFlags(service string, fs *pflag.FlagSet) (*Config, error) {
	path, _ := fs.GetString("config")
	return load(service, path, fs)
}

func load(service, path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		_ = v.ReadInConfig() // OK if missing
	}

	// Environment variables: CANOPY_EARTHENGINE_PROJECT → earthengine.project
	v.SetEnvPrefix("CANOPY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		known := make(map[string]bool)
		for _, k := range v.AllKeys() {
			known[k] = true
		}
		var bindErr error
		fs.VisitAll(func(f *pflag.Flag) {
			if !known[f.Name] || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(f.Name, f)
		})
		if bindErr != nil {
			return nil, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("earthengine.base_url", "https://earthengine.googleapis.com")
	v.SetDefault("earthengine.project", "")
	v.SetDefault("earthengine.access_token", "")
	v.SetDefault("earthengine.timeout", 60)
	v.SetDefault("earthengine.thumbnail_ttl", 3600)
	v.SetDefault("viewer.center_lon", 10.0)
	v.SetDefault("viewer.center_lat", 0.0)
	v.SetDefault("viewer.zoom", 5)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "canopy")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "canopyviz")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.task_queue", "thumbnail-queue")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if u, err := url.Parse(c.EarthEngine.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("earthengine.base_url must be an absolute URL, got %q", c.EarthEngine.BaseURL))
	}
	if c.EarthEngine.Project == "" {
		errs = append(errs, "earthengine.project is required")
	}
	if c.EarthEngine.Timeout <= 0 {
		errs = append(errs, "earthengine.timeout must be positive")
	}
	if c.EarthEngine.ThumbnailTTL < 0 {
		errs = append(errs, "earthengine.thumbnail_ttl must not be negative")
	}
	if c.Viewer.CenterLat < -90 || c.Viewer.CenterLat > 90 {
		errs = append(errs, fmt.Sprintf("viewer.center_lat must be -90..90, got %g", c.Viewer.CenterLat))
	}
	if c.Viewer.CenterLon < -180 || c.Viewer.CenterLon > 180 {
		errs = append(errs, fmt.Sprintf("viewer.center_lon must be -180..180, got %g", c.Viewer.CenterLon))
	}
	if c.Viewer.Zoom < 0 || c.Viewer.Zoom > 24 {
		errs = append(errs, fmt.Sprintf("viewer.zoom must be 0-24, got %d", c.Viewer.Zoom))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
