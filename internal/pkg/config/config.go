package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/canopyops/geoscene/internal/core/domain"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Database   DatabaseConfig    `mapstructure:"database"`
	NATS       NATSConfig        `mapstructure:"nats"`
	Valkey     ValkeyConfig      `mapstructure:"valkey"`
	Telemetry  TelemetryConfig   `mapstructure:"telemetry"`
	Log        LogConfig         `mapstructure:"log"`
	Mapbox     MapboxConfig      `mapstructure:"mapbox"`
	Scene      SceneConfig       `mapstructure:"scene"`
	GeoIP      GeoIPConfig       `mapstructure:"geoip"`
	Facilities []domain.Facility `mapstructure:"facilities"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	AllowOrigins string `mapstructure:"allow_origins"`
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

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// File switches output to a rotating log file when set.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type MapboxConfig struct {
	AccessToken string `mapstructure:"access_token"`
	StyleURL    string `mapstructure:"style_url"`
	APIBase     string `mapstructure:"api_base"`
	ImageryURL  string `mapstructure:"imagery_url"`
}

type SceneConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	ArcSegments     int           `mapstructure:"arc_segments"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	JourneyLimit    int           `mapstructure:"journey_limit"`
	DefaultView     ViewConfig    `mapstructure:"default_view"`
}

type ViewConfig struct {
	Lon        float64 `mapstructure:"lon"`
	Lat        float64 `mapstructure:"lat"`
	Zoom       float64 `mapstructure:"zoom"`
	Pitch      float64 `mapstructure:"pitch"`
	Bearing    float64 `mapstructure:"bearing"`
	DurationMS int     `mapstructure:"duration_ms"`
}

// Camera converts the view to a domain camera.
func (v ViewConfig) Camera() domain.Camera {
	return domain.Camera{
		Center:  domain.Coordinate{Lat: v.Lat, Lon: v.Lon},
		Zoom:    v.Zoom,
		Pitch:   v.Pitch,
		Bearing: v.Bearing,
	}
}

// Duration is the reset-view animation length.
func (v ViewConfig) Duration() time.Duration {
	return time.Duration(v.DurationMS) * time.Millisecond
}

type GeoIPConfig struct {
	// DBPath is a MaxMind-format city database. Empty disables IP lookups.
	DBPath string `mapstructure:"db_path"`
}

// DefaultFacilities are the fulfilment sites shown when none are configured.
var DefaultFacilities = []domain.Facility{
	{ID: "fc-oak", Name: "Oakland Fulfillment Center", Kind: "fulfillment", City: "Oakland", State: "CA", Position: domain.Coordinate{Lat: 37.8044, Lon: -122.2712}},
	{ID: "fc-den", Name: "Denver Cross-Dock", Kind: "cross_dock", City: "Denver", State: "CO", Position: domain.Coordinate{Lat: 39.7392, Lon: -104.9903}},
	{ID: "fc-dfw", Name: "Dallas Distribution Hub", Kind: "distribution", City: "Dallas", State: "TX", Position: domain.Coordinate{Lat: 32.7767, Lon: -96.7970}},
	{ID: "fc-chi", Name: "Chicago Returns Center", Kind: "returns", City: "Chicago", State: "IL", Position: domain.Coordinate{Lat: 41.8781, Lon: -87.6298}},
	{ID: "fc-ewr", Name: "Newark Fulfillment Center", Kind: "fulfillment", City: "Newark", State: "NJ", Position: domain.Coordinate{Lat: 40.7357, Lon: -74.1724}},
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.allow_origins", "http://localhost:3000, http://localhost:5173")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "backoffice")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "backoffice")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("mapbox.access_token", "")
	v.SetDefault("mapbox.style_url", "mapbox://styles/mapbox/dark-v11")
	v.SetDefault("mapbox.api_base", "https://api.mapbox.com")
	v.SetDefault("mapbox.imagery_url", "mapbox://mapbox.satellite")
	v.SetDefault("scene.refresh_interval", "30s")
	v.SetDefault("scene.arc_segments", 20)
	v.SetDefault("scene.cache_ttl", "5m")
	v.SetDefault("scene.journey_limit", 50)
	v.SetDefault("scene.default_view.lon", -98.5795)
	v.SetDefault("scene.default_view.lat", 39.8283)
	v.SetDefault("scene.default_view.zoom", 3.5)
	v.SetDefault("scene.default_view.pitch", 35)
	v.SetDefault("scene.default_view.bearing", 0)
	v.SetDefault("scene.default_view.duration_ms", 2000)
	v.SetDefault("geoip.db_path", "")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: GEOSCENE_MAPBOX_ACCESS_TOKEN → mapbox.access_token
	v.SetEnvPrefix("GEOSCENE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(cfg.Facilities) == 0 {
		cfg.Facilities = append([]domain.Facility(nil), DefaultFacilities...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
// A missing map token is allowed; the scene reports it at runtime.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
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
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Scene.RefreshInterval < time.Second {
		errs = append(errs, fmt.Sprintf("scene.refresh_interval must be at least 1s, got %s", c.Scene.RefreshInterval))
	}
	if c.Scene.ArcSegments < 1 || c.Scene.ArcSegments > 256 {
		errs = append(errs, fmt.Sprintf("scene.arc_segments must be 1-256, got %d", c.Scene.ArcSegments))
	}
	if c.Scene.JourneyLimit < 1 {
		errs = append(errs, "scene.journey_limit must be positive")
	}
	if dv := c.Scene.DefaultView; !(domain.Coordinate{Lat: dv.Lat, Lon: dv.Lon}).Valid() {
		errs = append(errs, fmt.Sprintf("scene.default_view is not a valid coordinate: %v,%v", dv.Lon, dv.Lat))
	}
	if c.Scene.DefaultView.Zoom < 0 || c.Scene.DefaultView.Zoom > 22 {
		errs = append(errs, "scene.default_view.zoom must be 0-22")
	}
	for i, f := range c.Facilities {
		if f.ID == "" || !f.Position.Valid() {
			errs = append(errs, fmt.Sprintf("facilities[%d] needs an id and a valid position", i))
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("log.format must be json or text, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
