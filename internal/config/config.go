package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "potamap.cfg.json"

// EnvPrefix prefixes environment overrides, e.g. POTAMAP_FEED_SPOTSURL.
const EnvPrefix = "POTAMAP"

const (
	DefaultParksURL = "https://potaparksk8jku.s3.amazonaws.com/national_parks_us.json"
	DefaultSpotsURL = "https://api.pota.app/spot/"
	DefaultTileURL  = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
)

// FeedConfig holds the upstream feed settings.
type FeedConfig struct {
	ParksURL  string        `json:"parksUrl" mapstructure:"parksUrl"`
	SpotsURL  string        `json:"spotsUrl" mapstructure:"spotsUrl"`
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
	UserAgent string        `json:"userAgent" mapstructure:"userAgent"`
}

// MapConfig holds the initial map view.
type MapConfig struct {
	CenterLat float64
	CenterLon float64
	Zoom      int
	South     float64
	West      float64
	North     float64
	East      float64
	TileURL   string
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// InfluxConfig holds the optional InfluxDB metrics sink settings.
type InfluxConfig struct {
	Enabled bool
	URL     string
	Token   string
	Org     string
	Bucket  string
}

// GraylogConfig holds the optional GELF log sink settings.
type GraylogConfig struct {
	Enabled bool
	Address string
	Level   string // minimum level shipped; the global logLevel still applies
}

// Load reads configuration from the JSON file in configDir and sets default values.
// A .env file in the working directory is loaded first so POTAMAP_* variables
// from it take part in the environment override.
// A missing config file is reported as an error, but defaults stay usable.
func Load(configDir string) error {
	setDefaults()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigFile(filepath.Join(configDir, FileName))
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("server.listen", ":8080")

	viper.SetDefault("feed.parksUrl", DefaultParksURL)
	viper.SetDefault("feed.spotsUrl", DefaultSpotsURL)
	viper.SetDefault("feed.timeout", "30s")
	viper.SetDefault("feed.userAgent", "potamap")

	viper.SetDefault("refresh.interval", "60s")

	viper.SetDefault("display.timezone", "Local")

	viper.SetDefault("map.center.lat", 37.8)
	viper.SetDefault("map.center.lon", -96.0)
	viper.SetDefault("map.zoom", 4)
	viper.SetDefault("map.bounds.south", 24.396308)
	viper.SetDefault("map.bounds.west", -124.848974)
	viper.SetDefault("map.bounds.north", 49.384358)
	viper.SetDefault("map.bounds.east", -66.885444)
	viper.SetDefault("map.tileUrl", DefaultTileURL)

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "potamap")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")
	viper.SetDefault("graylog.level", "warn")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.url", "http://localhost:8086")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "potamap")
	viper.SetDefault("influx.bucket", "potamap_metrics")
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetFeedConfig returns the feed endpoints and client settings.
func GetFeedConfig() FeedConfig {
	return FeedConfig{
		ParksURL:  viper.GetString("feed.parksUrl"),
		SpotsURL:  viper.GetString("feed.spotsUrl"),
		Timeout:   viper.GetDuration("feed.timeout"),
		UserAgent: viper.GetString("feed.userAgent"),
	}
}

// GetRefreshInterval returns the spot refresh period.
func GetRefreshInterval() time.Duration {
	return viper.GetDuration("refresh.interval")
}

// GetTimezone returns the time zone used for popup times.
func GetTimezone() (*time.Location, error) {
	name := viper.GetString("display.timezone")
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown display.timezone %q: %w", name, err)
	}
	return loc, nil
}

// GetMapConfig returns the initial map view settings.
func GetMapConfig() MapConfig {
	return MapConfig{
		CenterLat: viper.GetFloat64("map.center.lat"),
		CenterLon: viper.GetFloat64("map.center.lon"),
		Zoom:      viper.GetInt("map.zoom"),
		South:     viper.GetFloat64("map.bounds.south"),
		West:      viper.GetFloat64("map.bounds.west"),
		North:     viper.GetFloat64("map.bounds.north"),
		East:      viper.GetFloat64("map.bounds.east"),
		TileURL:   viper.GetString("map.tileUrl"),
	}
}

// GetOTelConfig returns OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetInfluxConfig returns the InfluxDB sink settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled: viper.GetBool("influx.enabled"),
		URL:     viper.GetString("influx.url"),
		Token:   viper.GetString("influx.token"),
		Org:     viper.GetString("influx.org"),
		Bucket:  viper.GetString("influx.bucket"),
	}
}

// GetGraylogConfig returns the GELF sink settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
		Level:   viper.GetString("graylog.level"),
	}
}
