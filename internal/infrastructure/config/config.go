package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for dropdash.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Stream    StreamConfig    `yaml:"stream"`
	Render    RenderConfig    `yaml:"render"`
	Board     BoardConfig     `yaml:"board"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// DeviceConfig locates the electrode controller.
type DeviceConfig struct {
	Host      string `yaml:"host"`
	RPCPort   int    `yaml:"rpc_port"`
	RPCPath   string `yaml:"rpc_path"`
	EventPort int    `yaml:"event_port"`
	EventPath string `yaml:"event_path"`
	// RPCTimeout bounds each command in seconds.
	RPCTimeout int `yaml:"rpc_timeout"`
}

// StreamConfig contains telemetry stream settings.
type StreamConfig struct {
	ReconnectBackoffMS int   `yaml:"reconnect_backoff_ms"`
	ReadLimit          int64 `yaml:"read_limit"`
	// Codec is "protobuf" (device wire format) or "json".
	Codec string `yaml:"codec"`
}

// RenderConfig contains renderer pacing and interaction settings.
type RenderConfig struct {
	MinRenderPeriodMS int     `yaml:"min_render_period_ms"`
	ImageExpiryMS     int     `yaml:"image_expiry_ms"`
	MaxBrush          int     `yaml:"max_brush"`
	ViewWidth         float64 `yaml:"view_width"`
	ViewHeight        float64 `yaml:"view_height"`
}

// BoardConfig selects where the board definition comes from.
// An empty File means the device is asked via get_board_definition.
type BoardConfig struct {
	File  string `yaml:"file"`
	Watch bool   `yaml:"watch"`
	// DebounceMS coalesces bursts of file writes.
	DebounceMS int `yaml:"debounce_ms"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT telemetry relay settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains telemetry history settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
	// PanelDir serves the renderer from disk instead of the embedded copy.
	PanelDir string `yaml:"panel_dir"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains renderer websocket settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults), skipped when path is empty
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: DROPDASH_SECTION_KEY
// For example: DROPDASH_DEVICE_HOST, DROPDASH_API_PORT
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with working defaults for a local device.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Host:       "localhost",
			RPCPort:    7000,
			RPCPath:    "/rpc",
			EventPort:  7001,
			EventPath:  "/",
			RPCTimeout: 5,
		},
		Stream: StreamConfig{
			ReconnectBackoffMS: 5000,
			ReadLimit:          8 << 20,
			Codec:              "protobuf",
		},
		Render: RenderConfig{
			MinRenderPeriodMS: 500,
			ImageExpiryMS:     3000,
			MaxBrush:          5,
			ViewWidth:         800,
			ViewHeight:        600,
		},
		Board: BoardConfig{
			DebounceMS: 250,
		},
		Database: DatabaseConfig{
			Path:        "./data/dropdash.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "dropdash",
			},
			QoS:         0,
			TopicPrefix: "dropdash",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			URL:           "http://localhost:8086",
			Org:           "dropdash",
			Bucket:        "telemetry",
			BatchSize:     500,
			FlushInterval: 1,
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  15,
				Write: 15,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// applyEnvOverrides applies DROPDASH_* environment variable overrides.
func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"DROPDASH_DEVICE_HOST":    &cfg.Device.Host,
		"DROPDASH_BOARD_FILE":     &cfg.Board.File,
		"DROPDASH_DATABASE_PATH":  &cfg.Database.Path,
		"DROPDASH_MQTT_HOST":      &cfg.MQTT.Broker.Host,
		"DROPDASH_MQTT_USERNAME":  &cfg.MQTT.Auth.Username,
		"DROPDASH_MQTT_PASSWORD":  &cfg.MQTT.Auth.Password,
		"DROPDASH_INFLUXDB_URL":   &cfg.InfluxDB.URL,
		"DROPDASH_INFLUXDB_TOKEN": &cfg.InfluxDB.Token,
		"DROPDASH_API_HOST":       &cfg.API.Host,
		"DROPDASH_API_PANEL_DIR":  &cfg.API.PanelDir,
		"DROPDASH_LOGGING_LEVEL":  &cfg.Logging.Level,
		"DROPDASH_LOGGING_FORMAT": &cfg.Logging.Format,
		"DROPDASH_STREAM_CODEC":   &cfg.Stream.Codec,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"DROPDASH_DEVICE_RPC_PORT":             &cfg.Device.RPCPort,
		"DROPDASH_DEVICE_EVENT_PORT":           &cfg.Device.EventPort,
		"DROPDASH_API_PORT":                    &cfg.API.Port,
		"DROPDASH_STREAM_RECONNECT_BACKOFF_MS": &cfg.Stream.ReconnectBackoffMS,
		"DROPDASH_RENDER_MIN_RENDER_PERIOD_MS": &cfg.Render.MinRenderPeriodMS,
	}
	var errs []error
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		*dst = n
	}

	bools := map[string]*bool{
		"DROPDASH_MQTT_ENABLED":     &cfg.MQTT.Enabled,
		"DROPDASH_INFLUXDB_ENABLED": &cfg.InfluxDB.Enabled,
		"DROPDASH_BOARD_WATCH":      &cfg.Board.Watch,
		"DROPDASH_METRICS_ENABLED":  &cfg.Metrics.Enabled,
	}
	for key, dst := range bools {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		*dst = b
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("environment overrides: %w", err)
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Device.Host == "" {
		errs = append(errs, "device.host is required")
	}
	if !validPort(c.Device.RPCPort) {
		errs = append(errs, "device.rpc_port must be between 1 and 65535")
	}
	if !validPort(c.Device.EventPort) {
		errs = append(errs, "device.event_port must be between 1 and 65535")
	}

	if c.Stream.ReconnectBackoffMS <= 0 {
		errs = append(errs, "stream.reconnect_backoff_ms must be positive")
	}
	if c.Stream.Codec != "protobuf" && c.Stream.Codec != "json" {
		errs = append(errs, "stream.codec must be protobuf or json")
	}

	if c.Render.MinRenderPeriodMS <= 0 {
		errs = append(errs, "render.min_render_period_ms must be positive")
	}
	if c.Render.ImageExpiryMS <= 0 {
		errs = append(errs, "render.image_expiry_ms must be positive")
	}
	if c.Render.MaxBrush < 1 {
		errs = append(errs, "render.max_brush must be at least 1")
	}
	if c.Render.ViewWidth <= 0 || c.Render.ViewHeight <= 0 {
		errs = append(errs, "render.view_width and render.view_height must be positive")
	}

	if c.Board.Watch && c.Board.File == "" {
		errs = append(errs, "board.watch requires board.file")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if !validPort(c.API.Port) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func validPort(p int) bool {
	return p >= 1 && p <= 65535
}

// RPCURL returns the device JSON-RPC endpoint.
func (d DeviceConfig) RPCURL() string {
	return "http://" + net.JoinHostPort(d.Host, strconv.Itoa(d.RPCPort)) + d.RPCPath
}

// EventURL returns the device telemetry websocket endpoint.
func (d DeviceConfig) EventURL() string {
	return "ws://" + net.JoinHostPort(d.Host, strconv.Itoa(d.EventPort)) + d.EventPath
}

// GetRPCTimeout returns the per-command timeout.
func (c *Config) GetRPCTimeout() time.Duration {
	return time.Duration(c.Device.RPCTimeout) * time.Second
}

// GetReconnectBackoff returns the stream reconnect delay.
func (c *Config) GetReconnectBackoff() time.Duration {
	return time.Duration(c.Stream.ReconnectBackoffMS) * time.Millisecond
}

// GetMinRenderPeriod returns the passive update pacing period.
func (c *Config) GetMinRenderPeriod() time.Duration {
	return time.Duration(c.Render.MinRenderPeriodMS) * time.Millisecond
}

// GetImageExpiry returns how long a camera frame stays visible without a
// newer one.
func (c *Config) GetImageExpiry() time.Duration {
	return time.Duration(c.Render.ImageExpiryMS) * time.Millisecond
}

// GetBoardDebounce returns the board file reload debounce.
func (c *Config) GetBoardDebounce() time.Duration {
	return time.Duration(c.Board.DebounceMS) * time.Millisecond
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
