package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for VoiceBridge. It is populated from
// a YAML file with VOICEBRIDGE_* environment variables layered on top.
type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	HomeAssistant HomeAssistantConfig `yaml:"homeassistant"`
	Artifacts     ArtifactsConfig     `yaml:"artifacts"`
	API           APIConfig           `yaml:"api"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	InfluxDB      InfluxDBConfig      `yaml:"influxdb"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// DatabaseConfig locates the SQLite file and tunes how it is opened.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// HomeAssistantConfig contains hub connection settings.
type HomeAssistantConfig struct {
	// URL is the hub's base URL, e.g. "http://homeassistant.local:8123".
	URL string `yaml:"url"`

	// Token is a long-lived access token. Always set via
	// VOICEBRIDGE_HA_TOKEN in production rather than the file.
	Token string `yaml:"token"`

	// RequestTimeout bounds each REST call, in seconds.
	RequestTimeout int `yaml:"request_timeout"`

	// WebSocketTimeout bounds each WebSocket command round trip, in seconds.
	WebSocketTimeout int `yaml:"websocket_timeout"`
}

// ArtifactsConfig contains generated-file output settings.
type ArtifactsConfig struct {
	// OutputDir is the allow-listed directory all generated artifacts
	// are confined to, typically the hub's packages directory.
	OutputDir string `yaml:"output_dir"`
}

// APIConfig carries the HTTP listener settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig points at the certificate pair used when serving HTTPS.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig holds the listener timeouts, in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig lists what the browser UI may send cross-origin.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// MQTTConfig contains MQTT broker connection settings. The broker is
// optional; when disabled no event announcements are published.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig identifies the broker to connect to.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig carries broker credentials. The password belongs in
// VOICEBRIDGE_MQTT_PASSWORD rather than the file.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig shapes the broker reconnect backoff, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig carries settings for the optional metrics sink.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig selects log level, format, and destination.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads the YAML file at path and returns the validated Config.
//
// Values resolve in three layers, each overriding the one before:
//  1. built-in defaults
//  2. the YAML file
//  3. VOICEBRIDGE_* environment variables
//
// Secrets (hub token, broker password, InfluxDB token) belong in layer
// three so the file can be committed without them.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig is the layer-one baseline: a working single-host install
// with the optional MQTT and InfluxDB sinks switched off.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/voicebridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		HomeAssistant: HomeAssistantConfig{
			URL:              "http://localhost:8123",
			RequestTimeout:   10,
			WebSocketTimeout: 30,
		},
		Artifacts: ArtifactsConfig{
			OutputDir: "./packages",
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8098,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "voicebridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides layers VOICEBRIDGE_* variables over the file values.
// Only settings that deployments vary per host, plus every secret, get an
// override hook.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VOICEBRIDGE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("VOICEBRIDGE_HA_URL"); v != "" {
		cfg.HomeAssistant.URL = v
	}
	if v := os.Getenv("VOICEBRIDGE_HA_TOKEN"); v != "" {
		cfg.HomeAssistant.Token = v
	}

	if v := os.Getenv("VOICEBRIDGE_ARTIFACTS_DIR"); v != "" {
		cfg.Artifacts.OutputDir = v
	}

	if v := os.Getenv("VOICEBRIDGE_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	if v := os.Getenv("VOICEBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("VOICEBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("VOICEBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("VOICEBRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate collects every configuration problem in one pass so a broken
// deployment can fix them all in a single edit.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// Home Assistant validation. The hub token gates every registry
	// read and service call, so refuse to start without it.
	if c.HomeAssistant.URL == "" {
		errs = append(errs, "homeassistant.url is required")
	} else if _, err := url.Parse(c.HomeAssistant.URL); err != nil {
		errs = append(errs, "homeassistant.url is not a valid URL")
	}
	if c.HomeAssistant.Token == "" {
		errs = append(errs, "homeassistant.token is required (set VOICEBRIDGE_HA_TOKEN environment variable)")
	}

	if c.Artifacts.OutputDir == "" {
		errs = append(errs, "artifacts.output_dir is required")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.MQTT.Enabled {
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required when influxdb is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the read timeout ready for http.Server.
func (a APIConfig) GetReadTimeout() time.Duration {
	return time.Duration(a.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the write timeout ready for http.Server.
func (a APIConfig) GetWriteTimeout() time.Duration {
	return time.Duration(a.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the idle timeout ready for http.Server.
func (a APIConfig) GetIdleTimeout() time.Duration {
	return time.Duration(a.Timeouts.Idle) * time.Second
}

// GetRequestTimeout returns the hub REST request timeout as a Duration.
func (c *HomeAssistantConfig) GetRequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// GetWebSocketTimeout returns the hub WebSocket round-trip timeout as a Duration.
func (c *HomeAssistantConfig) GetWebSocketTimeout() time.Duration {
	return time.Duration(c.WebSocketTimeout) * time.Second
}
