// Package config loads gateway and console settings with Viper.
//
// Precedence (lowest to highest): defaults < config file < environment.
// Environment variables use the SYNAPSE_ prefix with "." replaced by "_"
// (SYNAPSE_UPSTREAM_BASE_URL). MCP_SERVER_URL and PORT are honoured as
// aliases for upstream.base_url and server.port.
package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

const (
	DefaultUpstreamBaseURL = "http://localhost:8000"
	DefaultGatewayURL      = "http://localhost:3000"
	DefaultPort            = 3000
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// UpstreamConfig locates the reasoning service behind the gateway.
type UpstreamConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

func (u UpstreamConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutSeconds) * time.Second
}

// GatewayConfig is what the console uses to reach the gateway.
type GatewayConfig struct {
	URL string `mapstructure:"url"`
}

// MQTTConfig enables the execution sink when Broker is set.
type MQTTConfig struct {
	Broker      string `mapstructure:"broker"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

func (m MQTTConfig) Enabled() bool {
	return m.Broker != ""
}

type LogConfig struct {
	JSON bool `mapstructure:"json"`
}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultPort)

	v.SetDefault("upstream.base_url", DefaultUpstreamBaseURL)
	v.SetDefault("upstream.timeout_seconds", 60)

	v.SetDefault("gateway.url", DefaultGatewayURL)

	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.topic_prefix", "synapse/executions/")

	v.SetDefault("log.json", false)
}

// BindEnvAliases binds the variable names used by existing deployments.
func BindEnvAliases(v *viper.Viper) {
	v.BindEnv("upstream.base_url", "SYNAPSE_UPSTREAM_BASE_URL", "MCP_SERVER_URL")
	v.BindEnv("server.port", "SYNAPSE_SERVER_PORT", "PORT")
	v.BindEnv("mqtt.broker", "SYNAPSE_MQTT_BROKER", "MQTT_BROKER")
}

// New returns a Viper instance wired for environment lookup and defaults.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("SYNAPSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	BindEnvAliases(v)
	SetDefaults(v)
	return v
}

// Load reads configuration. configFile may be empty.
func Load(configFile string) (*Config, error) {
	v := New()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", configFile)
		}
	}
	return LoadWithViper(v)
}

// LoadWithViper unmarshals and validates configuration from v.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validateBaseURL("upstream.base_url", c.Upstream.BaseURL); err != nil {
		return err
	}
	if err := validateBaseURL("gateway.url", c.Gateway.URL); err != nil {
		return err
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Newf("server.port out of range: %d", c.Server.Port)
	}
	if c.Upstream.TimeoutSeconds < 0 {
		return errors.Newf("upstream.timeout_seconds must not be negative: %d", c.Upstream.TimeoutSeconds)
	}
	return nil
}

func validateBaseURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrapf(err, "invalid %s", key)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.WithHintf(
			errors.Newf("invalid %s %q", key, raw),
			"expected an absolute http(s) URL such as %s", DefaultUpstreamBaseURL)
	}
	return nil
}
