package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix = "DQCHECK"
	dirName   = ".dqcheck"
)

// Global configuration structure.
type Global struct {
	// Parsing and checks
	Delimiter string   `mapstructure:"delimiter" yaml:"delimiter"`
	Encoding  string   `mapstructure:"encoding" yaml:"encoding"`
	IDColumn  string   `mapstructure:"id_column" yaml:"id_column"`
	MinRows   int      `mapstructure:"min_rows" yaml:"min_rows"`
	MaxRows   int      `mapstructure:"max_rows" yaml:"max_rows"`
	NAValues  []string `mapstructure:"na_values" yaml:"na_values,omitempty"`

	// Chart
	ChartWidthIn  float64 `mapstructure:"chart_width_in" yaml:"chart_width_in"`
	ChartHeightIn float64 `mapstructure:"chart_height_in" yaml:"chart_height_in"`

	// HTTP host
	HTTPAddr           string  `mapstructure:"http_addr" yaml:"http_addr"`
	MaxUploadMB        int     `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	RateLimitRPS       float64 `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps"`
	RateLimitBurst     int     `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst"`
	ShutdownTimeoutSec int     `mapstructure:"shutdown_timeout_sec" yaml:"shutdown_timeout_sec"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	// Publishing: none|kafka|mqtt
	Publisher    string   `mapstructure:"publisher" yaml:"publisher"`
	KafkaBrokers []string `mapstructure:"kafka_brokers" yaml:"kafka_brokers,omitempty"`
	KafkaTopic   string   `mapstructure:"kafka_topic" yaml:"kafka_topic"`
	MQTTBroker   string   `mapstructure:"mqtt_broker" yaml:"mqtt_broker"`
	MQTTTopic    string   `mapstructure:"mqtt_topic" yaml:"mqtt_topic"`
	MQTTClientID string   `mapstructure:"mqtt_client_id" yaml:"mqtt_client_id"`
	MQTTQoS      int      `mapstructure:"mqtt_qos" yaml:"mqtt_qos"`

	// Object storage input
	S3Endpoint        string `mapstructure:"s3_endpoint" yaml:"s3_endpoint"`
	S3Region          string `mapstructure:"s3_region" yaml:"s3_region"`
	S3AccessKeyID     string `mapstructure:"s3_access_key_id" yaml:"s3_access_key_id"`
	S3SecretAccessKey string `mapstructure:"s3_secret_access_key" yaml:"s3_secret_access_key"`
	S3UsePathStyle    bool   `mapstructure:"s3_use_path_style" yaml:"s3_use_path_style"`

	// Suites and scheduling
	SuitesDir     string `mapstructure:"suites_dir" yaml:"suites_dir"`
	WatchSchedule string `mapstructure:"watch_schedule" yaml:"watch_schedule"`
}

// Defaults returns the configuration used when no file or environment overrides exist.
// SuitesDir is left empty; Load resolves it under the home directory.
func Defaults() *Global {
	return &Global{
		MinRows:            1,
		MaxRows:            1_000_000,
		ChartWidthIn:       10,
		ChartHeightIn:      6,
		HTTPAddr:           ":7860",
		MaxUploadMB:        50,
		RateLimitRPS:       5,
		RateLimitBurst:     10,
		ShutdownTimeoutSec: 10,
		LogLevel:           "info",
		LogFormat:          "text",
		Publisher:          "none",
		KafkaTopic:         "dqcheck.reports",
		MQTTTopic:          "dqcheck/reports",
		MQTTClientID:       "dqcheck",
		MQTTQoS:            1,
		S3Region:           "us-east-1",
		WatchSchedule:      "0 */15 * * * *",
	}
}

// Keys lists every configuration key accepted by "config set".
func Keys() []string {
	return []string{
		"delimiter", "encoding", "id_column", "min_rows", "max_rows", "na_values",
		"chart_width_in", "chart_height_in",
		"http_addr", "max_upload_mb", "rate_limit_rps", "rate_limit_burst", "shutdown_timeout_sec",
		"log_level", "log_format",
		"publisher", "kafka_brokers", "kafka_topic", "mqtt_broker", "mqtt_topic", "mqtt_client_id", "mqtt_qos",
		"s3_endpoint", "s3_region", "s3_access_key_id", "s3_secret_access_key", "s3_use_path_style",
		"suites_dir", "watch_schedule",
	}
}

// DefaultPath returns ~/.dqcheck/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName, "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.dqcheck/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("delimiter", d.Delimiter)
	v.SetDefault("encoding", d.Encoding)
	v.SetDefault("id_column", d.IDColumn)
	v.SetDefault("min_rows", d.MinRows)
	v.SetDefault("max_rows", d.MaxRows)
	v.SetDefault("na_values", d.NAValues)
	v.SetDefault("chart_width_in", d.ChartWidthIn)
	v.SetDefault("chart_height_in", d.ChartHeightIn)
	v.SetDefault("http_addr", d.HTTPAddr)
	v.SetDefault("max_upload_mb", d.MaxUploadMB)
	v.SetDefault("rate_limit_rps", d.RateLimitRPS)
	v.SetDefault("rate_limit_burst", d.RateLimitBurst)
	v.SetDefault("shutdown_timeout_sec", d.ShutdownTimeoutSec)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("publisher", d.Publisher)
	v.SetDefault("kafka_brokers", []string{})
	v.SetDefault("kafka_topic", d.KafkaTopic)
	v.SetDefault("mqtt_broker", d.MQTTBroker)
	v.SetDefault("mqtt_topic", d.MQTTTopic)
	v.SetDefault("mqtt_client_id", d.MQTTClientID)
	v.SetDefault("mqtt_qos", d.MQTTQoS)
	v.SetDefault("s3_endpoint", d.S3Endpoint)
	v.SetDefault("s3_region", d.S3Region)
	v.SetDefault("s3_access_key_id", d.S3AccessKeyID)
	v.SetDefault("s3_secret_access_key", d.S3SecretAccessKey)
	v.SetDefault("s3_use_path_style", d.S3UsePathStyle)
	v.SetDefault("suites_dir", d.SuitesDir)
	v.SetDefault("watch_schedule", d.WatchSchedule)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, dirName))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// A missing file is fine; a malformed explicit one is not.
	if err := v.ReadInConfig(); err != nil && cfgFile != "" {
		if _, statErr := os.Stat(cfgFile); statErr == nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.SuitesDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		c.SuitesDir = filepath.Join(home, dirName, "suites")
	}
	return &c, nil
}
