// Package config loads the serialmailbox daemon configuration from an
// optional YAML file, a .env file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	mailbox "github.com/luhtfiimanal/go-serial-mailbox"
	"github.com/luhtfiimanal/go-serial-mailbox/port"
)

// Config is the complete daemon configuration.
type Config struct {
	Serial  SerialConfig  `yaml:"serial" envPrefix:"SERIAL_"`
	Mailbox MailboxConfig `yaml:"mailbox" envPrefix:"MAILBOX_"`
	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
	Metrics MetricsConfig `yaml:"metrics" envPrefix:"METRICS_"`
	NATS    NATSConfig    `yaml:"nats" envPrefix:"NATS_"`
}

// SerialConfig selects the tty.
type SerialConfig struct {
	Device   string `yaml:"device" env:"DEVICE"`
	BaudRate int    `yaml:"baud_rate" env:"BAUD_RATE"`
}

// MailboxConfig tunes the hub.
type MailboxConfig struct {
	Capacity      int           `yaml:"capacity" env:"CAPACITY"`
	PollInterval  time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	RetryWait     time.Duration `yaml:"retry_wait" env:"RETRY_WAIT"`
	MaxLineLength int           `yaml:"max_line_length" env:"MAX_LINE_LENGTH"`
	LineEnding    string        `yaml:"line_ending" env:"LINE_ENDING"`
	// Echo logs every received line through a dedicated consumer.
	Echo bool `yaml:"echo" env:"ECHO"`
}

// LogConfig controls the slog handler. File, when set, enables rotation.
type LogConfig struct {
	Level      string `yaml:"level" env:"LEVEL"`
	Format     string `yaml:"format" env:"FORMAT"`
	File       string `yaml:"file" env:"FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" env:"MAX_BACKUPS"`
}

// MetricsConfig controls the Prometheus endpoint. Port 0 disables it.
type MetricsConfig struct {
	Port int    `yaml:"port" env:"PORT"`
	Path string `yaml:"path" env:"PATH"`
}

// NATSConfig enables the bridge when URL is set.
type NATSConfig struct {
	URL            string `yaml:"url" env:"URL"`
	Subject        string `yaml:"subject" env:"SUBJECT"`
	InboundSubject string `yaml:"inbound_subject" env:"INBOUND_SUBJECT"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Serial: SerialConfig{
			Device:   "/dev/ttyUSB0",
			BaudRate: 115200,
		},
		Mailbox: MailboxConfig{
			Capacity:      mailbox.DefaultCapacity,
			PollInterval:  mailbox.DefaultPollInterval,
			RetryWait:     mailbox.DefaultRetryWait,
			MaxLineLength: mailbox.DefaultMaxLineLength,
			LineEnding:    mailbox.DefaultLineEnding,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Metrics: MetricsConfig{
			Port: 9090,
			Path: "/metrics",
		},
		NATS: NATSConfig{
			Subject:        "serial.rx",
			InboundSubject: "serial.tx",
		},
	}
}

// EnvPrefix prefixes every environment variable, e.g. SERIALMAILBOX_SERIAL_DEVICE.
const EnvPrefix = "SERIALMAILBOX_"

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then .env, then the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// A missing .env is normal.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the daemon cannot run with.
func (c Config) Validate() error {
	var errs []error

	if c.Serial.Device == "" {
		errs = append(errs, errors.New("serial.device is required"))
	}
	if !port.SupportedBaudRate(c.Serial.BaudRate) {
		errs = append(errs, fmt.Errorf("serial.baud_rate %d not supported", c.Serial.BaudRate))
	}
	if c.Mailbox.PollInterval <= 0 {
		errs = append(errs, errors.New("mailbox.poll_interval must be positive"))
	}
	if c.Mailbox.RetryWait < 0 {
		errs = append(errs, errors.New("mailbox.retry_wait must not be negative"))
	}
	if c.Mailbox.MaxLineLength <= 0 {
		errs = append(errs, errors.New("mailbox.max_line_length must be positive"))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log level: %s", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("invalid log format: %s", c.Log.Format))
	}

	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid metrics port: %d", c.Metrics.Port))
	}
	if c.NATS.URL != "" && c.NATS.Subject == "" {
		errs = append(errs, errors.New("nats.subject is required when nats.url is set"))
	}

	return errors.Join(errs...)
}
