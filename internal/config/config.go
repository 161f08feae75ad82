package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bigbag/sensor-stream/internal/output"
	"github.com/bigbag/sensor-stream/internal/protocol"
	"github.com/bigbag/sensor-stream/internal/session"
)

// Config is the on-disk configuration.
type Config struct {
	Port          string   `yaml:"port"`
	Baud          int      `yaml:"baud"`
	ReadSize      int      `yaml:"read_size"`
	QueueSize     int      `yaml:"queue_size"`
	StartCommands []string `yaml:"start_commands"`
	Output        string   `yaml:"output"`
	Logs          Logs     `yaml:"logs"`
	InfluxDB      InfluxDB `yaml:"influxdb"`
}

type Logs struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxAgeDays int    `yaml:"max_age_days"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
}

type InfluxDB struct {
	Host         string        `yaml:"host"`
	Token        string        `yaml:"token"`
	Organization string        `yaml:"organization"`
	Bucket       string        `yaml:"bucket"`
	Interval     time.Duration `yaml:"interval"`
}

// Enabled reports whether metrics export is configured.
func (i InfluxDB) Enabled() bool {
	return strings.TrimSpace(i.Host) != ""
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML file and fills unset fields with defaults.
func Load(path string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Baud <= 0 {
		c.Baud = protocol.DefaultBaudRate
	}
	if c.ReadSize <= 0 {
		c.ReadSize = protocol.DefaultReadSize
	}
	if c.QueueSize <= 0 {
		c.QueueSize = session.DefaultQueueSize
	}
	if c.StartCommands == nil {
		c.StartCommands = []string{protocol.CmdStartStream}
	}
	if c.Output == "" {
		c.Output = output.FormatText
	}
	if c.Logs.Level == "" {
		c.Logs.Level = "info"
	}
	if c.Logs.MaxSizeMB <= 0 {
		c.Logs.MaxSizeMB = 25
	}
	if c.Logs.MaxAgeDays <= 0 {
		c.Logs.MaxAgeDays = 7
	}
	if c.Logs.MaxBackups <= 0 {
		c.Logs.MaxBackups = 5
	}
	if c.InfluxDB.Interval <= 0 {
		c.InfluxDB.Interval = 10 * time.Second
	}
}

// Validate checks values that have no sensible default.
func (c Config) Validate() error {
	switch c.Output {
	case output.FormatText, output.FormatNDJSON:
	default:
		return fmt.Errorf("invalid output %q (want %s or %s)", c.Output, output.FormatText, output.FormatNDJSON)
	}
	if c.Baud <= 0 {
		return fmt.Errorf("invalid baud %d (must be > 0)", c.Baud)
	}
	if c.ReadSize <= 0 {
		return fmt.Errorf("invalid read_size %d (must be > 0)", c.ReadSize)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("invalid queue_size %d (must be > 0)", c.QueueSize)
	}
	if c.InfluxDB.Enabled() && (c.InfluxDB.Organization == "" || c.InfluxDB.Bucket == "") {
		return errors.New("influxdb: organization and bucket are required when host is set")
	}
	return nil
}
