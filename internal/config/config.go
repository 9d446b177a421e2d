// Package config loads the octolcd YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rook-computer/octolcd/internal/display"
	"github.com/rook-computer/octolcd/internal/render"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Environment overrides, applied after the file.
const (
	EnvHost   = "OCTOLCD_HOST"
	EnvAPIKey = "OCTOLCD_API_KEY"
	EnvListen = "OCTOLCD_LISTEN"
)

type Config struct {
	OctoPrint OctoPrintConfig `yaml:"octoprint"`
	Display   DisplayConfig   `yaml:"display"`
	Poller    PollerConfig    `yaml:"poller"`
	Web       WebConfig       `yaml:"web"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// OctoPrintConfig locates the print server.
type OctoPrintConfig struct {
	Host      string `yaml:"host"`
	APIKey    string `yaml:"api_key"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// DisplayConfig selects the sink and what it shows.
type DisplayConfig struct {
	Name       string `yaml:"name"`
	Driver     string `yaml:"driver"`
	I2CBus     string `yaml:"i2c_bus"`
	I2CAddress int    `yaml:"i2c_address"`
	RefreshMS  int    `yaml:"refresh_ms"`
	// QRCode is encoded under the framebuffer panel when set.
	QRCode string `yaml:"qr_code"`
}

type PollerConfig struct {
	IntervalMS int `yaml:"interval_ms"`
}

type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	DevMode bool   `yaml:"dev_mode"`
}

type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type LoggingConfig struct {
	File  string `yaml:"file"`
	Debug bool   `yaml:"debug"`
}

// Default returns a config with every optional field filled in.
func Default() *Config {
	return &Config{
		OctoPrint: OctoPrintConfig{TimeoutMS: 4000},
		Display: DisplayConfig{
			Name:      "Oleandri Printer",
			Driver:    display.DriverAuto,
			I2CBus:    "1",
			RefreshMS: 1500,
		},
		Poller: PollerConfig{IntervalMS: 5000},
		Web:    WebConfig{Listen: ":8080"},
		MQTT:   MQTTConfig{Port: 1883, Topic: "octolcd/status", ClientID: "octolcd"},
	}
}

// Load reads filename, applies defaults and environment overrides, and
// validates the result.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, os.LookupEnv)
}

// Parse is Load without the file read; lookup resolves environment
// overrides and may be nil.
func Parse(data []byte, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if lookup != nil {
		cfg.applyEnv(lookup)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvHost); ok && v != "" {
		c.OctoPrint.Host = v
	}
	if v, ok := lookup(EnvAPIKey); ok && v != "" {
		c.OctoPrint.APIKey = v
	}
	if v, ok := lookup(EnvListen); ok && v != "" {
		c.Web.Listen = v
	}
}

// Validate reports the first problem that would stop startup.
func (c *Config) Validate() error {
	switch {
	case c.OctoPrint.Host == "":
		return fmt.Errorf("%w: octoprint.host is required", ErrInvalid)
	case c.OctoPrint.APIKey == "":
		return fmt.Errorf("%w: octoprint.api_key is required", ErrInvalid)
	case c.OctoPrint.TimeoutMS <= 0:
		return fmt.Errorf("%w: octoprint.timeout_ms must be positive", ErrInvalid)
	case len(c.Display.Name) > render.Columns:
		return fmt.Errorf("%w: display.name %q is longer than %d characters", ErrInvalid, c.Display.Name, render.Columns)
	case !display.ValidDriver(c.Display.Driver):
		return fmt.Errorf("%w: unknown display.driver %q", ErrInvalid, c.Display.Driver)
	case c.Display.I2CAddress < 0 || c.Display.I2CAddress > 0x7F:
		return fmt.Errorf("%w: display.i2c_address 0x%X is not a 7-bit address", ErrInvalid, c.Display.I2CAddress)
	case c.Display.RefreshMS <= 0:
		return fmt.Errorf("%w: display.refresh_ms must be positive", ErrInvalid)
	case c.Poller.IntervalMS <= 0:
		return fmt.Errorf("%w: poller.interval_ms must be positive", ErrInvalid)
	case c.Web.Enabled && c.Web.Listen == "":
		return fmt.Errorf("%w: web.listen is required when web is enabled", ErrInvalid)
	case c.MQTT.Enabled && c.MQTT.Broker == "":
		return fmt.Errorf("%w: mqtt.broker is required when mqtt is enabled", ErrInvalid)
	case c.MQTT.Enabled && (c.MQTT.Port <= 0 || c.MQTT.Port > 65535):
		return fmt.Errorf("%w: mqtt.port %d out of range", ErrInvalid, c.MQTT.Port)
	}
	return nil
}

func (c OctoPrintConfig) Timeout() time.Duration { return ms(c.TimeoutMS) }

func (c DisplayConfig) Refresh() time.Duration { return ms(c.RefreshMS) }

func (c PollerConfig) Interval() time.Duration { return ms(c.IntervalMS) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// Print writes a summary of the configuration to w; secrets are masked.
func (c *Config) Print(w io.Writer) {
	fmt.Fprintf(w, "OctoPrint: %s (api key %s, timeout %v)\n", c.OctoPrint.Host, mask(c.OctoPrint.APIKey), c.OctoPrint.Timeout())
	addr := "auto"
	if c.Display.I2CAddress != 0 {
		addr = fmt.Sprintf("0x%02X", c.Display.I2CAddress)
	}
	fmt.Fprintf(w, "Display: %q via %s (i2c bus %s, address %s, refresh %v)\n", c.Display.Name, c.Display.Driver, c.Display.I2CBus, addr, c.Display.Refresh())
	fmt.Fprintf(w, "Poller: every %v\n", c.Poller.Interval())
	if c.Web.Enabled {
		fmt.Fprintf(w, "Web: %s (dev mode %v)\n", c.Web.Listen, c.Web.DevMode)
	}
	if c.MQTT.Enabled {
		fmt.Fprintf(w, "MQTT: %s:%d (topic: %s)\n", c.MQTT.Broker, c.MQTT.Port, c.MQTT.Topic)
	}
	if c.Logging.File != "" {
		fmt.Fprintf(w, "Log file: %s (debug %v)\n", c.Logging.File, c.Logging.Debug)
	}
}

func mask(secret string) string {
	if secret == "" {
		return "unset"
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
