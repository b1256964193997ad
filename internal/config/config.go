// Package config holds the daemon's sampling policy and wiring options.
// Values come from command-line flags, with ENVIRO_* environment variables
// as fallbacks for the deployment-specific ones.
package config

import (
	"flag"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/enviro-sensor/internal/display"
	"github.com/sweeney/enviro-sensor/internal/logic"
	"github.com/sweeney/enviro-sensor/internal/sensor"
)

// Sampling policy defaults.
const (
	DefaultSamples         = 20
	DefaultTrim            = 2
	DefaultSampleInterval  = 4 * time.Second
	DefaultWarmUp          = 60 * time.Second
	DefaultWarmUpInterval  = time.Second
	DefaultDisplayTicks    = 48
	DefaultDisplayInterval = 5 * time.Second
	DefaultSentPause       = 5 * time.Second
	DefaultSetupPause      = 3 * time.Second
	DefaultDeviceID        = 1
	DefaultPublishTimeout  = 10 * time.Second
)

// Environment variable names consulted when the matching flag is not given.
const (
	EnvEndpoint = "ENVIRO_ENDPOINT"
	EnvBroker   = "ENVIRO_BROKER"
	EnvDeviceID = "ENVIRO_DEVICE_ID"
	EnvHTTP     = "ENVIRO_HTTP"
	EnvLogLevel = "ENVIRO_LOG_LEVEL"
)

// Config is the complete daemon configuration. It is fixed for the life of
// the process.
type Config struct {
	Samples         int
	Trim            int
	SampleInterval  time.Duration
	WarmUp          time.Duration
	WarmUpInterval  time.Duration
	DisplayTicks    int
	DisplayInterval time.Duration
	SentPause       time.Duration
	SetupPause      time.Duration

	DeviceID       int
	Endpoint       string // base URL; readings are POSTed to Endpoint + "/api/reading"
	PublishRetries int
	PublishTimeout time.Duration

	Broker   string // MQTT broker URL (empty disables the mirror)
	HTTPAddr string // status server address (empty disables)

	LogLevel  string
	LogFormat string // "text" or "json"

	Bus             sensor.BusConfig
	VOCCompensation bool

	OLED    bool
	SPIPort string
	PinDC   int
	PinRST  int

	PrintReading bool
}

// Default returns the reference sampling policy with no network outputs.
func Default() Config {
	return Config{
		Samples:         DefaultSamples,
		Trim:            DefaultTrim,
		SampleInterval:  DefaultSampleInterval,
		WarmUp:          DefaultWarmUp,
		WarmUpInterval:  DefaultWarmUpInterval,
		DisplayTicks:    DefaultDisplayTicks,
		DisplayInterval: DefaultDisplayInterval,
		SentPause:       DefaultSentPause,
		SetupPause:      DefaultSetupPause,
		DeviceID:        DefaultDeviceID,
		PublishTimeout:  DefaultPublishTimeout,
		HTTPAddr:        ":80",
		LogLevel:        "info",
		LogFormat:       "text",
		Bus:             sensor.DefaultBusConfig(),
		OLED:            true,
		PinDC:           display.DefaultPinDC,
		PinRST:          display.DefaultPinRST,
	}
}

// Load builds a Config from defaults, then the environment, then args.
// A flag given on the command line always wins over its environment variable.
func Load(fs *flag.FlagSet, args []string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	cfg.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// RegisterFlags binds every field to fs using the current values as defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.Samples, "samples", c.Samples, "Samples per cycle")
	fs.IntVar(&c.Trim, "trim", c.Trim, "Samples discarded from each end before averaging")
	fs.DurationVar(&c.SampleInterval, "sample-interval", c.SampleInterval, "Pause between samples")
	fs.DurationVar(&c.WarmUp, "warmup", c.WarmUp, "VOC sensor warm-up duration")
	fs.DurationVar(&c.WarmUpInterval, "warmup-interval", c.WarmUpInterval, "VOC read cadence during warm-up")
	fs.IntVar(&c.DisplayTicks, "display-ticks", c.DisplayTicks, "Result screens shown after each publish")
	fs.DurationVar(&c.DisplayInterval, "display-interval", c.DisplayInterval, "Time each result screen is shown")
	fs.DurationVar(&c.SentPause, "sent-pause", c.SentPause, "Pause after the publish status screen")
	fs.DurationVar(&c.SetupPause, "setup-pause", c.SetupPause, "Time the setup screen is shown")

	fs.IntVar(&c.DeviceID, "id", c.DeviceID, "Device id sent with every reading")
	fs.StringVar(&c.Endpoint, "endpoint", c.Endpoint, "Reading API base URL (env "+EnvEndpoint+")")
	fs.IntVar(&c.PublishRetries, "publish-retries", c.PublishRetries, "Extra attempts for a failed POST")
	fs.DurationVar(&c.PublishTimeout, "publish-timeout", c.PublishTimeout, "Timeout for one POST attempt")

	fs.StringVar(&c.Broker, "broker", c.Broker, "MQTT broker address, empty to disable (env "+EnvBroker+")")
	fs.StringVar(&c.HTTPAddr, "http", c.HTTPAddr, "HTTP status address, empty to disable (env "+EnvHTTP+")")

	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn, error (env "+EnvLogLevel+")")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "Log format: text or json")

	fs.StringVar(&c.Bus.Bus, "i2c-bus", c.Bus.Bus, "I2C bus name (empty for the first bus)")
	fs.BoolVar(&c.VOCCompensation, "voc-compensation", c.VOCCompensation, "Send BME280 humidity and temperature to the SGP40")

	fs.BoolVar(&c.OLED, "oled", c.OLED, "Drive the SSD1305 OLED (otherwise screens are logged)")
	fs.StringVar(&c.SPIPort, "spi-port", c.SPIPort, "SPI port name (empty for the first port)")
	fs.IntVar(&c.PinDC, "pin-dc", c.PinDC, "BCM pin number for OLED data/command")
	fs.IntVar(&c.PinRST, "pin-rst", c.PinRST, "BCM pin number for OLED reset")

	fs.BoolVar(&c.PrintReading, "print-reading", c.PrintReading, "Read every sensor once, print and exit")
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}
	if v, ok := lookup(EnvEndpoint); ok {
		c.Endpoint = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvBroker); ok {
		c.Broker = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvHTTP); ok {
		c.HTTPAddr = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.LogLevel = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvDeviceID); ok {
		id, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvDeviceID, v, err)
		}
		c.DeviceID = id
	}
	return nil
}

// Validate reports the first setting that makes the sampling cycle
// impossible to run. It is called before any hardware is touched.
func (c Config) Validate() error {
	if c.Samples <= 0 {
		return &logic.ConfigError{Field: "samples", Reason: "must be positive"}
	}
	if err := logic.ValidateTrim(c.Samples, c.Trim); err != nil {
		return err
	}
	for _, d := range []struct {
		field string
		v     time.Duration
	}{
		{"sample-interval", c.SampleInterval},
		{"warmup-interval", c.WarmUpInterval},
		{"display-interval", c.DisplayInterval},
		{"publish-timeout", c.PublishTimeout},
	} {
		if d.v <= 0 {
			return &logic.ConfigError{Field: d.field, Reason: "must be positive"}
		}
	}
	if c.WarmUp < 0 {
		return &logic.ConfigError{Field: "warmup", Reason: "must not be negative"}
	}
	if c.DisplayTicks < 0 {
		return &logic.ConfigError{Field: "display-ticks", Reason: "must not be negative"}
	}
	if c.PublishRetries < 0 {
		return &logic.ConfigError{Field: "publish-retries", Reason: "must not be negative"}
	}
	if !c.PrintReading && c.Endpoint == "" {
		return &logic.ConfigError{Field: "endpoint", Reason: "is required"}
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return &logic.ConfigError{Field: "log-level", Reason: err.Error()}
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return &logic.ConfigError{Field: "log-format", Reason: fmt.Sprintf("%q is not text or json", c.LogFormat)}
	}
	return nil
}

// ParseLogLevel maps a level name to its slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown level %q (allowed: debug, info, warn, error)", s)
	}
}
