// Package config loads icqdump configuration from TOML files.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/soypat/dissect/icq"
)

// EnvLogLevel overrides the configured log level when set.
const EnvLogLevel = "ICQDUMP_LOG_LEVEL"

// Config is the complete icqdump configuration.
type Config struct {
	Engine  EngineConfig  `toml:"engine"`
	ICQ     ICQConfig     `toml:"icq"`
	Log     LogConfig     `toml:"log"`
	Capture CaptureConfig `toml:"capture"`
}

type EngineConfig struct {
	MaxBundleDepth int  `toml:"max_bundle_depth"`
	FrameDigest    bool `toml:"frame_digest"`
}

type ICQConfig struct {
	UDPPorts []uint16 `toml:"udp_ports"`
}

type LogConfig struct {
	// Level is one of trace, debug, info, warn, error or off.
	Level string `toml:"level"`
	// JSON leaves log records as JSON lines instead of console output.
	JSON bool `toml:"json"`
}

type CaptureConfig struct {
	Workers int `toml:"workers"`
	// Snaplen truncates captured packets. Zero keeps the file's capture length.
	Snaplen int `toml:"snaplen"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Engine:  EngineConfig{MaxBundleDepth: icq.DefaultMaxBundleDepth},
		ICQ:     ICQConfig{UDPPorts: []uint16{icq.UDPPort}},
		Log:     LogConfig{Level: "info"},
		Capture: CaptureConfig{Workers: 1},
	}
}

// Load reads the TOML file at path over the defaults and applies
// environment overrides. Unknown keys are rejected.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	defer f.Close()
	cfg, err := decode(f)
	if err == nil {
		cfg.ApplyEnv(os.Getenv)
		err = cfg.Validate()
	}
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	return cfg, nil
}

// Decode reads a TOML document from r over the defaults and validates it.
// Environment overrides are not applied.
func Decode(r io.Reader) (Config, error) {
	cfg, err := decode(r)
	if err != nil {
		return Config{}, err
	}
	if err = cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(r io.Reader) (Config, error) {
	cfg := Default()
	meta, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return Config{}, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return cfg, nil
}

// ApplyEnv applies overrides read with getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if lvl := strings.TrimSpace(getenv(EnvLogLevel)); lvl != "" {
		c.Log.Level = lvl
	}
}

// Validate checks every section of the configuration.
func (c *Config) Validate() error {
	return errors.Join(
		c.Engine.Validate(),
		c.ICQ.Validate(),
		c.Log.Validate(),
		c.Capture.Validate(),
	)
}

func (c *EngineConfig) Validate() error {
	if c.MaxBundleDepth < 1 || c.MaxBundleDepth > 64 {
		return fmt.Errorf("engine.max_bundle_depth must be in 1..64, got %d", c.MaxBundleDepth)
	}
	return nil
}

func (c *ICQConfig) Validate() error {
	if len(c.UDPPorts) == 0 {
		return errors.New("icq.udp_ports is empty")
	}
	seen := make(map[uint16]bool, len(c.UDPPorts))
	for _, p := range c.UDPPorts {
		if p == 0 {
			return errors.New("icq.udp_ports contains port 0")
		} else if seen[p] {
			return fmt.Errorf("icq.udp_ports contains %d twice", p)
		}
		seen[p] = true
	}
	return nil
}

func (c *LogConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "off":
		return nil
	}
	return fmt.Errorf("log.level %q is not one of trace, debug, info, warn, error, off", c.Level)
}

func (c *CaptureConfig) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("capture.workers must be positive, got %d", c.Workers)
	} else if c.Snaplen < 0 {
		return fmt.Errorf("capture.snaplen must not be negative, got %d", c.Snaplen)
	}
	return nil
}
