// Package config loads the persistent settings of the baseband service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/rjboer/GoBaseband/internal/logging"
	"github.com/rjboer/GoBaseband/internal/message"
	"github.com/rjboer/GoBaseband/internal/strategy"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

type FrontEnd struct {
	// Source selects the simulated receive signal: tone, noise, fsk or silence.
	Source         string  `yaml:"source"`
	SampleRate     uint32  `yaml:"sampleRate"`
	RegionSamples  int     `yaml:"regionSamples"`
	Transfers      int     `yaml:"transfers"`
	Pacing         float64 `yaml:"pacing"`
	ToneOffset     float64 `yaml:"toneOffset"`
	RSSIDecimation int     `yaml:"rssiDecimation"`
	Seed           int64   `yaml:"seed"`
}

type Telemetry struct {
	Addr         string `yaml:"addr"`
	HistoryLimit int    `yaml:"historyLimit"`
	MDNS         bool   `yaml:"mdns"`
	Instance     string `yaml:"instance"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Audio struct {
	// Output is none, wav or speaker.
	Output      string `yaml:"output"`
	Path        string `yaml:"path"`
	// CapturePath receives IQ from the capture mode; empty discards it.
	CapturePath string `yaml:"capturePath"`
}

type Config struct {
	FrontEnd   FrontEnd             `yaml:"frontEnd"`
	Mode       string               `yaml:"mode"`
	Decimation int                  `yaml:"decimation"`
	FSK        message.FSKConfigure `yaml:"fsk"`
	Telemetry  Telemetry            `yaml:"telemetry"`
	Log        Log                  `yaml:"log"`
	Audio      Audio                `yaml:"audio"`
}

func Default() Config {
	return Config{
		FrontEnd: FrontEnd{
			Source:         "tone",
			SampleRate:     strategy.BasebandRate,
			RegionSamples:  8192,
			Transfers:      4,
			Pacing:         1,
			ToneOffset:     10_000,
			RSSIDecimation: 32,
			Seed:           1,
		},
		Mode:       "nbfm",
		Decimation: 8,
		FSK: message.FSKConfigure{
			SymbolRate:       strategy.DefaultSymbolRate,
			AccessCode:       0xABCD1234,
			AccessCodeLength: 32,
			PacketLength:     64,
		},
		Telemetry: Telemetry{Addr: ":8080", HistoryLimit: 500, MDNS: true, Instance: "baseband"},
		Log:       Log{Level: "info", Format: "text"},
		Audio:     Audio{Output: "none", Path: "audio.wav"},
	}
}

// Validate checks every field and returns the first problem found.
func (c Config) Validate() error {
	switch c.FrontEnd.Source {
	case "tone", "noise", "fsk", "silence":
	default:
		return fmt.Errorf("%w: unknown front end source %q", ErrInvalid, c.FrontEnd.Source)
	}
	if c.FrontEnd.SampleRate < 1_000 || c.FrontEnd.SampleRate > 20_000_000 {
		return fmt.Errorf("%w: sample rate %d out of range", ErrInvalid, c.FrontEnd.SampleRate)
	}
	if c.FrontEnd.Transfers < 4 || c.FrontEnd.Transfers&(c.FrontEnd.Transfers-1) != 0 {
		return fmt.Errorf("%w: transfers must be a power of two of at least 4", ErrInvalid)
	}
	if c.FrontEnd.RegionSamples <= 0 || c.FrontEnd.RegionSamples%c.FrontEnd.Transfers != 0 {
		return fmt.Errorf("%w: region of %d samples does not split into %d transfers", ErrInvalid, c.FrontEnd.RegionSamples, c.FrontEnd.Transfers)
	}
	if c.FrontEnd.Pacing < 0 {
		return fmt.Errorf("%w: negative pacing", ErrInvalid)
	}
	if c.FrontEnd.RSSIDecimation <= 0 {
		return fmt.Errorf("%w: rssi decimation must be positive", ErrInvalid)
	}
	if _, ok := strategy.ParseMode(c.Mode); !ok {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalid, c.Mode)
	}
	switch c.Decimation {
	case 4, 8, 16, 32:
	default:
		return fmt.Errorf("%w: decimation must be 4, 8, 16 or 32", ErrInvalid)
	}
	if c.FSK.AccessCodeLength < 1 || c.FSK.AccessCodeLength > 32 {
		return fmt.Errorf("%w: access code length must be between 1 and 32", ErrInvalid)
	}
	if c.FSK.PacketLength < 1 || c.FSK.PacketLength > 256 {
		return fmt.Errorf("%w: packet length must be between 1 and 256", ErrInvalid)
	}
	if c.Telemetry.HistoryLimit < 1 || c.Telemetry.HistoryLimit > 10_000 {
		return fmt.Errorf("%w: history limit must be between 1 and 10000", ErrInvalid)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	switch c.Audio.Output {
	case "none", "wav", "speaker":
	default:
		return fmt.Errorf("%w: unknown audio output %q", ErrInvalid, c.Audio.Output)
	}
	return nil
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrCreate is Load, writing the defaults when path does not exist yet.
func LoadOrCreate(path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := Save(path, cfg); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}
	return Load(path)
}

func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ApplyEnv overrides fields from BASEBAND_* variables. Unparsable values are
// ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	c.FrontEnd.Source = envString(lookup, "BASEBAND_SOURCE", c.FrontEnd.Source)
	c.FrontEnd.SampleRate = uint32(envInt(lookup, "BASEBAND_SAMPLE_RATE", int(c.FrontEnd.SampleRate)))
	c.FrontEnd.Pacing = envFloat(lookup, "BASEBAND_PACING", c.FrontEnd.Pacing)
	c.FrontEnd.ToneOffset = envFloat(lookup, "BASEBAND_TONE_OFFSET", c.FrontEnd.ToneOffset)
	c.Mode = envString(lookup, "BASEBAND_MODE", c.Mode)
	c.Decimation = envInt(lookup, "BASEBAND_DECIMATION", c.Decimation)
	c.Telemetry.Addr = envString(lookup, "BASEBAND_WEB_ADDR", c.Telemetry.Addr)
	c.Telemetry.HistoryLimit = envInt(lookup, "BASEBAND_HISTORY_LIMIT", c.Telemetry.HistoryLimit)
	c.Telemetry.MDNS = envBool(lookup, "BASEBAND_MDNS", c.Telemetry.MDNS)
	c.Log.Level = envString(lookup, "BASEBAND_LOG_LEVEL", c.Log.Level)
	c.Log.Format = envString(lookup, "BASEBAND_LOG_FORMAT", c.Log.Format)
	c.Audio.Output = envString(lookup, "BASEBAND_AUDIO", c.Audio.Output)
}

func envFloat(lookup func(string) (string, bool), key string, def float64) float64 {
	if val, ok := lookup(key); ok {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}

func envInt(lookup func(string) (string, bool), key string, def int) int {
	if val, ok := lookup(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func envBool(lookup func(string) (string, bool), key string, def bool) bool {
	if val, ok := lookup(key); ok {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return def
}

func envString(lookup func(string) (string, bool), key, def string) string {
	if val, ok := lookup(key); ok {
		return val
	}
	return def
}
