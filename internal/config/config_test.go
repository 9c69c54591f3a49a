package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"source":     func(c *Config) { c.FrontEnd.Source = "hackrf" },
		"rate":       func(c *Config) { c.FrontEnd.SampleRate = 10 },
		"transfers":  func(c *Config) { c.FrontEnd.Transfers = 6 },
		"region":     func(c *Config) { c.FrontEnd.RegionSamples = 8190 },
		"mode":       func(c *Config) { c.Mode = "am-stereo" },
		"decimation": func(c *Config) { c.Decimation = 3 },
		"code":       func(c *Config) { c.FSK.AccessCodeLength = 33 },
		"packet":     func(c *Config) { c.FSK.PacketLength = 0 },
		"history":    func(c *Config) { c.Telemetry.HistoryLimit = 0 },
		"level":      func(c *Config) { c.Log.Level = "loud" },
		"audio":      func(c *Config) { c.Audio.Output = "tape" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOrCreateWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseband.yaml")
	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = os.Stat(path)
	require.NoError(t, err)

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseband.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: fsk\nfsk:\n  packetLength: 32\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fsk", cfg.Mode)
	assert.Equal(t, 32, cfg.FSK.PacketLength)
	assert.Equal(t, uint32(0xABCD1234), cfg.FSK.AccessCode)
	assert.Equal(t, ":8080", cfg.Telemetry.Addr)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseband.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: [unterminated"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"BASEBAND_MODE":          "wfm",
		"BASEBAND_SAMPLE_RATE":   "2048000",
		"BASEBAND_MDNS":          "false",
		"BASEBAND_HISTORY_LIMIT": "not-a-number",
		"BASEBAND_PACING":        "0.5",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := Default()
	cfg.ApplyEnv(lookup)
	assert.Equal(t, "wfm", cfg.Mode)
	assert.Equal(t, uint32(2_048_000), cfg.FrontEnd.SampleRate)
	assert.False(t, cfg.Telemetry.MDNS)
	assert.Equal(t, 500, cfg.Telemetry.HistoryLimit)
	assert.Equal(t, 0.5, cfg.FrontEnd.Pacing)
}
