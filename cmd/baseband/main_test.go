package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjboer/GoBaseband/internal/config"
	"github.com/rjboer/GoBaseband/internal/mdns"
	"github.com/rjboer/GoBaseband/internal/message"
	"github.com/rjboer/GoBaseband/internal/sdr"
	"github.com/rjboer/GoBaseband/internal/strategy"
)

func noEnv(string) (string, bool) { return "", false }

func TestResolveConfigDefaults(t *testing.T) {
	opts := &runOptions{}
	cmd := newRunCmd(opts)
	require.NoError(t, cmd.Flags().Parse(nil))

	cfg, err := resolveConfig(filepath.Join(t.TempDir(), "baseband.yaml"), cmd.Flags(), noEnv, *opts)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestResolveConfigFlagsBeatEnv(t *testing.T) {
	opts := &runOptions{}
	cmd := newRunCmd(opts)
	require.NoError(t, cmd.Flags().Parse([]string{"--mode", "capture", "--decimation", "16"}))

	env := map[string]string{"BASEBAND_MODE": "wfm", "BASEBAND_MDNS": "false"}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	cfg, err := resolveConfig(filepath.Join(t.TempDir(), "baseband.yaml"), cmd.Flags(), lookup, *opts)
	require.NoError(t, err)
	assert.Equal(t, "capture", cfg.Mode)
	assert.Equal(t, 16, cfg.Decimation)
	assert.False(t, cfg.Telemetry.MDNS)
}

func TestResolveConfigRejectsInvalid(t *testing.T) {
	opts := &runOptions{}
	cmd := newRunCmd(opts)
	require.NoError(t, cmd.Flags().Parse([]string{"--source", "hackrf"}))

	_, err := resolveConfig(filepath.Join(t.TempDir(), "baseband.yaml"), cmd.Flags(), noEnv, *opts)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestInitialMessages(t *testing.T) {
	cfg := config.Default()
	cfg.Mode = "fsk"
	msgs := initialMessages(cfg)
	require.Len(t, msgs, 2)
	assert.Equal(t, message.BasebandConfiguration{
		Mode:             uint32(strategy.FSKReceive),
		SamplingRate:     strategy.BasebandRate,
		DecimationFactor: 8,
	}, msgs[0])
	assert.Equal(t, cfg.FSK, msgs[1])

	cfg.Mode = "capture"
	msgs = initialMessages(cfg)
	require.Len(t, msgs, 2)
	assert.Equal(t, message.CaptureConfig{Enabled: true}, msgs[1])

	cfg.Mode = "wfm"
	assert.Len(t, initialMessages(cfg), 1)
}

func TestSelectSource(t *testing.T) {
	cfg := config.Default()
	for _, name := range []string{"tone", "noise", "fsk"} {
		cfg.FrontEnd.Source = name
		assert.NotNil(t, selectSource(cfg), name)
	}
	cfg.FrontEnd.Source = "silence"
	assert.Nil(t, selectSource(cfg))
}

func TestFSKDemoBitsCarryAccessCode(t *testing.T) {
	cfg := config.Default()
	bits := fskDemoBits(cfg)
	frame := 64 + cfg.FSK.AccessCodeLength + cfg.FSK.PacketLength
	require.Len(t, bits, fskDemoRepeats*frame)
	assert.Equal(t, sdr.BitsFromUint(uint64(cfg.FSK.AccessCode), 32), bits[64:96])
}

func TestListenPort(t *testing.T) {
	port, err := listenPort(":8080")
	require.NoError(t, err)
	assert.Equal(t, 8080, port)

	_, err = listenPort("8080")
	assert.Error(t, err)
}

func TestPrintHosts(t *testing.T) {
	var out bytes.Buffer
	printHosts(&out, nil, time.Second)
	assert.Contains(t, out.String(), "No services found")

	out.Reset()
	printHosts(&out, []mdns.Host{{Instance: "bench", Hostname: "bench.local.", Port: 8080, TXT: map[string]string{"mode": "fsk"}}}, time.Second)
	assert.Contains(t, out.String(), "http://bench.local:8080")
	assert.Contains(t, out.String(), "fsk")
}
