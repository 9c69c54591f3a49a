package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/rjboer/GoBaseband/internal/app"
	"github.com/rjboer/GoBaseband/internal/audio"
	"github.com/rjboer/GoBaseband/internal/config"
	"github.com/rjboer/GoBaseband/internal/dma"
	"github.com/rjboer/GoBaseband/internal/logging"
	"github.com/rjboer/GoBaseband/internal/mdns"
	"github.com/rjboer/GoBaseband/internal/message"
	"github.com/rjboer/GoBaseband/internal/sdr"
	"github.com/rjboer/GoBaseband/internal/shared"
	"github.com/rjboer/GoBaseband/internal/strategy"
	"github.com/rjboer/GoBaseband/internal/telemetry"
)

const (
	receiveAudioRate = 48_000
	fskDemoDeviation = 20_000
	fskDemoRepeats   = 4
)

type runOptions struct {
	mode       string
	source     string
	webAddr    string
	audio      string
	logLevel   string
	logFormat  string
	decimation int
	pacing     float64
	mdns       bool
}

func newRunCmd(opts *runOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the baseband core, telemetry server and service advertisement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(configPath, cmd.Flags(), os.LookupEnv, *opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.mode, "mode", "m", "", "initial mode (nbam|nbfm|wfm|fsk|capture|rds|lcr|jammer|xylos|playaudio|sonde|tpms|beep|idle)")
	f.StringVar(&opts.source, "source", "", "simulated receive signal (tone|noise|fsk|silence)")
	f.StringVar(&opts.webAddr, "web-addr", "", "telemetry listen address, empty to disable (e.g. :8080)")
	f.StringVar(&opts.audio, "audio", "", "demodulated audio output (none|wav|speaker)")
	f.StringVar(&opts.logLevel, "log-level", "", "log level (debug|info|warn|error)")
	f.StringVar(&opts.logFormat, "log-format", "", "log format (text|json)")
	f.IntVar(&opts.decimation, "decimation", 0, "capture decimation factor (4|8|16|32)")
	f.Float64Var(&opts.pacing, "pacing", 0, "real-time pacing of simulated transfers, 0 runs unpaced")
	f.BoolVar(&opts.mdns, "mdns", true, "advertise the telemetry server over mDNS")
	return cmd
}

// resolveConfig layers the file, BASEBAND_* variables and explicitly set flags.
func resolveConfig(path string, flags *pflag.FlagSet, lookup func(string) (string, bool), opts runOptions) (config.Config, error) {
	cfg, err := config.LoadOrCreate(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyEnv(lookup)

	if flags.Changed("mode") {
		cfg.Mode = opts.mode
	}
	if flags.Changed("source") {
		cfg.FrontEnd.Source = opts.source
	}
	if flags.Changed("web-addr") {
		cfg.Telemetry.Addr = opts.webAddr
	}
	if flags.Changed("audio") {
		cfg.Audio.Output = opts.audio
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = opts.logFormat
	}
	if flags.Changed("decimation") {
		cfg.Decimation = opts.decimation
	}
	if flags.Changed("pacing") {
		cfg.FrontEnd.Pacing = opts.pacing
	}
	if flags.Changed("mdns") {
		cfg.Telemetry.MDNS = opts.mdns
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg config.Config) error {
	level, _ := logging.ParseLevel(cfg.Log.Level)
	format, _ := logging.ParseFormat(cfg.Log.Format)
	logger := logging.New(level, format, os.Stderr)
	logging.SetDefault(logger)

	region, err := dma.NewRegion(cfg.FrontEnd.RegionSamples, cfg.FrontEnd.Transfers)
	if err != nil {
		return err
	}
	ex := dma.NewExchange(region, logger)

	front := sdr.NewMock(selectSource(cfg), &sdr.CaptureSink{Limit: region.TransferSize()})
	if err := front.Init(ctx, sdr.Config{
		SampleRate:     float64(cfg.FrontEnd.SampleRate),
		TransferPacing: cfg.FrontEnd.Pacing,
		RSSIDecimation: cfg.FrontEnd.RSSIDecimation,
	}); err != nil {
		return fmt.Errorf("init front end: %w", err)
	}
	defer front.Close()

	sinks, err := openSinks(cfg)
	if err != nil {
		return err
	}
	defer sinks.Close(logger)

	state := shared.New(0, 0)
	core := app.New(ex, front, state, strategy.Env{
		Logger:  logger,
		Audio:   sinks.audio,
		Capture: sinks.capture,
		Seed:    cfg.FrontEnd.Seed,
	}, logger)
	hub := telemetry.NewHub(state, cfg.Telemetry.HistoryLimit, telemetry.NewStdoutReporter(logger), logger)

	for _, m := range initialMessages(cfg) {
		if err := hub.Send(m); err != nil {
			return err
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return front.Run(gctx, ex) })
	g.Go(func() error {
		// a Shutdown message ends the core; take everything else down with it
		defer cancel()
		return core.Run(gctx)
	})
	g.Go(func() error { return hub.Run(gctx) })

	if cfg.Telemetry.Addr != "" {
		web := telemetry.NewWebServer(cfg.Telemetry.Addr, hub, logger)
		g.Go(func() error { return web.Start(gctx) })
		logger.Info("telemetry enabled", logging.Field{Key: "url", Value: "http://localhost" + cfg.Telemetry.Addr})

		if cfg.Telemetry.MDNS {
			port, err := listenPort(cfg.Telemetry.Addr)
			if err != nil {
				logger.Warn("mdns disabled", logging.Field{Key: "error", Value: err})
			} else {
				txt := map[string]string{"mode": cfg.Mode, "api": "/api"}
				g.Go(func() error { return mdns.Register(gctx, cfg.Telemetry.Instance, port, txt) })
			}
		}
	}

	logger.Info("baseband running", logging.Field{Key: "mode", Value: cfg.Mode}, logging.Field{Key: "source", Value: cfg.FrontEnd.Source})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// initialMessages selects the configured mode and primes it.
func initialMessages(cfg config.Config) []message.Message {
	mode, _ := strategy.ParseMode(cfg.Mode)
	out := []message.Message{message.BasebandConfiguration{
		Mode:             uint32(mode),
		SamplingRate:     cfg.FrontEnd.SampleRate,
		DecimationFactor: uint32(cfg.Decimation),
	}}
	switch mode {
	case strategy.FSKReceive:
		out = append(out, cfg.FSK)
	case strategy.CaptureMode:
		out = append(out, message.CaptureConfig{Enabled: true})
	}
	return out
}

func selectSource(cfg config.Config) sdr.Source {
	rate := float64(cfg.FrontEnd.SampleRate)
	switch cfg.FrontEnd.Source {
	case "tone":
		return sdr.ToneSource{SampleRate: rate, Offset: cfg.FrontEnd.ToneOffset, Amplitude: 100}
	case "noise":
		return sdr.NewNoiseSource(cfg.FrontEnd.Seed, 20)
	case "fsk":
		return sdr.NewFSKSource(rate, rate/4, fskDemoDeviation, float64(cfg.FSK.SymbolRate), 100, fskDemoBits(cfg))
	default:
		return nil
	}
}

// fskDemoBits repeats one frame matching the configured access code, each
// preceded by an alternating preamble.
func fskDemoBits(cfg config.Config) []uint8 {
	rng := rand.New(rand.NewSource(cfg.FrontEnd.Seed))
	var bits []uint8
	for r := 0; r < fskDemoRepeats; r++ {
		for i := 0; i < 64; i++ {
			bits = append(bits, uint8(1-i&1))
		}
		bits = append(bits, sdr.BitsFromUint(uint64(cfg.FSK.AccessCode), cfg.FSK.AccessCodeLength)...)
		for i := 0; i < cfg.FSK.PacketLength; i++ {
			bits = append(bits, uint8(rng.Intn(2)))
		}
	}
	return bits
}

func listenPort(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(p)
}

type sinks struct {
	audio   audio.Sink
	capture audio.IQSink
}

func openSinks(cfg config.Config) (*sinks, error) {
	s := &sinks{audio: audio.Discard{}, capture: audio.Discard{}}
	switch cfg.Audio.Output {
	case "wav":
		w, err := audio.CreateWAV(cfg.Audio.Path, receiveAudioRate, 1)
		if err != nil {
			return nil, err
		}
		s.audio = w
	case "speaker":
		p, err := audio.NewPlayer(receiveAudioRate)
		if err != nil {
			return nil, err
		}
		s.audio = p
	}
	if cfg.Audio.CapturePath != "" {
		w, err := audio.CreateWAV(cfg.Audio.CapturePath, int(cfg.FrontEnd.SampleRate)/cfg.Decimation, 2)
		if err != nil {
			s.audio.Close()
			return nil, err
		}
		s.capture = w
	}
	return s, nil
}

func (s *sinks) Close(logger logging.Logger) {
	if err := s.audio.Close(); err != nil {
		logger.Warn("close audio output", logging.Field{Key: "error", Value: err})
	}
	if err := s.capture.Close(); err != nil {
		logger.Warn("close capture output", logging.Field{Key: "error", Value: err})
	}
}
