// Package app runs the baseband core: the processing loop that feeds stable
// DMA buffers to the active strategy and the dispatcher that applies inbound
// messages, including mode switches.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rjboer/GoBaseband/internal/buffer"
	"github.com/rjboer/GoBaseband/internal/dma"
	"github.com/rjboer/GoBaseband/internal/logging"
	"github.com/rjboer/GoBaseband/internal/message"
	"github.com/rjboer/GoBaseband/internal/sdr"
	"github.com/rjboer/GoBaseband/internal/shared"
	"github.com/rjboer/GoBaseband/internal/stats"
	"github.com/rjboer/GoBaseband/internal/strategy"
)

// ErrShutdown is returned by RunDispatcher after a Shutdown message.
var ErrShutdown = errors.New("baseband: shutdown requested")

// Engine is the DMA side driven by the loop and the mode switch.
// *dma.Exchange implements it.
type Engine interface {
	Configure(direction dma.Direction)
	Enable(owner dma.Owner) error
	Disable()
	Enabled() bool
	SetSamplingRate(rate uint32)
	WaitForBuffer(ctx context.Context) (buffer.Buffer[buffer.ComplexInt8], bool)
	WaitEnabled(ctx context.Context) error
}

// Factory builds the strategy for a mode. strategy.New is the default.
type Factory func(mode strategy.Mode, env strategy.Env) strategy.Processor

// Baseband owns the active strategy slot. The processing loop and the
// dispatcher both take the slot lock, so a strategy is never run while it
// is being replaced.
type Baseband struct {
	engine  Engine
	rssi    sdr.RSSISource
	state   *shared.State
	env     strategy.Env
	factory Factory
	logger  logging.Logger

	mu     sync.Mutex
	active strategy.Processor
	mode   strategy.Mode
	rssiOn bool

	basebandStats stats.BasebandCollector
	rssiStats     stats.RSSICollector
}

// New wires a baseband core. rssi may be nil when the front end has no RSSI
// path.
func New(engine Engine, rssi sdr.RSSISource, state *shared.State, env strategy.Env, logger logging.Logger) *Baseband {
	if logger == nil {
		logger = logging.Default()
	}
	if env.Logger == nil {
		env.Logger = logger
	}
	env.Shared = state
	return &Baseband{
		engine:  engine,
		rssi:    rssi,
		state:   state,
		env:     env,
		factory: strategy.New,
		logger:  logger.With(logging.Field{Key: "subsystem", Value: "baseband"}),
	}
}

// SetFactory replaces the strategy constructor.
func (b *Baseband) SetFactory(f Factory) {
	b.mu.Lock()
	b.factory = f
	b.mu.Unlock()
}

// Mode returns the active mode.
func (b *Baseband) Mode() strategy.Mode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mode
}

// Run runs the processing loop and the dispatcher until ctx ends or a
// Shutdown message is handled.
func (b *Baseband) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.RunLoop(ctx) })
	g.Go(func() error { return b.RunDispatcher(ctx) })
	err := g.Wait()
	if errors.Is(err, ErrShutdown) {
		return nil
	}
	return err
}

// RunLoop waits for stable buffers and runs the active strategy on them.
// While the engine is disabled it blocks without spinning.
func (b *Baseband) RunLoop(ctx context.Context) error {
	for {
		if err := b.engine.WaitEnabled(ctx); err != nil {
			return err
		}
		b.Step(ctx)
	}
}

// Step waits for one buffer and processes it. It reports false when the wait
// ended without a buffer: engine disabled, transfer error or ctx done.
func (b *Baseband) Step(ctx context.Context) bool {
	start := time.Now()
	buf, ok := b.engine.WaitForBuffer(ctx)
	if !ok {
		return false
	}
	b.process(buf, time.Since(start))
	return true
}

func (b *Baseband) process(buf buffer.Buffer[buffer.ComplexInt8], idle time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active == nil {
		return
	}
	start := time.Now()
	b.active.Execute(buf)
	if b.state.TakeSpectrumRequest() {
		b.active.UpdateSpectrum()
	}
	busy := time.Since(start)

	if b.rssiOn && b.rssi != nil {
		rssiStart := time.Now()
		if r, ok := b.rssi.ReadRSSI(); ok {
			b.rssiStats.Feed(r, func(s stats.RSSIStatistics) {
				b.state.PostStatistics(message.RSSIStatistics{RSSIStatistics: s})
			})
		}
		b.basebandStats.AddRSSITime(time.Since(rssiStart))
	}

	rate := buf.SamplingRate
	if rate == 0 {
		rate = strategy.BasebandRate
	}
	// saturated when processing took longer than the buffer lasts
	period := time.Duration(float64(len(buf.Samples)) / float64(rate) * float64(time.Second))
	b.basebandStats.Feed(len(buf.Samples), rate, idle, busy, busy > period, func(s stats.BasebandStatistics) {
		b.state.PostStatistics(message.BasebandStatistics{BasebandStatistics: s})
	})
}

// RunDispatcher drains the inbound queue until ctx ends or Shutdown arrives.
func (b *Baseband) RunDispatcher(ctx context.Context) error {
	for {
		m, err := b.state.Baseband.Pop(ctx)
		if err != nil {
			return err
		}
		if !b.Dispatch(m) {
			return ErrShutdown
		}
	}
}

// Dispatch handles one inbound message. It returns false after Shutdown.
func (b *Baseband) Dispatch(m message.Message) bool {
	switch m := m.(type) {
	case message.BasebandConfiguration:
		b.Configure(m)
	case message.SampleRateConfig:
		cfg := b.state.Configuration()
		cfg.SamplingRate = m.SampleRate
		// the front end runs oversampled; capture decimates back to SampleRate
		oversampled := m.OversampleRate > 1
		if oversampled {
			cfg.SamplingRate *= m.OversampleRate
			cfg.DecimationFactor = m.OversampleRate
		}
		b.engine.SetSamplingRate(cfg.SamplingRate)
		b.state.SetConfiguration(cfg)
		if oversampled {
			b.forward(m)
		}
	case message.UpdateSpectrum:
		if m.Size != 0 {
			if !strategy.ValidSpectrumSize(m.Size) {
				b.logger.Warn("spectrum size rejected", logging.Field{Key: "size", Value: m.Size})
			} else {
				b.state.SetSpectrumSize(m.Size)
			}
		}
		b.state.RequestSpectrum()
	case message.Shutdown:
		b.Configure(message.BasebandConfiguration{Mode: uint32(strategy.Idle)})
		if err := b.state.Application.Push(message.Ack{}); err != nil {
			b.logger.Warn("shutdown ack dropped", logging.Field{Key: "error", Value: err})
		}
		b.logger.Info("shutdown")
		return false
	default:
		b.forward(m)
	}
	return true
}

func (b *Baseband) forward(m message.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active == nil {
		b.logger.Debug("message ignored while idle", logging.Field{Key: "id", Value: m.ID()})
		return
	}
	err := b.active.OnMessage(m)
	switch {
	case err == nil:
	case errors.Is(err, strategy.ErrUnsupported):
		b.logger.Debug("message ignored by mode", logging.Field{Key: "id", Value: m.ID()}, logging.Field{Key: "mode", Value: b.mode})
	default:
		b.logger.Warn("message rejected", logging.Field{Key: "id", Value: m.ID()}, logging.Field{Key: "error", Value: err})
	}
}

// Configure applies a baseband configuration. Only a mode change rebuilds the
// strategy: the engine is stopped, the old strategy dropped, the new one
// built, and the engine re-enabled only when a strategy exists.
func (b *Baseband) Configure(cfg message.BasebandConfiguration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cfg.SamplingRate != 0 {
		b.engine.SetSamplingRate(cfg.SamplingRate)
	}
	b.state.SetConfiguration(cfg)

	mode := strategy.Mode(cfg.Mode)
	if mode == b.mode {
		return
	}
	from := b.mode

	b.engine.Disable()
	b.rssiOn = false
	b.active = nil
	b.mode = strategy.Idle
	b.basebandStats = stats.BasebandCollector{}
	b.rssiStats = stats.RSSICollector{}

	env := b.env
	env.Decimation = int(cfg.DecimationFactor)
	next := b.factory(mode, env)
	if next == nil {
		b.logger.Info("mode switched", logging.Field{Key: "from", Value: from}, logging.Field{Key: "to", Value: strategy.Idle}, logging.Field{Key: "requested", Value: cfg.Mode})
		return
	}

	b.engine.Configure(next.Direction())
	if err := b.engine.Enable(next); err != nil {
		b.logger.Error("enable engine", logging.Field{Key: "mode", Value: mode}, logging.Field{Key: "error", Value: err})
		return
	}
	b.active = next
	b.mode = mode
	b.rssiOn = next.Direction() == dma.Receive
	b.logger.Info("mode switched", logging.Field{Key: "from", Value: from}, logging.Field{Key: "to", Value: mode}, logging.Field{Key: "direction", Value: next.Direction()})
}
