package strategy

import (
	"fmt"

	"github.com/rjboer/GoBaseband/internal/buffer"
	"github.com/rjboer/GoBaseband/internal/dsp"
	"github.com/rjboer/GoBaseband/internal/logging"
	"github.com/rjboer/GoBaseband/internal/message"
)

// capture decimates the baseband and streams IQ to the capture sink while
// enabled.
type capture struct {
	receiver
	chain   *dsp.DecimationChain
	enabled bool
	written int64
}

func newCapture(env *Env) *capture {
	factor := env.Decimation
	if factor == 0 {
		factor = 8
	}
	chain, err := dsp.NewDecimationChain(factor, 2048)
	if err != nil {
		env.Logger.Warn("capture decimation rejected, using x8", logging.Field{Key: "error", Value: err})
		chain, _ = dsp.NewDecimationChain(8, 2048)
	}
	return &capture{receiver: newReceiver(env), chain: chain}
}

func (p *capture) Execute(buf buffer.Buffer[buffer.ComplexInt8]) {
	channel := p.chain.Execute(baseband(buf))
	p.feedChannel(channel)
	if !p.enabled {
		return
	}
	if err := p.env.Capture.WriteIQ(channel); err != nil {
		p.env.Logger.Warn("capture write failed, stopping", logging.Field{Key: "error", Value: err})
		p.enabled = false
		return
	}
	p.written += int64(len(channel.Samples))
}

// OnMessage handles CaptureConfig and the oversample factor of a
// SampleRateConfig, which becomes the capture decimation.
func (p *capture) OnMessage(m message.Message) error {
	switch cfg := m.(type) {
	case message.CaptureConfig:
		if p.enabled && !cfg.Enabled {
			p.env.Logger.Info("capture stopped", logging.Field{Key: "samples", Value: p.written})
		}
		p.enabled = cfg.Enabled
		return nil
	case message.SampleRateConfig:
		if cfg.OversampleRate <= 1 {
			return nil
		}
		chain, err := dsp.NewDecimationChain(int(cfg.OversampleRate), 2048)
		if err != nil {
			return fmt.Errorf("%w: oversample x%d: %w", ErrInvalidSettings, cfg.OversampleRate, err)
		}
		p.chain = chain
		return nil
	}
	return ErrUnsupported
}
