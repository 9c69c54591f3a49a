package strategy

import (
	"fmt"

	"github.com/rjboer/GoBaseband/internal/buffer"
	"github.com/rjboer/GoBaseband/internal/dma"
	"github.com/rjboer/GoBaseband/internal/encode"
	"github.com/rjboer/GoBaseband/internal/logging"
	"github.com/rjboer/GoBaseband/internal/message"
)

// transmitter runs one encoder over each transmit slice. Until an encoder is
// configured the slice is filled with zeros.
type transmitter struct {
	env *Env
	enc encode.Encoder
}

func (t *transmitter) Direction() dma.Direction { return dma.Transmit }

func (t *transmitter) UpdateSpectrum() {}

func (t *transmitter) Execute(buf buffer.Buffer[buffer.ComplexInt8]) {
	if t.enc == nil {
		clear(buf.Samples)
		return
	}
	t.enc.Execute(buf.Samples)
}

func (t *transmitter) done(progress uint32) {
	t.env.post(message.TXDone{Progress: progress})
}

// samplesFor converts a duration in milliseconds to transmit samples.
func samplesFor(ms uint32) int {
	return int(uint64(ms) * encode.TransmitRate / 1000)
}

type rds struct {
	transmitter
	encoder *encode.RDS
}

func newRDS(env *Env) *rds {
	p := &rds{transmitter: transmitter{env: env}}
	p.encoder = encode.NewRDS(p.done)
	p.enc = p.encoder
	return p
}

func (p *rds) OnMessage(m message.Message) error {
	data, ok := m.(message.RDSData)
	if !ok {
		return ErrUnsupported
	}
	if len(data.Blocks) > encode.RDSBlocks {
		return fmt.Errorf("%w: %d RDS blocks, at most %d", ErrInvalidSettings, len(data.Blocks), encode.RDSBlocks)
	}
	p.encoder.SetData(data.Blocks)
	return nil
}

// lcr sends AFSK frames. Each LCRConfigure starts a new transmission.
type lcr struct{ transmitter }

func newLCR(env *Env) *lcr { return &lcr{transmitter{env: env}} }

func (p *lcr) OnMessage(m message.Message) error {
	cfg, ok := m.(message.LCRConfigure)
	if !ok {
		return ErrUnsupported
	}
	if cfg.Bits < 0 || cfg.Bits > len(cfg.Data)*8 {
		return fmt.Errorf("%w: %d bits from %d bytes", ErrInvalidSettings, cfg.Bits, len(cfg.Data))
	}
	// zero selects the default baud rate
	if cfg.BaudRate < 0 || cfg.BaudRate > encode.TransmitRate/2 {
		return fmt.Errorf("%w: baud rate %g outside 0..%d", ErrInvalidSettings, cfg.BaudRate, encode.TransmitRate/2)
	}
	p.enc = encode.NewAFSK(encode.AFSKConfig{
		BaudRate:  cfg.BaudRate,
		Mark:      cfg.Mark,
		Space:     cfg.Space,
		Deviation: cfg.Deviation,
		Repeats:   cfg.Repeats,
		Data:      cfg.Data,
		Bits:      cfg.Bits,
	}, p.done)
	return nil
}

// jammer hops over the configured ranges; TXDone carries the hop count.
type jammer struct{ transmitter }

func newJammer(env *Env) *jammer { return &jammer{transmitter{env: env}} }

func (p *jammer) OnMessage(m message.Message) error {
	cfg, ok := m.(message.JammerConfigure)
	if !ok {
		return ErrUnsupported
	}
	ranges := make([]encode.JammerRange, len(cfg.Ranges))
	for i, r := range cfg.Ranges {
		if r.Width < 0 {
			return fmt.Errorf("%w: negative jammer width %v", ErrInvalidSettings, r.Width)
		}
		ranges[i] = encode.JammerRange{Width: r.Width, Type: encode.JammerNoise}
		if r.Tone {
			ranges[i].Type = encode.JammerTone
		}
	}
	p.enc = encode.NewJammer(ranges, samplesFor(cfg.HopMS), p.env.Seed, p.done)
	return nil
}

type xylos struct{ transmitter }

func newXylos(env *Env) *xylos { return &xylos{transmitter{env: env}} }

func (p *xylos) OnMessage(m message.Message) error {
	cfg, ok := m.(message.XylosConfigure)
	if !ok {
		return ErrUnsupported
	}
	tones, err := encode.CCIRTones(cfg.Sequence)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	p.enc = encode.NewXylos(tones, samplesFor(cfg.ToneMS), cfg.Deviation, p.done)
	return nil
}

// playAudio transmits audio streamed through the shared FIFO and asks the
// application side for more when it runs low.
type playAudio struct {
	transmitter
	encoder *encode.PlayAudio
}

func newPlayAudio(env *Env) *playAudio {
	p := &playAudio{transmitter: transmitter{env: env}}
	p.encoder = encode.NewPlayAudio(env.Shared.FIFO, 0, 0, p.refill)
	p.enc = p.encoder
	return p
}

func (p *playAudio) refill() {
	p.env.post(message.FIFOSignal{Signal: message.FIFORefill})
}

func (p *playAudio) OnMessage(m message.Message) error {
	data, ok := m.(message.FIFOData)
	if !ok {
		return ErrUnsupported
	}
	if n := p.env.Shared.FIFO.Write(data.Data); n < len(data.Data) {
		p.env.Logger.Debug("fifo full, audio truncated", logging.Field{Key: "dropped", Value: len(data.Data) - n})
	}
	return nil
}

// beacon sends one 2-FSK burst per BeaconConfigure with the mode's rate and
// deviation.
type beacon struct {
	transmitter
	base encode.BeaconConfig
}

func newBeacon(env *Env, base encode.BeaconConfig) *beacon {
	return &beacon{transmitter: transmitter{env: env}, base: base}
}

func (p *beacon) OnMessage(m message.Message) error {
	cfg, ok := m.(message.BeaconConfigure)
	if !ok {
		return ErrUnsupported
	}
	if cfg.Bits < 0 || cfg.Bits > len(cfg.Data)*8 {
		return fmt.Errorf("%w: %d bits from %d bytes", ErrInvalidSettings, cfg.Bits, len(cfg.Data))
	}
	bc := p.base
	bc.Data = cfg.Data
	bc.Bits = cfg.Bits
	p.enc = encode.NewBeacon(bc, p.done)
	return nil
}
