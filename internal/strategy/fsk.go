package strategy

import (
	"fmt"

	"github.com/rjboer/GoBaseband/internal/buffer"
	"github.com/rjboer/GoBaseband/internal/decode"
	"github.com/rjboer/GoBaseband/internal/dsp"
	"github.com/rjboer/GoBaseband/internal/logging"
	"github.com/rjboer/GoBaseband/internal/message"
)

const (
	fskDecimation = 16
	// DefaultSymbolRate is used until an FSKConfigure arrives.
	DefaultSymbolRate = 9600
)

// fsk demodulates 2-FSK at 192 kHz and runs the bit chain: clock recovery,
// access code search and packet assembly.
type fsk struct {
	receiver
	chain      *dsp.DecimationChain
	demod      *dsp.FM
	normalizer dsp.Normalizer
	clock      *decode.ClockRecovery
	correlator decode.AccessCodeCorrelator
	packet     decode.PacketBuilder
	symbolRate float64
	rate       uint32
	audio      []float32
}

func newFSK(env *Env) *fsk {
	chain, _ := dsp.NewDecimationChain(fskDecimation, 2048)
	rate := float64(BasebandRate / fskDecimation)
	return &fsk{
		receiver:   newReceiver(env),
		chain:      chain,
		demod:      dsp.NewFM(rate, DefaultSymbolRate),
		clock:      decode.NewClockRecovery(rate, DefaultSymbolRate),
		symbolRate: DefaultSymbolRate,
		rate:       BasebandRate / fskDecimation,
	}
}

func (p *fsk) Execute(buf buffer.Buffer[buffer.ComplexInt8]) {
	channel := p.chain.Execute(baseband(buf))
	p.feedChannel(channel)
	if channel.SamplingRate != p.rate {
		p.rate = channel.SamplingRate
		p.retime()
	}

	p.audio = grow(p.audio, len(channel.Samples))
	out := p.demod.Execute(channel, p.audio)
	p.normalizer.ExecuteInPlace(out)
	p.clock.Execute(out.Samples, p.symbol)
}

func (p *fsk) retime() {
	if err := p.clock.Configure(float64(p.rate), p.symbolRate); err != nil {
		p.env.Logger.Warn("fsk clock not retimed", logging.Field{Key: "error", Value: err})
		return
	}
	p.demod.Configure(float64(p.rate), p.symbolRate)
}

func (p *fsk) symbol(bit uint8) {
	match := p.correlator.Execute(bit)
	p.packet.Execute(bit, match, p.emit)
}

func (p *fsk) emit(pkt decode.Packet) {
	p.env.post(message.FSKPacket{Packet: pkt})
}

// OnMessage applies FSKConfigure. An invalid access code, packet length or
// symbol rate is rejected as a whole and the running configuration stays in
// place. A zero symbol rate keeps the current one.
func (p *fsk) OnMessage(m message.Message) error {
	cfg, ok := m.(message.FSKConfigure)
	if !ok {
		return ErrUnsupported
	}
	if cfg.SymbolRate > 0 && !decode.ValidSymbolRate(float64(p.rate), float64(cfg.SymbolRate)) {
		return fmt.Errorf("%w: symbol rate %d above half the %d Hz channel rate", decode.ErrInvalidConfig, cfg.SymbolRate, p.rate)
	}
	correlator := p.correlator
	if err := correlator.Configure(cfg.AccessCode, cfg.AccessCodeLength, cfg.AccessCodeTolerance); err != nil {
		return err
	}
	var packet decode.PacketBuilder
	if err := packet.Configure(cfg.PacketLength); err != nil {
		return err
	}
	p.correlator = correlator
	p.packet = packet
	if cfg.SymbolRate > 0 && float64(cfg.SymbolRate) != p.symbolRate {
		p.symbolRate = float64(cfg.SymbolRate)
		p.retime()
	}
	return nil
}
