package strategy

import (
	"github.com/rjboer/GoBaseband/internal/buffer"
	"github.com/rjboer/GoBaseband/internal/dma"
	"github.com/rjboer/GoBaseband/internal/dsp"
	"github.com/rjboer/GoBaseband/internal/logging"
	"github.com/rjboer/GoBaseband/internal/message"
	"github.com/rjboer/GoBaseband/internal/stats"
)

const (
	// BasebandRate is the front-end receive rate assumed when a buffer
	// carries none.
	BasebandRate = 3_072_000

	// MinSpectrumSize and MaxSpectrumSize bound the FFT size of a
	// ChannelSpectrum; sizes are powers of two.
	MinSpectrumSize = 8
	MaxSpectrumSize = 256

	audioRate    = 48_000
	channelTaps  = 32
	audioTaps    = 64
)

// receiver carries what every receive strategy shares: channel and audio
// statistics, the audio sink and the recent channel history for spectrum
// requests.
type receiver struct {
	env          *Env
	channelStats stats.ChannelCollector
	audioStats   stats.AudioCollector
	spectrum     *dsp.Spectrum
	history      [MaxSpectrumSize]buffer.ComplexInt16
	filled       int
	channelRate  uint32
}

func newReceiver(env *Env) receiver {
	return receiver{env: env, spectrum: dsp.NewSpectrum(MaxSpectrumSize)}
}

func (r *receiver) Direction() dma.Direction { return dma.Receive }

func baseband(buf buffer.Buffer[buffer.ComplexInt8]) buffer.Buffer[buffer.ComplexInt8] {
	if buf.SamplingRate == 0 {
		buf.SamplingRate = BasebandRate
	}
	return buf
}

func (r *receiver) feedChannel(ch buffer.Buffer[buffer.ComplexInt16]) {
	r.channelStats.Feed(ch, func(s stats.ChannelStatistics) {
		r.env.Shared.PostStatistics(message.ChannelStatistics{ChannelStatistics: s})
	})
	r.channelRate = ch.SamplingRate
	n := len(ch.Samples)
	if n >= MaxSpectrumSize {
		copy(r.history[:], ch.Samples[n-MaxSpectrumSize:])
		r.filled = MaxSpectrumSize
		return
	}
	copy(r.history[:], r.history[n:])
	copy(r.history[MaxSpectrumSize-n:], ch.Samples)
	r.filled = min(r.filled+n, MaxSpectrumSize)
}

func (r *receiver) feedAudio(a buffer.Buffer[float32]) {
	r.audioStats.Feed(a, func(s stats.AudioStatistics) {
		r.env.Shared.PostStatistics(message.AudioStatistics{AudioStatistics: s})
	})
	if err := r.env.Audio.Write(a); err != nil {
		r.env.Logger.Warn("audio sink write failed", logging.Field{Key: "error", Value: err})
	}
}

// ValidSpectrumSize reports whether n can be used as a spectrum FFT size.
func ValidSpectrumSize(n int) bool {
	return n >= MinSpectrumSize && n <= MaxSpectrumSize && n&(n-1) == 0
}

// UpdateSpectrum posts the spectrum of the most recent channel samples,
// resizing the transform first when a new size was requested.
func (r *receiver) UpdateSpectrum() {
	if r.filled == 0 {
		return
	}
	if n := r.env.Shared.SpectrumSize(); ValidSpectrumSize(n) && n != r.spectrum.Size() {
		r.spectrum.UpdateSize(n)
	}
	n := min(r.filled, r.spectrum.Size())
	db := r.spectrum.Compute(r.history[MaxSpectrumSize-n:])
	r.env.post(message.ChannelSpectrum{SamplingRate: r.channelRate, DB: db})
}

func (r *receiver) OnMessage(message.Message) error { return ErrUnsupported }

// grow returns s resliced to n, reallocating when it is too small.
func grow[T any](s []T, n int) []T {
	if cap(s) < n {
		return make([]T, n)
	}
	return s[:n]
}

// nbam: x32 decimation to 96 kHz, channel filter and /2 to 48 kHz, envelope
// detection and DC removal.
type nbam struct {
	receiver
	chain   *dsp.DecimationChain
	channel *dsp.FIRDecimateComplex
	demod   dsp.AM
	dc      dsp.DCBlock
	filt    []buffer.ComplexInt16
	audio   []float32
}

func newNBAM(env *Env) *nbam {
	chain, _ := dsp.NewDecimationChain(32, 2048)
	return &nbam{
		receiver: newReceiver(env),
		chain:    chain,
		channel:  dsp.NewFIRDecimateComplex(dsp.DesignLowPass(channelTaps, 5_000, 96_000), 2),
	}
}

func (p *nbam) Execute(buf buffer.Buffer[buffer.ComplexInt8]) {
	decimated := p.chain.Execute(baseband(buf))
	p.filt = grow(p.filt, len(decimated.Samples))
	channel := p.channel.Execute(decimated, p.filt)
	p.feedChannel(channel)

	p.audio = grow(p.audio, len(channel.Samples))
	out := p.demod.Execute(channel, p.audio)
	p.dc.ExecuteInPlace(out)
	p.feedAudio(out)
}

// fmReceiver demodulates a narrow or wide FM channel with optional audio
// decimation, de-emphasis and a noise squelch.
type fmReceiver struct {
	receiver
	chain     *dsp.DecimationChain
	channel   *dsp.FIRDecimateComplex
	demod     *dsp.FM
	deviation float64
	rate      uint32
	audioFIR  *dsp.FIRDecimateReal
	deemph    *dsp.Deemphasis
	squelch   dsp.Squelch
	filt      []buffer.ComplexInt16
	raw       []float32
	audio     []float32
}

const (
	nbfmDeviation  = 2_500
	wfmDeviation   = 75_000
	wfmDeemphasis  = 75e-6
	nbfmDeemphasis = 750e-6
	// squelch thresholds on high-passed discriminator energy
	nbfmSquelch = 0.5
	wfmSquelch  = 0.05
)

func newNBFM(env *Env) *fmReceiver {
	chain, _ := dsp.NewDecimationChain(32, 2048)
	return &fmReceiver{
		receiver:  newReceiver(env),
		chain:     chain,
		channel:   dsp.NewFIRDecimateComplex(dsp.DesignLowPass(channelTaps, 6_000, 96_000), 2),
		demod:     dsp.NewFM(audioRate, nbfmDeviation),
		deviation: nbfmDeviation,
		deemph:    dsp.NewDeemphasis(audioRate, nbfmDeemphasis),
		squelch:   dsp.Squelch{Threshold: nbfmSquelch},
	}
}

func newWFM(env *Env) *fmReceiver {
	chain, _ := dsp.NewDecimationChain(8, 2048)
	return &fmReceiver{
		receiver:  newReceiver(env),
		chain:     chain,
		demod:     dsp.NewFM(BasebandRate/8, wfmDeviation),
		deviation: wfmDeviation,
		audioFIR:  dsp.NewFIRDecimateReal(dsp.DesignLowPass(audioTaps, 15_000, BasebandRate/8), 8),
		deemph:    dsp.NewDeemphasis(audioRate, wfmDeemphasis),
		squelch:   dsp.Squelch{Threshold: wfmSquelch},
	}
}

func (p *fmReceiver) Execute(buf buffer.Buffer[buffer.ComplexInt8]) {
	channel := p.chain.Execute(baseband(buf))
	if p.channel != nil {
		p.filt = grow(p.filt, len(channel.Samples))
		channel = p.channel.Execute(channel, p.filt)
	}
	p.feedChannel(channel)

	if channel.SamplingRate != p.rate {
		p.rate = channel.SamplingRate
		p.demod.Configure(float64(p.rate), p.deviation)
	}
	p.raw = grow(p.raw, len(channel.Samples))
	out := p.demod.Execute(channel, p.raw)
	if p.audioFIR != nil {
		p.audio = grow(p.audio, len(out.Samples))
		out = p.audioFIR.Execute(out, p.audio)
	}
	p.squelch.Execute(out)
	p.deemph.ExecuteInPlace(out)
	if !p.squelch.Open() {
		clear(out.Samples)
	}
	p.feedAudio(out)
}
