package strategy

import (
	"github.com/rjboer/GoBaseband/internal/buffer"
	"github.com/rjboer/GoBaseband/internal/encode"
	"github.com/rjboer/GoBaseband/internal/logging"
	"github.com/rjboer/GoBaseband/internal/message"
	"github.com/rjboer/GoBaseband/internal/stats"
)

// rssiBeepMS is the length of one RSSI pitched beep.
const rssiBeepMS = 50

// beep drives the speaker path only. The carrier is left unmodulated and
// audio is produced at the beep rate in step with the transmit clock.
type beep struct {
	transmitter
	tone       encode.Beep
	audioStats stats.AudioCollector
	rate       float64
	frac       float64
	rssi       uint8
	audio      []float32
}

func newBeep(env *Env) *beep {
	return &beep{transmitter: transmitter{env: env}, rate: audioRate}
}

func (p *beep) Execute(buf buffer.Buffer[buffer.ComplexInt8]) {
	clear(buf.Samples)
	p.frac += float64(len(buf.Samples)) * p.rate / encode.TransmitRate
	n := int(p.frac)
	p.frac -= float64(n)
	if n == 0 {
		return
	}
	p.audio = grow(p.audio, n)
	p.tone.Execute(p.audio)
	out := buffer.New(p.audio, uint32(p.rate))
	p.audioStats.Feed(out, func(s stats.AudioStatistics) {
		p.env.Shared.PostStatistics(message.AudioStatistics{AudioStatistics: s})
	})
	if err := p.env.Audio.Write(out); err != nil {
		p.env.Logger.Warn("audio sink write failed", logging.Field{Key: "error", Value: err})
	}
}

func (p *beep) OnMessage(m message.Message) error {
	switch m := m.(type) {
	case message.AudioBeep:
		if m.SampleRate > 0 {
			p.rate = m.SampleRate
		}
		p.tone.Start(m.Freq, p.rate, m.DurationMS)
	case message.RequestSignal:
		switch m.Signal {
		case message.BeepStopRequest:
			p.tone.Stop()
		case message.RSSIBeepRequest:
			if p.tone.PitchEnabled() {
				p.tone.Start(encode.RSSIFrequency(p.rssi), p.rate, rssiBeepMS)
			}
		}
	case message.PitchRSSIConfigure:
		p.tone.ConfigurePitch(m.Enabled)
		p.rssi = m.RSSI
	default:
		return ErrUnsupported
	}
	return nil
}
