package encode

import "math"

// Beep produces audio tones for the speaker path: timed beeps and an RSSI
// pitched tone. Output is float audio at the configured rate.
type Beep struct {
	rate      float64
	freq      float64
	phase     float64
	remaining int
	pitchRSSI bool
}

// Start begins a tone of freq Hz at sampleRate lasting durationMS; zero
// duration keeps it on until Stop.
func (b *Beep) Start(freq, sampleRate float64, durationMS uint32) {
	b.rate = sampleRate
	b.freq = freq
	b.phase = 0
	if durationMS == 0 {
		b.remaining = -1
		return
	}
	b.remaining = int(sampleRate * float64(durationMS) / 1000)
}

func (b *Beep) Stop() { b.remaining = 0 }

// Active reports whether a tone is playing.
func (b *Beep) Active() bool { return b.remaining != 0 && b.rate > 0 }

// ConfigurePitch enables RSSI pitched beeps.
func (b *Beep) ConfigurePitch(enabled bool) { b.pitchRSSI = enabled }

// PitchEnabled reports whether RSSI beeps are on.
func (b *Beep) PitchEnabled() bool { return b.pitchRSSI }

// RSSIFrequency maps an RSSI level to a beep pitch.
func RSSIFrequency(rssi uint8) float64 {
	return 400 + float64(rssi)*8
}

// Execute writes the tone into dst and silence once it ends.
func (b *Beep) Execute(dst []float32) {
	step := 0.0
	if b.rate > 0 {
		step = 2 * math.Pi * b.freq / b.rate
	}
	for i := range dst {
		if b.remaining == 0 || b.rate == 0 {
			dst[i] = 0
			continue
		}
		dst[i] = float32(0.5 * math.Sin(b.phase))
		b.phase += step
		if b.phase > 2*math.Pi {
			b.phase -= 2 * math.Pi
		}
		if b.remaining > 0 {
			b.remaining--
		}
	}
}
