// Package stats aggregates per-buffer measurements into periodic summaries.
// Each collector emits once per window of samples and then starts over.
package stats

import (
	"math"
	"time"

	"github.com/rjboer/GoBaseband/internal/buffer"
)

// Window lengths in seconds of samples.
const (
	BasebandWindow = 1.0
	ChannelWindow  = 0.1
	AudioWindow    = 0.1
	RSSIWindow     = 0.1
)

// floorDB is reported for silent windows.
const floorDB = -150.0

// threshold returns the sample count that closes a window.
func threshold(rate uint32, window float64) uint64 {
	n := uint64(float64(rate) * window)
	if n == 0 {
		n = 1
	}
	return n
}

type BasebandStatistics struct {
	IdleTicks     uint32
	MainTicks     uint32
	RSSITicks     uint32
	BasebandTicks uint32
	Saturation    bool
}

// BasebandCollector measures processing load: time spent waiting for buffers
// against time spent inside the strategy.
type BasebandCollector struct {
	samples    uint64
	idle       time.Duration
	busy       time.Duration
	rssi       time.Duration
	saturation bool
}

// Feed accounts one buffer of count samples.
func (c *BasebandCollector) Feed(count int, rate uint32, idle, busy time.Duration, saturated bool, cb func(BasebandStatistics)) {
	c.samples += uint64(count)
	c.idle += idle
	c.busy += busy
	c.saturation = c.saturation || saturated
	if c.samples < threshold(rate, BasebandWindow) {
		return
	}
	cb(BasebandStatistics{
		IdleTicks:     uint32(c.idle.Microseconds()),
		MainTicks:     uint32((c.idle + c.busy).Microseconds()),
		RSSITicks:     uint32(c.rssi.Microseconds()),
		BasebandTicks: uint32(c.busy.Microseconds()),
		Saturation:    c.saturation,
	})
	*c = BasebandCollector{}
}

// AddRSSITime accounts time spent on the RSSI path.
func (c *BasebandCollector) AddRSSITime(d time.Duration) { c.rssi += d }

type ChannelStatistics struct {
	MaxDB float64
	Count uint32
}

// ChannelCollector tracks the peak channel power.
type ChannelCollector struct {
	samples uint64
	maxSq   uint64
}

func (c *ChannelCollector) Feed(buf buffer.Buffer[buffer.ComplexInt16], cb func(ChannelStatistics)) {
	for _, s := range buf.Samples {
		i, q := int64(s.I), int64(s.Q)
		if p := uint64(i*i + q*q); p > c.maxSq {
			c.maxSq = p
		}
	}
	c.samples += uint64(len(buf.Samples))
	if c.samples < threshold(buf.SamplingRate, ChannelWindow) {
		return
	}
	cb(ChannelStatistics{MaxDB: powerDB(float64(c.maxSq) / (32768.0 * 32768.0)), Count: uint32(c.samples)})
	*c = ChannelCollector{}
}

type AudioStatistics struct {
	RMSDB float64
	MaxDB float64
	Count uint32
}

// AudioCollector tracks RMS and peak level of demodulated audio.
type AudioCollector struct {
	samples    uint64
	sumSquares float64
	maxSquared float64
}

func (c *AudioCollector) Feed(buf buffer.Buffer[float32], cb func(AudioStatistics)) {
	for _, v := range buf.Samples {
		sq := float64(v) * float64(v)
		c.sumSquares += sq
		if sq > c.maxSquared {
			c.maxSquared = sq
		}
	}
	c.samples += uint64(len(buf.Samples))
	if c.samples < threshold(buf.SamplingRate, AudioWindow) {
		return
	}
	cb(AudioStatistics{
		RMSDB: powerDB(c.sumSquares / float64(c.samples)),
		MaxDB: powerDB(c.maxSquared),
		Count: uint32(c.samples),
	})
	*c = AudioCollector{}
}

type RSSIStatistics struct {
	Accumulator uint32
	Min         uint8
	Max         uint8
	Count       uint32
}

// Avg returns the mean RSSI of the window.
func (s RSSIStatistics) Avg() uint8 {
	if s.Count == 0 {
		return 0
	}
	return uint8(s.Accumulator / s.Count)
}

// RSSICollector tracks min, max and mean of raw RSSI samples.
type RSSICollector struct {
	acc     uint32
	min     uint8
	max     uint8
	samples uint32
}

func (c *RSSICollector) Feed(buf buffer.Buffer[uint8], cb func(RSSIStatistics)) {
	for _, v := range buf.Samples {
		if c.samples == 0 || v < c.min {
			c.min = v
		}
		if v > c.max {
			c.max = v
		}
		c.acc += uint32(v)
		c.samples++
	}
	if uint64(c.samples) < threshold(buf.SamplingRate, RSSIWindow) {
		return
	}
	cb(RSSIStatistics{Accumulator: c.acc, Min: c.min, Max: c.max, Count: c.samples})
	*c = RSSICollector{}
}

func powerDB(p float64) float64 {
	if p <= 0 {
		return floorDB
	}
	return math.Max(10*math.Log10(p), floorDB)
}
