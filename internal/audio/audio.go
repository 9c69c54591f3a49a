// Package audio provides the sinks demodulated audio and captured IQ flow
// into: WAV files, the host sound card and a discard sink.
package audio

import (
	"errors"

	"github.com/rjboer/GoBaseband/internal/buffer"
)

// ErrChannelMismatch indicates a write that does not fit the sink layout.
var ErrChannelMismatch = errors.New("audio: sink channel layout mismatch")

// Sink receives demodulated audio in [-1, 1].
type Sink interface {
	Write(buf buffer.Buffer[float32]) error
	Close() error
}

// IQSink receives decimated complex samples.
type IQSink interface {
	WriteIQ(buf buffer.Buffer[buffer.ComplexInt16]) error
	Close() error
}

// Discard drops everything written to it.
type Discard struct{}

func (Discard) Write(buffer.Buffer[float32]) error { return nil }
func (Discard) WriteIQ(buffer.Buffer[buffer.ComplexInt16]) error { return nil }
func (Discard) Close() error { return nil }

// toPCM16 scales a [-1, 1] sample to signed 16-bit PCM.
func toPCM16(v float32) int16 {
	return buffer.SaturateInt16(v * 32767)
}
