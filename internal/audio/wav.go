package audio

import (
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/rjboer/GoBaseband/internal/buffer"
)

const (
	bitDepth  = 16
	pcmFormat = 1
)

// WAV writes 16-bit PCM. A mono file takes audio, a stereo file takes IQ with
// I on the left channel.
type WAV struct {
	enc      *wav.Encoder
	closer   io.Closer
	channels int
	rate     int
	scratch  goaudio.IntBuffer
	frames   int64
}

// NewWAV encodes to ws. closer, when non-nil, is closed after the encoder.
func NewWAV(ws io.WriteSeeker, closer io.Closer, sampleRate, channels int) (*WAV, error) {
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("%w: %d channels", ErrChannelMismatch, channels)
	}
	w := &WAV{
		enc:      wav.NewEncoder(ws, sampleRate, bitDepth, channels, pcmFormat),
		closer:   closer,
		channels: channels,
		rate:     sampleRate,
	}
	w.scratch.Format = &goaudio.Format{NumChannels: channels, SampleRate: sampleRate}
	w.scratch.SourceBitDepth = bitDepth
	return w, nil
}

// CreateWAV creates path and returns a writer that owns the file.
func CreateWAV(path string, sampleRate, channels int) (*WAV, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	w, err := NewWAV(f, f, sampleRate, channels)
	if err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// Frames returns the number of frames written.
func (w *WAV) Frames() int64 { return w.frames }

// SampleRate returns the rate recorded in the header.
func (w *WAV) SampleRate() int { return w.rate }

func (w *WAV) Write(buf buffer.Buffer[float32]) error {
	if w.channels != 1 {
		return ErrChannelMismatch
	}
	data := w.scratch.Data[:0]
	for _, s := range buf.Samples {
		data = append(data, int(toPCM16(s)))
	}
	return w.flush(data, len(buf.Samples))
}

func (w *WAV) WriteIQ(buf buffer.Buffer[buffer.ComplexInt16]) error {
	if w.channels != 2 {
		return ErrChannelMismatch
	}
	data := w.scratch.Data[:0]
	for _, s := range buf.Samples {
		data = append(data, int(s.I), int(s.Q))
	}
	return w.flush(data, len(buf.Samples))
}

func (w *WAV) flush(data []int, frames int) error {
	w.scratch.Data = data
	if len(data) == 0 {
		return nil
	}
	if err := w.enc.Write(&w.scratch); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	w.frames += int64(frames)
	return nil
}

// Close finalizes the header.
func (w *WAV) Close() error {
	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("close wav: %w", err)
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}
