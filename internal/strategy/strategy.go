// Package strategy holds the processing strategies the baseband loop runs,
// one per mode code, and the total mapping from mode to strategy.
package strategy

import (
	"errors"

	"github.com/rjboer/GoBaseband/internal/audio"
	"github.com/rjboer/GoBaseband/internal/buffer"
	"github.com/rjboer/GoBaseband/internal/dma"
	"github.com/rjboer/GoBaseband/internal/encode"
	"github.com/rjboer/GoBaseband/internal/logging"
	"github.com/rjboer/GoBaseband/internal/message"
	"github.com/rjboer/GoBaseband/internal/shared"
)

// ErrUnsupported is returned by OnMessage for kinds a strategy ignores.
var ErrUnsupported = errors.New("strategy: message not handled by active mode")

// ErrInvalidSettings indicates encoder settings the active mode cannot use.
var ErrInvalidSettings = errors.New("strategy: invalid encoder settings")

// Mode is the numeric mode code carried by BasebandConfiguration.
type Mode uint32

const (
	Idle         Mode = 0
	NarrowbandAM Mode = 1
	NarrowbandFM Mode = 2
	WidebandFM   Mode = 3
	FSKReceive   Mode = 4
	RDSTransmit  Mode = 15
	LCRTransmit  Mode = 16
	JammerMode   Mode = 17
	XylosMode    Mode = 18
	PlayAudio    Mode = 19
	SondeMode    Mode = 20
	TPMSMode     Mode = 21
	CaptureMode  Mode = 22
	AudioBeep    Mode = 23
)

var modeNames = map[Mode]string{
	Idle:         "idle",
	NarrowbandAM: "nbam",
	NarrowbandFM: "nbfm",
	WidebandFM:   "wfm",
	FSKReceive:   "fsk",
	RDSTransmit:  "rds",
	LCRTransmit:  "lcr",
	JammerMode:   "jammer",
	XylosMode:    "xylos",
	PlayAudio:    "playaudio",
	SondeMode:    "sonde",
	TPMSMode:     "tpms",
	CaptureMode:  "capture",
	AudioBeep:    "beep",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return "unknown"
}

// ParseMode accepts a mode name as printed by String.
func ParseMode(s string) (Mode, bool) {
	for m, name := range modeNames {
		if name == s {
			return m, true
		}
	}
	return Idle, false
}

// Processor is a live strategy. The loop calls Execute once per stable DMA
// slice; the dispatcher calls OnMessage. Both run under the loop's slot lock.
type Processor interface {
	dma.Owner
	Execute(buf buffer.Buffer[buffer.ComplexInt8])
	OnMessage(m message.Message) error
	UpdateSpectrum()
}

// Env carries what strategies post to and write into.
type Env struct {
	Shared  *shared.State
	Logger  logging.Logger
	Audio   audio.Sink
	Capture audio.IQSink
	Seed    int64
	// Decimation selects the capture rate; zero means x8.
	Decimation int
}

func (e *Env) defaults() *Env {
	out := *e
	if out.Shared == nil {
		out.Shared = shared.New(0, 0)
	}
	if out.Logger == nil {
		out.Logger = logging.Default()
	}
	if out.Audio == nil {
		out.Audio = audio.Discard{}
	}
	if out.Capture == nil {
		out.Capture = audio.Discard{}
	}
	return &out
}

// post queues a non-statistics message, dropping it when the queue is full.
func (e *Env) post(m message.Message) {
	if err := e.Shared.Application.Push(m); err != nil {
		e.Logger.Debug("dropped outbound message", logging.Field{Key: "id", Value: m.ID()}, logging.Field{Key: "error", Value: err})
	}
}

// New builds the strategy for mode. Unknown codes and Idle yield nil.
func New(mode Mode, env Env) Processor {
	e := env.defaults()
	e.Logger = e.Logger.With(logging.Field{Key: "subsystem", Value: "strategy"}, logging.Field{Key: "mode", Value: mode})
	switch mode {
	case NarrowbandAM:
		return newNBAM(e)
	case NarrowbandFM:
		return newNBFM(e)
	case WidebandFM:
		return newWFM(e)
	case FSKReceive:
		return newFSK(e)
	case CaptureMode:
		return newCapture(e)
	case RDSTransmit:
		return newRDS(e)
	case LCRTransmit:
		return newLCR(e)
	case JammerMode:
		return newJammer(e)
	case XylosMode:
		return newXylos(e)
	case PlayAudio:
		return newPlayAudio(e)
	case SondeMode:
		return newBeacon(e, encode.SondeBeacon)
	case TPMSMode:
		return newBeacon(e, encode.TPMSBeacon)
	case AudioBeep:
		return newBeep(e)
	default:
		return nil
	}
}
