// Package message defines the messages exchanged between the baseband core and
// the application side, and the fixed-capacity queues that carry them.
package message

import (
	"github.com/rjboer/GoBaseband/internal/decode"
	"github.com/rjboer/GoBaseband/internal/stats"
)

// ID identifies a message kind.
type ID uint32

const (
	IDRSSIStatistics ID = iota
	IDBasebandStatistics
	IDChannelStatistics
	IDAudioStatistics
	IDBasebandConfiguration
	IDShutdown
	IDUpdateSpectrum
	IDChannelSpectrum
	IDTXDone
	IDFIFOSignal
	IDFIFOData
	IDFSKConfigure
	IDFSKPacket
	IDAudioBeep
	IDRequestSignal
	IDPitchRSSIConfigure
	IDCaptureConfig
	IDSampleRateConfig
	IDRDSData
	IDLCRConfigure
	IDXylosConfigure
	IDJammerConfigure
	IDBeaconConfigure
	IDAck
	IDMax
)

var idNames = [...]string{
	"RSSIStatistics", "BasebandStatistics", "ChannelStatistics", "AudioStatistics",
	"BasebandConfiguration", "Shutdown", "UpdateSpectrum", "ChannelSpectrum",
	"TXDone", "FIFOSignal", "FIFOData", "FSKConfigure", "FSKPacket", "AudioBeep",
	"RequestSignal", "PitchRSSIConfigure", "CaptureConfig", "SampleRateConfig",
	"RDSData", "LCRConfigure", "XylosConfigure", "JammerConfigure",
	"BeaconConfigure", "Ack",
}

func (id ID) String() string {
	if int(id) < len(idNames) {
		return idNames[id]
	}
	return "Unknown"
}

// Message is anything that can cross the core boundary.
type Message interface {
	ID() ID
}

// Inbound, application to baseband.

// BasebandConfiguration selects the processing mode. Only a Mode change
// rebuilds the active strategy.
type BasebandConfiguration struct {
	Mode             uint32 `json:"mode" yaml:"mode"`
	SamplingRate     uint32 `json:"samplingRate" yaml:"samplingRate"`
	DecimationFactor uint32 `json:"decimationFactor,omitempty" yaml:"decimationFactor,omitempty"`
}

type Shutdown struct{}

// UpdateSpectrum asks for one ChannelSpectrum. A non-zero Size also changes
// the FFT size used from then on.
type UpdateSpectrum struct {
	Size int `json:"size,omitempty"`
}

type FSKConfigure struct {
	SymbolRate          uint32 `json:"symbolRate" yaml:"symbolRate"`
	AccessCode          uint32 `json:"accessCode" yaml:"accessCode"`
	AccessCodeLength    int    `json:"accessCodeLength" yaml:"accessCodeLength"`
	AccessCodeTolerance int    `json:"accessCodeTolerance" yaml:"accessCodeTolerance"`
	PacketLength        int    `json:"packetLength" yaml:"packetLength"`
}

type AudioBeep struct {
	Freq       float64 `json:"freq"`
	SampleRate float64 `json:"sampleRate"`
	DurationMS uint32  `json:"durationMs"`
}

// Signal is a request carried by RequestSignal.
type Signal uint8

const (
	BeepStopRequest Signal = iota + 1
	RSSIBeepRequest
)

type RequestSignal struct {
	Signal Signal `json:"signal"`
}

type PitchRSSIConfigure struct {
	Enabled bool  `json:"enabled"`
	RSSI    uint8 `json:"rssi"`
}

type CaptureConfig struct {
	Enabled bool `json:"enabled"`
}

type SampleRateConfig struct {
	SampleRate     uint32 `json:"sampleRate"`
	OversampleRate uint32 `json:"oversampleRate"`
}

type FIFOData struct {
	Data []int8 `json:"data"`
}

type RDSData struct {
	Blocks []uint32 `json:"blocks"`
}

type LCRConfigure struct {
	BaudRate  float64 `json:"baudRate"`
	Mark      float64 `json:"mark"`
	Space     float64 `json:"space"`
	Deviation float64 `json:"deviation"`
	Repeats   int     `json:"repeats"`
	Data      []byte  `json:"data"`
	Bits      int     `json:"bits"`
}

type XylosConfigure struct {
	Sequence  string  `json:"sequence"`
	ToneMS    uint32  `json:"toneMs"`
	Deviation float64 `json:"deviation"`
}

type JammerRange struct {
	Width float64 `json:"width"`
	Tone  bool    `json:"tone"`
}

type JammerConfigure struct {
	Ranges []JammerRange `json:"ranges"`
	HopMS  uint32        `json:"hopMs"`
}

type BeaconConfigure struct {
	Data []byte `json:"data"`
	Bits int    `json:"bits"`
}

// Outbound, baseband to application.

type BasebandStatistics struct{ stats.BasebandStatistics }
type ChannelStatistics struct{ stats.ChannelStatistics }
type AudioStatistics struct{ stats.AudioStatistics }
type RSSIStatistics struct{ stats.RSSIStatistics }

type FSKPacket struct {
	decode.Packet
}

type TXDone struct {
	Progress uint32 `json:"progress"`
}

type ChannelSpectrum struct {
	SamplingRate uint32    `json:"samplingRate"`
	DB           []float64 `json:"db"`
}

// FIFO signal types.
const (
	FIFORefill byte = 'R'
)

type FIFOSignal struct {
	Signal byte `json:"signal"`
}

// Ack confirms a Shutdown.
type Ack struct{}

func (BasebandConfiguration) ID() ID { return IDBasebandConfiguration }
func (Shutdown) ID() ID { return IDShutdown }
func (UpdateSpectrum) ID() ID { return IDUpdateSpectrum }
func (FSKConfigure) ID() ID { return IDFSKConfigure }
func (AudioBeep) ID() ID { return IDAudioBeep }
func (RequestSignal) ID() ID { return IDRequestSignal }
func (PitchRSSIConfigure) ID() ID { return IDPitchRSSIConfigure }
func (CaptureConfig) ID() ID { return IDCaptureConfig }
func (SampleRateConfig) ID() ID { return IDSampleRateConfig }
func (FIFOData) ID() ID { return IDFIFOData }
func (RDSData) ID() ID { return IDRDSData }
func (LCRConfigure) ID() ID { return IDLCRConfigure }
func (XylosConfigure) ID() ID { return IDXylosConfigure }
func (JammerConfigure) ID() ID { return IDJammerConfigure }
func (BeaconConfigure) ID() ID { return IDBeaconConfigure }
func (BasebandStatistics) ID() ID { return IDBasebandStatistics }
func (ChannelStatistics) ID() ID { return IDChannelStatistics }
func (AudioStatistics) ID() ID { return IDAudioStatistics }
func (RSSIStatistics) ID() ID { return IDRSSIStatistics }
func (FSKPacket) ID() ID { return IDFSKPacket }
func (TXDone) ID() ID { return IDTXDone }
func (ChannelSpectrum) ID() ID { return IDChannelSpectrum }
func (FIFOSignal) ID() ID { return IDFIFOSignal }
func (Ack) ID() ID { return IDAck }
