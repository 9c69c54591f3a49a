package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjboer/GoBaseband/internal/buffer"
	"github.com/rjboer/GoBaseband/internal/decode"
	"github.com/rjboer/GoBaseband/internal/dma"
	"github.com/rjboer/GoBaseband/internal/dsp"
	"github.com/rjboer/GoBaseband/internal/encode"
	"github.com/rjboer/GoBaseband/internal/message"
	"github.com/rjboer/GoBaseband/internal/sdr"
	"github.com/rjboer/GoBaseband/internal/shared"
)

const bufferSize = 2048

type recordingAudio struct {
	samples []float32
	rate    uint32
	writes  int
}

func (r *recordingAudio) Write(b buffer.Buffer[float32]) error {
	r.samples = append(r.samples, b.Samples...)
	r.rate = b.SamplingRate
	r.writes++
	return nil
}

func (r *recordingAudio) Close() error { return nil }

type recordingIQ struct {
	samples int
	rate    uint32
}

func (r *recordingIQ) WriteIQ(b buffer.Buffer[buffer.ComplexInt16]) error {
	r.samples += len(b.Samples)
	r.rate = b.SamplingRate
	return nil
}

func (r *recordingIQ) Close() error { return nil }

func drain(s *shared.State) []message.Message {
	var out []message.Message
	for {
		m, ok := s.Application.TryPop()
		if !ok {
			return out
		}
		out = append(out, m)
	}
}

func feed(p Processor, src sdr.Source, buffers int) {
	dst := make([]buffer.ComplexInt8, bufferSize)
	for i := 0; i < buffers; i++ {
		src.Fill(dst, int64(i*bufferSize))
		p.Execute(buffer.New(dst, BasebandRate))
	}
}

func TestNewIsTotal(t *testing.T) {
	receive := []Mode{NarrowbandAM, NarrowbandFM, WidebandFM, FSKReceive, CaptureMode}
	transmit := []Mode{RDSTransmit, LCRTransmit, JammerMode, XylosMode, PlayAudio, SondeMode, TPMSMode, AudioBeep}
	for _, m := range receive {
		p := New(m, Env{})
		require.NotNil(t, p, m.String())
		assert.Equal(t, dma.Receive, p.Direction(), m.String())
	}
	for _, m := range transmit {
		p := New(m, Env{})
		require.NotNil(t, p, m.String())
		assert.Equal(t, dma.Transmit, p.Direction(), m.String())
	}
	for _, m := range []Mode{Idle, 5, 14, 24, 0xFFFFFFFF} {
		assert.Nil(t, New(m, Env{}), "mode %d", m)
	}
}

func TestParseMode(t *testing.T) {
	m, ok := ParseMode("fsk")
	assert.True(t, ok)
	assert.Equal(t, FSKReceive, m)
	_, ok = ParseMode("fm-stereo")
	assert.False(t, ok)
	assert.Equal(t, "unknown", Mode(99).String())
}

func fskFrame(payload uint64) []uint8 {
	bits := make([]uint8, 0, 128)
	for i := 0; i < 32; i++ {
		bits = append(bits, uint8(1-i&1))
	}
	bits = append(bits, sdr.BitsFromUint(0xABCD1234, 32)...)
	return append(bits, sdr.BitsFromUint(payload, 64)...)
}

func fskPackets(msgs []message.Message) []decode.Packet {
	var out []decode.Packet
	for _, m := range msgs {
		if p, ok := m.(message.FSKPacket); ok {
			out = append(out, p.Packet)
		}
	}
	return out
}

var fskConfig = message.FSKConfigure{
	SymbolRate:          9600,
	AccessCode:          0xABCD1234,
	AccessCodeLength:    32,
	AccessCodeTolerance: 0,
	PacketLength:        64,
}

func TestFSKDecodesPacketEndToEnd(t *testing.T) {
	state := shared.New(256, 0)
	p := New(FSKReceive, Env{Shared: state})
	require.NoError(t, p.OnMessage(fskConfig))

	src := sdr.NewFSKSource(BasebandRate, BasebandRate/4, 20_000, 9600, 100, fskFrame(0x0123456789ABCDEF))
	feed(p, src, 40)

	packets := fskPackets(drain(state))
	require.Len(t, packets, 1)
	assert.Equal(t, 64, packets[0].BitsReceived)
	assert.Equal(t, []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF}, packets[0].Payload)
}

func TestFSKInvalidConfigurationKeepsPrevious(t *testing.T) {
	state := shared.New(256, 0)
	p := New(FSKReceive, Env{Shared: state})
	require.NoError(t, p.OnMessage(fskConfig))

	bad := fskConfig
	bad.AccessCodeLength = 33
	assert.ErrorIs(t, p.OnMessage(bad), decode.ErrInvalidConfig)
	bad = fskConfig
	bad.PacketLength = 300
	bad.AccessCode = 0
	assert.ErrorIs(t, p.OnMessage(bad), decode.ErrInvalidConfig)

	src := sdr.NewFSKSource(BasebandRate, BasebandRate/4, 20_000, 9600, 100, fskFrame(0xFFFF0000FFFF0000))
	feed(p, src, 40)
	packets := fskPackets(drain(state))
	require.Len(t, packets, 1)
	assert.Equal(t, []byte{0xFF, 0xFF, 0, 0, 0xFF, 0xFF, 0, 0}, packets[0].Payload)
}

func TestFSKRejectsSymbolRateAboveHalfChannelRate(t *testing.T) {
	state := shared.New(256, 0)
	p := New(FSKReceive, Env{Shared: state})
	require.NoError(t, p.OnMessage(fskConfig))

	for _, rate := range []uint32{96_001, 200_000, 3_000_000} {
		bad := fskConfig
		bad.SymbolRate = rate
		bad.AccessCode = 0
		assert.ErrorIs(t, p.OnMessage(bad), decode.ErrInvalidConfig, "symbol rate %d", rate)
	}

	src := sdr.NewFSKSource(BasebandRate, BasebandRate/4, 20_000, 9600, 100, fskFrame(0x0123456789ABCDEF))
	feed(p, src, 40)
	packets := fskPackets(drain(state))
	require.Len(t, packets, 1, "previous symbol rate and access code still decode")
	assert.Equal(t, []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF}, packets[0].Payload)
}

func TestFSKUnconfiguredNeverEmits(t *testing.T) {
	state := shared.New(256, 0)
	p := New(FSKReceive, Env{Shared: state})
	src := sdr.NewFSKSource(BasebandRate, BasebandRate/4, 20_000, 9600, 100, fskFrame(1))
	feed(p, src, 40)
	assert.Empty(t, fskPackets(drain(state)))
	assert.ErrorIs(t, p.OnMessage(message.CaptureConfig{Enabled: true}), ErrUnsupported)
}

func TestReceiveAudioRates(t *testing.T) {
	tone := sdr.ToneSource{SampleRate: BasebandRate, Offset: BasebandRate/4 + 1000, Amplitude: 100}
	for _, mode := range []Mode{NarrowbandAM, NarrowbandFM, WidebandFM} {
		sink := &recordingAudio{}
		p := New(mode, Env{Audio: sink})
		feed(p, tone, 4)
		assert.Equal(t, 4, sink.writes, mode.String())
		assert.Len(t, sink.samples, 4*32, mode.String())
		assert.Equal(t, uint32(48_000), sink.rate, mode.String())
	}
}

func TestNBAMPostsStatisticsOncePerWindow(t *testing.T) {
	state := shared.New(64, 0)
	sink := &recordingAudio{}
	p := New(NarrowbandAM, Env{Shared: state, Audio: sink})
	tone := sdr.ToneSource{SampleRate: BasebandRate, Offset: BasebandRate / 4, Amplitude: 100}

	// 0.1 s at 48 kHz is 4800 channel samples, 32 per buffer
	feed(p, tone, 149)
	assert.Empty(t, drain(state))
	feed(p, tone, 1)
	var kinds []message.ID
	for _, m := range drain(state) {
		kinds = append(kinds, m.ID())
	}
	assert.ElementsMatch(t, []message.ID{message.IDChannelStatistics, message.IDAudioStatistics}, kinds)
	assert.Len(t, sink.samples, 150*32)

	feed(p, tone, 150)
	assert.Empty(t, drain(state), "slots stay busy until released")
}

func TestUpdateSpectrumUsesRecentChannel(t *testing.T) {
	state := shared.New(8, 0)
	p := New(WidebandFM, Env{Shared: state})
	p.UpdateSpectrum()
	assert.Empty(t, drain(state), "no channel seen yet")

	tone := sdr.ToneSource{SampleRate: BasebandRate, Offset: BasebandRate/4 + 48_000, Amplitude: 100}
	feed(p, tone, 2)
	p.UpdateSpectrum()
	msgs := drain(state)
	require.Len(t, msgs, 1)
	spectrum, ok := msgs[0].(message.ChannelSpectrum)
	require.True(t, ok)
	assert.Equal(t, uint32(BasebandRate/8), spectrum.SamplingRate)
	require.Len(t, spectrum.DB, 256)
	bin, _ := dsp.PeakBin(spectrum.DB)
	assert.Equal(t, 128+32, bin)
}

func TestUpdateSpectrumFollowsRequestedSize(t *testing.T) {
	state := shared.New(8, 0)
	p := New(WidebandFM, Env{Shared: state})
	tone := sdr.ToneSource{SampleRate: BasebandRate, Offset: BasebandRate/4 + 48_000, Amplitude: 100}
	feed(p, tone, 2)

	state.SetSpectrumSize(128)
	p.UpdateSpectrum()
	msgs := drain(state)
	require.Len(t, msgs, 1)
	spectrum := msgs[0].(message.ChannelSpectrum)
	require.Len(t, spectrum.DB, 128)
	bin, _ := dsp.PeakBin(spectrum.DB)
	assert.Equal(t, 64+16, bin)

	state.SetSpectrumSize(100)
	p.UpdateSpectrum()
	msgs = drain(state)
	require.Len(t, msgs, 1)
	assert.Len(t, msgs[0].(message.ChannelSpectrum).DB, 128, "invalid size keeps the current one")
}

func TestValidSpectrumSize(t *testing.T) {
	for _, n := range []int{8, 16, 128, 256} {
		assert.True(t, ValidSpectrumSize(n), "%d", n)
	}
	for _, n := range []int{0, 4, 100, 512, -8} {
		assert.False(t, ValidSpectrumSize(n), "%d", n)
	}
}

func TestCaptureStreamsOnlyWhenEnabled(t *testing.T) {
	iq := &recordingIQ{}
	p := New(CaptureMode, Env{Capture: iq, Decimation: 16})
	noise := sdr.NewNoiseSource(7, 20)
	feed(p, noise, 2)
	assert.Zero(t, iq.samples)

	require.NoError(t, p.OnMessage(message.CaptureConfig{Enabled: true}))
	feed(p, noise, 3)
	assert.Equal(t, 3*bufferSize/16, iq.samples)
	assert.Equal(t, uint32(BasebandRate/16), iq.rate)

	require.NoError(t, p.OnMessage(message.CaptureConfig{Enabled: false}))
	feed(p, noise, 1)
	assert.Equal(t, 3*bufferSize/16, iq.samples)
}

func TestCaptureDecimatesByOversampleRate(t *testing.T) {
	iq := &recordingIQ{}
	p := New(CaptureMode, Env{Capture: iq, Decimation: 8})
	require.NoError(t, p.OnMessage(message.CaptureConfig{Enabled: true}))
	require.NoError(t, p.OnMessage(message.SampleRateConfig{SampleRate: BasebandRate / 32, OversampleRate: 32}))

	noise := sdr.NewNoiseSource(7, 20)
	feed(p, noise, 2)
	assert.Equal(t, 2*bufferSize/32, iq.samples)
	assert.Equal(t, uint32(BasebandRate/32), iq.rate)

	assert.ErrorIs(t, p.OnMessage(message.SampleRateConfig{SampleRate: 1_000_000, OversampleRate: 3}), ErrInvalidSettings)
	feed(p, noise, 1)
	assert.Equal(t, 3*bufferSize/32, iq.samples, "rejected factor keeps x32")
	assert.ErrorIs(t, New(NarrowbandAM, Env{}).OnMessage(message.SampleRateConfig{OversampleRate: 8}), ErrUnsupported)
}

func TestTransmitSilentUntilConfigured(t *testing.T) {
	state := shared.New(64, 0)
	p := New(LCRTransmit, Env{Shared: state})
	buf := make([]buffer.ComplexInt8, bufferSize)
	for i := range buf {
		buf[i] = buffer.ComplexInt8{I: 5, Q: 5}
	}
	p.Execute(buffer.New(buf, encode.TransmitRate))
	for _, s := range buf {
		require.Equal(t, buffer.ComplexInt8{}, s)
	}

	err := p.OnMessage(message.LCRConfigure{Data: []byte{0xA5}, Bits: 9})
	assert.ErrorIs(t, err, ErrInvalidSettings)
	err = p.OnMessage(message.LCRConfigure{BaudRate: 3_000_000, Data: []byte{0xA5}, Bits: 8})
	assert.ErrorIs(t, err, ErrInvalidSettings)
	err = p.OnMessage(message.LCRConfigure{BaudRate: -1200, Data: []byte{0xA5}, Bits: 8})
	assert.ErrorIs(t, err, ErrInvalidSettings)
	p.Execute(buffer.New(buf, encode.TransmitRate))
	assert.Empty(t, drain(state), "rejected settings start nothing")

	// 8 bits at 1200 baud is 15200 samples
	require.NoError(t, p.OnMessage(message.LCRConfigure{Data: []byte{0xA5}, Bits: 8, Repeats: 1}))
	for i := 0; i < 8; i++ {
		p.Execute(buffer.New(buf, encode.TransmitRate))
	}
	assert.Equal(t, []message.Message{message.TXDone{Progress: 1}}, drain(state))
}

func TestTransmitSettingsValidation(t *testing.T) {
	env := Env{}
	assert.ErrorIs(t, New(XylosMode, env).OnMessage(message.XylosConfigure{Sequence: "12Z"}), ErrInvalidSettings)
	assert.NoError(t, New(XylosMode, env).OnMessage(message.XylosConfigure{Sequence: "1123", ToneMS: 40}))
	assert.ErrorIs(t, New(JammerMode, env).OnMessage(message.JammerConfigure{Ranges: []message.JammerRange{{Width: -1}}}), ErrInvalidSettings)
	assert.ErrorIs(t, New(RDSTransmit, env).OnMessage(message.RDSData{Blocks: make([]uint32, 17)}), ErrInvalidSettings)
	assert.NoError(t, New(RDSTransmit, env).OnMessage(message.RDSData{Blocks: []uint32{1, 2, 3, 4}}))
	assert.ErrorIs(t, New(TPMSMode, env).OnMessage(message.BeaconConfigure{Data: []byte{1}, Bits: 12}), ErrInvalidSettings)
	assert.ErrorIs(t, New(SondeMode, env).OnMessage(message.FIFOData{}), ErrUnsupported)
}

func TestBeaconBurstReportsDone(t *testing.T) {
	state := shared.New(64, 0)
	p := New(SondeMode, Env{Shared: state})
	require.NoError(t, p.OnMessage(message.BeaconConfigure{Data: []byte{0xF0}, Bits: 4}))
	buf := make([]buffer.ComplexInt8, bufferSize)
	// 4 bits at 4800 baud is 1900 samples
	p.Execute(buffer.New(buf, encode.TransmitRate))
	p.Execute(buffer.New(buf, encode.TransmitRate))
	assert.Equal(t, []message.Message{message.TXDone{Progress: 4}}, drain(state))
}

func TestPlayAudioRequestsRefill(t *testing.T) {
	state := shared.New(64, 64)
	p := New(PlayAudio, Env{Shared: state})
	buf := make([]buffer.ComplexInt8, bufferSize)

	p.Execute(buffer.New(buf, encode.TransmitRate))
	assert.Equal(t, []message.Message{message.FIFOSignal{Signal: message.FIFORefill}}, drain(state))

	require.NoError(t, p.OnMessage(message.FIFOData{Data: make([]int8, 100)}))
	assert.Equal(t, 64, state.FIFO.Len())
}

func TestBeepStrategy(t *testing.T) {
	sink := &recordingAudio{}
	p := New(AudioBeep, Env{Audio: sink}).(*beep)
	buf := make([]buffer.ComplexInt8, bufferSize)
	for i := range buf {
		buf[i] = buffer.ComplexInt8{I: 1}
	}

	require.NoError(t, p.OnMessage(message.RequestSignal{Signal: message.RSSIBeepRequest}))
	assert.False(t, p.tone.Active(), "pitch beeps disabled")

	require.NoError(t, p.OnMessage(message.AudioBeep{Freq: 1000, SampleRate: 48_000, DurationMS: 10}))
	p.Execute(buffer.New(buf, encode.TransmitRate))
	assert.Equal(t, buffer.ComplexInt8{}, buf[0], "carrier stays unmodulated")
	// 2048 samples at 2.28 MHz carry 43 audio samples at 48 kHz
	require.Len(t, sink.samples, 43)
	assert.NotZero(t, sink.samples[1])

	for i := 0; i < 12; i++ {
		p.Execute(buffer.New(buf, encode.TransmitRate))
	}
	assert.False(t, p.tone.Active(), "10 ms beep ended")

	require.NoError(t, p.OnMessage(message.PitchRSSIConfigure{Enabled: true, RSSI: 50}))
	require.NoError(t, p.OnMessage(message.RequestSignal{Signal: message.RSSIBeepRequest}))
	assert.True(t, p.tone.Active())
	require.NoError(t, p.OnMessage(message.RequestSignal{Signal: message.BeepStopRequest}))
	assert.False(t, p.tone.Active())
	assert.ErrorIs(t, p.OnMessage(message.FSKConfigure{}), ErrUnsupported)
}
