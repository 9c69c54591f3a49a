package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjboer/GoBaseband/internal/buffer"
	"github.com/rjboer/GoBaseband/internal/decode"
	"github.com/rjboer/GoBaseband/internal/dma"
	"github.com/rjboer/GoBaseband/internal/message"
	"github.com/rjboer/GoBaseband/internal/sdr"
	"github.com/rjboer/GoBaseband/internal/shared"
	"github.com/rjboer/GoBaseband/internal/strategy"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

func (r *recorder) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

type fakeEngine struct {
	rec     *recorder
	mu      sync.Mutex
	enabled bool
	rate    uint32
	buffers chan buffer.Buffer[buffer.ComplexInt8]
}

func newFakeEngine(rec *recorder) *fakeEngine {
	return &fakeEngine{rec: rec, buffers: make(chan buffer.Buffer[buffer.ComplexInt8], 4)}
}

func (e *fakeEngine) Configure(d dma.Direction) { e.rec.add("engine configure %s", d) }

func (e *fakeEngine) Enable(o dma.Owner) error {
	if o == nil {
		return dma.ErrNoOwner
	}
	e.rec.add("engine enable %s", o.(*fakeStrategy).name)
	e.mu.Lock()
	e.enabled = true
	e.mu.Unlock()
	return nil
}

func (e *fakeEngine) Disable() {
	e.rec.add("engine disable")
	e.mu.Lock()
	e.enabled = false
	e.mu.Unlock()
}

func (e *fakeEngine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

func (e *fakeEngine) SetSamplingRate(rate uint32) {
	e.mu.Lock()
	e.rate = rate
	e.mu.Unlock()
}

func (e *fakeEngine) WaitForBuffer(ctx context.Context) (buffer.Buffer[buffer.ComplexInt8], bool) {
	select {
	case b := <-e.buffers:
		return b, true
	case <-ctx.Done():
		return buffer.Buffer[buffer.ComplexInt8]{}, false
	}
}

func (e *fakeEngine) WaitEnabled(ctx context.Context) error {
	if e.Enabled() {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

var errRejected = errors.New("rejected")

type fakeStrategy struct {
	name string
	dir  dma.Direction
	rec  *recorder
}

func (s *fakeStrategy) Direction() dma.Direction { return s.dir }

func (s *fakeStrategy) Execute(buffer.Buffer[buffer.ComplexInt8]) { s.rec.add("%s execute", s.name) }

func (s *fakeStrategy) UpdateSpectrum() { s.rec.add("%s spectrum", s.name) }

func (s *fakeStrategy) OnMessage(m message.Message) error {
	s.rec.add("%s message %s", s.name, m.ID())
	if _, ok := m.(message.RDSData); ok {
		return errRejected
	}
	return nil
}

func newFakeBaseband(t *testing.T) (*Baseband, *fakeEngine, *recorder, *shared.State) {
	t.Helper()
	rec := &recorder{}
	engine := newFakeEngine(rec)
	state := shared.New(16, 0)
	b := New(engine, nil, state, strategy.Env{}, nil)
	b.SetFactory(func(mode strategy.Mode, _ strategy.Env) strategy.Processor {
		rec.add("factory %d", mode)
		switch mode {
		case strategy.NarrowbandAM:
			return &fakeStrategy{name: "A", dir: dma.Receive, rec: rec}
		case strategy.RDSTransmit:
			return &fakeStrategy{name: "B", dir: dma.Transmit, rec: rec}
		}
		return nil
	})
	return b, engine, rec, state
}

func without(events []string, prefix string) []string {
	return slices.DeleteFunc(slices.Clone(events), func(e string) bool {
		return len(e) >= len(prefix) && e[:len(prefix)] == prefix
	})
}

func TestModeSwitchOrdering(t *testing.T) {
	b, engine, rec, _ := newFakeBaseband(t)

	b.Configure(message.BasebandConfiguration{Mode: uint32(strategy.NarrowbandAM)})
	assert.Equal(t, []string{"engine disable", "factory 1", "engine configure receive", "engine enable A"}, without(rec.take(), "A "))
	assert.True(t, engine.Enabled())

	b.Configure(message.BasebandConfiguration{Mode: uint32(strategy.RDSTransmit)})
	events := rec.take()
	assert.Empty(t, slices.DeleteFunc(slices.Clone(events), func(e string) bool { return e[0] != 'A' }), "old strategy untouched after teardown")
	assert.Equal(t, []string{"engine disable", "factory 15", "engine configure transmit", "engine enable B"}, without(events, "B "))

	engine.buffers <- buffer.New(make([]buffer.ComplexInt8, 8), 0)
	require.True(t, b.Step(context.Background()))
	assert.Equal(t, []string{"B execute"}, rec.take())

	b.Configure(message.BasebandConfiguration{Mode: 99})
	assert.Equal(t, []string{"engine disable", "factory 99"}, without(rec.take(), "B "), "idle never enables")
	assert.False(t, engine.Enabled())
	assert.Equal(t, strategy.Idle, b.Mode())

	engine.buffers <- buffer.New(make([]buffer.ComplexInt8, 8), 0)
	require.True(t, b.Step(context.Background()))
	assert.Empty(t, rec.take(), "nothing runs while idle")
}

func TestSamplingRateOnlyChangeKeepsStrategy(t *testing.T) {
	b, engine, rec, state := newFakeBaseband(t)
	b.Configure(message.BasebandConfiguration{Mode: 1, SamplingRate: 3_072_000})
	rec.take()

	b.Configure(message.BasebandConfiguration{Mode: 1, SamplingRate: 2_000_000})
	assert.Empty(t, rec.take())
	assert.True(t, engine.Enabled())
	assert.Equal(t, uint32(2_000_000), engine.rate)
	assert.Equal(t, uint32(2_000_000), state.Configuration().SamplingRate)

	b.Dispatch(message.SampleRateConfig{SampleRate: 1_000_000})
	assert.Equal(t, uint32(1_000_000), engine.rate)
	assert.Equal(t, uint32(1), state.Configuration().Mode)
	assert.Empty(t, rec.take())
}

func TestDispatchSpectrumSize(t *testing.T) {
	b, _, _, state := newFakeBaseband(t)

	b.Dispatch(message.UpdateSpectrum{Size: 64})
	assert.Equal(t, 64, state.SpectrumSize())
	assert.True(t, state.TakeSpectrumRequest())

	b.Dispatch(message.UpdateSpectrum{Size: 100})
	assert.Equal(t, 64, state.SpectrumSize(), "invalid size ignored")
	assert.True(t, state.TakeSpectrumRequest(), "request still raised")

	b.Dispatch(message.UpdateSpectrum{})
	assert.Equal(t, 64, state.SpectrumSize(), "zero keeps the current size")
}

func TestSampleRateConfigOversamples(t *testing.T) {
	b, engine, rec, state := newFakeBaseband(t)
	b.Configure(message.BasebandConfiguration{Mode: 1, SamplingRate: 3_072_000})
	rec.take()

	b.Dispatch(message.SampleRateConfig{SampleRate: 500_000, OversampleRate: 8})
	assert.Equal(t, uint32(4_000_000), engine.rate)
	assert.Equal(t, uint32(4_000_000), state.Configuration().SamplingRate)
	assert.Equal(t, uint32(8), state.Configuration().DecimationFactor)
	assert.Equal(t, []string{"A message SampleRateConfig"}, rec.take())
}

func TestDispatchRoutesMessages(t *testing.T) {
	b, engine, rec, state := newFakeBaseband(t)
	assert.True(t, b.Dispatch(message.FSKConfigure{}), "ignored while idle")
	assert.Empty(t, rec.take())

	b.Dispatch(message.BasebandConfiguration{Mode: 1})
	rec.take()

	b.Dispatch(message.FSKConfigure{})
	b.Dispatch(message.RDSData{})
	assert.Equal(t, []string{"A message FSKConfigure", "A message RDSData"}, rec.take())

	b.Dispatch(message.UpdateSpectrum{})
	engine.buffers <- buffer.New(make([]buffer.ComplexInt8, 8), 0)
	b.Step(context.Background())
	assert.Equal(t, []string{"A execute", "A spectrum"}, rec.take())

	assert.False(t, b.Dispatch(message.Shutdown{}))
	assert.False(t, engine.Enabled())
	m, ok := state.Application.TryPop()
	require.True(t, ok)
	assert.Equal(t, message.Ack{}, m)
}

func TestRunReturnsAfterShutdown(t *testing.T) {
	b, _, _, state := newFakeBaseband(t)
	require.NoError(t, state.Baseband.Push(message.BasebandConfiguration{Mode: 1}))
	require.NoError(t, state.Baseband.Push(message.Shutdown{}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, b.Run(ctx))
	assert.Equal(t, strategy.Idle, b.Mode())
}

func TestRunStopsOnCancel(t *testing.T) {
	b, _, _, _ := newFakeBaseband(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, b.Run(ctx), context.DeadlineExceeded)
}

func TestFSKPacketThroughExchange(t *testing.T) {
	region, err := dma.NewRegion(8192, 4)
	require.NoError(t, err)
	ex := dma.NewExchange(region, nil)

	var bits []uint8
	for i := 0; i < 32; i++ {
		bits = append(bits, uint8(1-i&1))
	}
	bits = append(bits, sdr.BitsFromUint(0xABCD1234, 32)...)
	bits = append(bits, sdr.BitsFromUint(0xC0FFEE0012345678, 64)...)
	front := sdr.NewMock(sdr.NewFSKSource(3_072_000, 768_000, 20_000, 9600, 100, bits), nil)
	require.NoError(t, front.Init(context.Background(), sdr.Config{}))

	state := shared.New(256, 0)
	b := New(ex, front, state, strategy.Env{}, nil)
	b.Dispatch(message.BasebandConfiguration{Mode: uint32(strategy.FSKReceive), SamplingRate: 3_072_000})
	require.True(t, ex.Enabled())
	b.Dispatch(message.FSKConfigure{SymbolRate: 9600, AccessCode: 0xABCD1234, AccessCodeLength: 32, PacketLength: 64})

	for i := 0; i < 50; i++ {
		require.True(t, front.Step(ex))
		require.True(t, b.Step(context.Background()))
	}

	var packets []decode.Packet
	for {
		m, ok := state.Application.TryPop()
		if !ok {
			break
		}
		if p, ok := m.(message.FSKPacket); ok {
			packets = append(packets, p.Packet)
		}
	}
	require.Len(t, packets, 1)
	assert.Equal(t, []byte{0xC0, 0xFF, 0xEE, 0x00, 0x12, 0x34, 0x56, 0x78}, packets[0].Payload)

	front.Fault(ex)
	assert.False(t, b.Step(context.Background()), "faulted engine delivers nothing")
}
