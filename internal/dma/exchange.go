package dma

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rjboer/GoBaseband/internal/buffer"
	"github.com/rjboer/GoBaseband/internal/logging"
)

// Owner is the live consumer the engine runs for. Strategies implement it.
type Owner interface {
	Direction() Direction
}

// errorMarker is posted on the notification slot when the engine faults.
const errorMarker = -1

// Exchange hands completed transfer slices from the front end to the
// processing loop. The front end calls TransferComplete and TransferError;
// exactly one goroutine calls WaitForBuffer.
type Exchange struct {
	region *Region
	logger logging.Logger

	mu          sync.Mutex
	descriptors []Descriptor
	direction   Direction
	configured  bool
	enabledCh   chan struct{}

	enabled      atomic.Bool
	generation   atomic.Uint64
	next         atomic.Int32
	samplingRate atomic.Uint32

	notify chan int
}

// NewExchange builds an exchange over region.
func NewExchange(region *Region, logger logging.Logger) *Exchange {
	if logger == nil {
		logger = logging.Default()
	}
	return &Exchange{
		region:    region,
		logger:    logger.With(logging.Field{Key: "subsystem", Value: "dma"}),
		enabledCh: make(chan struct{}),
		notify:    make(chan int, 1),
	}
}

// Region returns the underlying sample region.
func (e *Exchange) Region() *Region { return e.region }

// Configure lays out the descriptor chain for direction. The engine must be
// disabled; a running engine is stopped first.
func (e *Exchange) Configure(direction Direction) {
	e.Disable()
	e.mu.Lock()
	e.descriptors = buildDescriptors(e.region, direction)
	e.direction = direction
	e.configured = true
	e.mu.Unlock()
	e.logger.Debug("configured", logging.Field{Key: "direction", Value: direction}, logging.Field{Key: "transfers", Value: e.region.Transfers()})
}

// Enable starts the engine on behalf of owner.
func (e *Exchange) Enable(owner Owner) error {
	if owner == nil {
		return ErrNoOwner
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.configured {
		return ErrNotConfigured
	}
	if owner.Direction() != e.direction {
		return ErrDirectionMismatch
	}
	if e.enabled.Load() {
		return nil
	}
	e.drain()
	e.next.Store(0)
	e.generation.Add(1)
	e.enabled.Store(true)
	close(e.enabledCh)
	e.logger.Debug("enabled", logging.Field{Key: "direction", Value: e.direction})
	return nil
}

// Disable stops the engine. Safe to call when already disabled.
func (e *Exchange) Disable() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.enabled.Load() {
		return
	}
	e.enabled.Store(false)
	e.enabledCh = make(chan struct{})
	e.post(errorMarker)
	e.logger.Debug("disabled")
}

// Enabled reports whether the engine is running.
func (e *Exchange) Enabled() bool { return e.enabled.Load() }

// Generation increments on every enable so the front end can restart its chain.
func (e *Exchange) Generation() uint64 { return e.generation.Load() }

// Direction returns the configured direction.
func (e *Exchange) Direction() Direction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.direction
}

// Descriptors returns a copy of the descriptor chain.
func (e *Exchange) Descriptors() []Descriptor {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Descriptor, len(e.descriptors))
	copy(out, e.descriptors)
	return out
}

// SetSamplingRate records the advisory rate stamped on returned buffers.
func (e *Exchange) SetSamplingRate(rate uint32) { e.samplingRate.Store(rate) }

// SamplingRate returns the advisory sampling rate.
func (e *Exchange) SamplingRate() uint32 { return e.samplingRate.Load() }

// TransferComplete is the completion interrupt: it records the descriptor the
// hardware moved on to and wakes the waiting reader.
func (e *Exchange) TransferComplete(next int) {
	if !e.enabled.Load() {
		return
	}
	e.next.Store(int32(next & (e.region.Transfers() - 1)))
	e.post(next)
}

// TransferError is the error interrupt: the engine is disabled and the reader
// is woken with no buffer.
func (e *Exchange) TransferError() {
	e.logger.Warn("transfer error, disabling engine")
	e.Disable()
}

// WaitForBuffer blocks until a transfer completes and returns the stable
// slice two positions behind the in-flight one. It returns false when the
// engine is disabled, faulted, or ctx ends.
func (e *Exchange) WaitForBuffer(ctx context.Context) (buffer.Buffer[buffer.ComplexInt8], bool) {
	if !e.enabled.Load() {
		return buffer.Buffer[buffer.ComplexInt8]{}, false
	}
	select {
	case <-ctx.Done():
		return buffer.Buffer[buffer.ComplexInt8]{}, false
	case v := <-e.notify:
		if v == errorMarker || !e.enabled.Load() {
			return buffer.Buffer[buffer.ComplexInt8]{}, false
		}
	}
	k := e.region.Transfers()
	stable := (int(e.next.Load()) + k - 2) & (k - 1)
	return buffer.New(e.region.Slice(stable), e.samplingRate.Load()), true
}

// WaitEnabled blocks until the engine is enabled or ctx ends.
func (e *Exchange) WaitEnabled(ctx context.Context) error {
	e.mu.Lock()
	ch := e.enabledCh
	e.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post stores v in the single notification slot, replacing an unread value.
func (e *Exchange) post(v int) {
	for {
		select {
		case e.notify <- v:
			return
		default:
		}
		select {
		case <-e.notify:
		default:
		}
	}
}

func (e *Exchange) drain() {
	select {
	case <-e.notify:
	default:
	}
}
