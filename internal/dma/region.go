// Package dma models the circular DMA region written by the front end and the
// exchange that hands completed transfer slices to the processing loop.
package dma

import (
	"errors"
	"fmt"

	"github.com/rjboer/GoBaseband/internal/buffer"
)

// Direction selects which way the engine moves samples.
type Direction int

const (
	Receive Direction = iota
	Transmit
)

func (d Direction) String() string {
	switch d {
	case Receive:
		return "receive"
	case Transmit:
		return "transmit"
	default:
		return "unknown"
	}
}

var (
	// ErrInvalidGeometry indicates a region that cannot be split into transfers.
	ErrInvalidGeometry = errors.New("dma: invalid region geometry")

	// ErrNotConfigured indicates Enable was called before Configure.
	ErrNotConfigured = errors.New("dma: exchange not configured")

	// ErrNoOwner indicates Enable was called without a live owner.
	ErrNoOwner = errors.New("dma: enable requires a live owner")

	// ErrDirectionMismatch indicates the owner wants the other direction than configured.
	ErrDirectionMismatch = errors.New("dma: owner direction differs from configured direction")
)

// MinTransfers is the smallest transfer count that keeps a stable slice two
// positions behind the in-flight one.
const MinTransfers = 4

// Region owns the sample memory shared with the front end.
type Region struct {
	samples      []buffer.ComplexInt8
	transfers    int
	transferSize int
}

// NewRegion allocates total samples split into transfers equal slices.
// transfers must be a power of two of at least MinTransfers.
func NewRegion(total, transfers int) (*Region, error) {
	if transfers < MinTransfers || transfers&(transfers-1) != 0 {
		return nil, fmt.Errorf("%w: transfer count %d must be a power of two >= %d", ErrInvalidGeometry, transfers, MinTransfers)
	}
	if total <= 0 || total%transfers != 0 {
		return nil, fmt.Errorf("%w: %d samples do not split into %d transfers", ErrInvalidGeometry, total, transfers)
	}
	return &Region{
		samples:      make([]buffer.ComplexInt8, total),
		transfers:    transfers,
		transferSize: total / transfers,
	}, nil
}

// Transfers returns the number of transfer slices.
func (r *Region) Transfers() int { return r.transfers }

// TransferSize returns the number of samples in one slice.
func (r *Region) TransferSize() int { return r.transferSize }

// Len returns the total number of samples.
func (r *Region) Len() int { return len(r.samples) }

// Slice returns the samples of transfer i.
func (r *Region) Slice(i int) []buffer.ComplexInt8 {
	i &= r.transfers - 1
	start := i * r.transferSize
	return r.samples[start : start+r.transferSize : start+r.transferSize]
}

// Endpoint is one side of a descriptor: the peripheral FIFO or an offset into the region.
type Endpoint struct {
	Peripheral bool
	Offset     int
}

// Descriptor is one linked-list item of the transfer chain.
type Descriptor struct {
	Index int
	Next  int
	Src   Endpoint
	Dst   Endpoint
	Count int
}

func buildDescriptors(r *Region, direction Direction) []Descriptor {
	lli := make([]Descriptor, r.transfers)
	for i := range lli {
		slice := Endpoint{Offset: i * r.transferSize}
		periph := Endpoint{Peripheral: true}
		d := Descriptor{
			Index: i,
			Next:  (i + 1) & (r.transfers - 1),
			Count: r.transferSize,
		}
		if direction == Transmit {
			d.Src, d.Dst = slice, periph
		} else {
			d.Src, d.Dst = periph, slice
		}
		lli[i] = d
	}
	return lli
}
