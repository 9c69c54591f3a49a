package sdr

import (
	"context"

	"github.com/rjboer/GoBaseband/internal/buffer"
	"github.com/rjboer/GoBaseband/internal/dma"
)

// Config carries parameters required to initialize a front end.
type Config struct {
	SampleRate float64
	// TransferPacing scales the real-time pacing of transfers; 0 runs unpaced.
	TransferPacing float64
	// RSSIDecimation is the number of IQ samples folded into one RSSI sample.
	RSSIDecimation int
}

// FrontEnd is the hardware side of the DMA exchange: it moves samples between
// the peripheral and the region and raises completion interrupts.
type FrontEnd interface {
	Init(ctx context.Context, cfg Config) error
	Run(ctx context.Context, ex *dma.Exchange) error
	Close() error
}

// RSSISource yields RSSI sample blocks captured alongside the receive stream.
type RSSISource interface {
	ReadRSSI() (buffer.Buffer[uint8], bool)
}

// Source fills dst with receive samples starting at absolute sample index n.
type Source interface {
	Fill(dst []buffer.ComplexInt8, n int64)
}

// Sink receives transmitted samples.
type Sink interface {
	Consume(src []buffer.ComplexInt8)
}
