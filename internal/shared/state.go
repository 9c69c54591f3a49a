// Package shared holds the state both sides of the core boundary touch: the
// two message queues, the statistics slots and the spectrum request.
package shared

import (
	"sync"
	"sync/atomic"

	"github.com/rjboer/GoBaseband/internal/encode"
	"github.com/rjboer/GoBaseband/internal/message"
)

// Default sizes.
const (
	DefaultQueueCapacity = 64
	DefaultFIFOCapacity  = 4096
)

// State is built once before any goroutine starts and passed to the loop,
// the dispatcher and the application side.
type State struct {
	// Baseband carries application commands into the core.
	Baseband *message.Queue
	// Application carries core output to the application side.
	Application *message.Queue
	// FIFO holds audio for the PlayAudio strategy.
	FIFO *encode.FIFO

	slots    [message.IDMax]atomic.Bool
	spectrum atomic.Bool
	fftSize  atomic.Int32

	mu     sync.Mutex
	config message.BasebandConfiguration
}

func New(queueCapacity, fifoCapacity int) *State {
	if queueCapacity <= 0 {
		queueCapacity = DefaultQueueCapacity
	}
	if fifoCapacity <= 0 {
		fifoCapacity = DefaultFIFOCapacity
	}
	return &State{
		Baseband:    message.NewQueue(queueCapacity),
		Application: message.NewQueue(queueCapacity),
		FIFO:        encode.NewFIFO(fifoCapacity),
	}
}

// PostStatistics posts m only when the previous message of its kind was
// consumed. It reports whether m was posted.
func (s *State) PostStatistics(m message.Message) bool {
	slot := &s.slots[m.ID()]
	if !slot.CompareAndSwap(false, true) {
		return false
	}
	if err := s.Application.Push(m); err != nil {
		slot.Store(false)
		return false
	}
	return true
}

// Release marks the slot for id free. The application side calls it after
// consuming a statistics message.
func (s *State) Release(id message.ID) {
	if id < message.IDMax {
		s.slots[id].Store(false)
	}
}

// SlotBusy reports whether a message of kind id is waiting to be consumed.
func (s *State) SlotBusy(id message.ID) bool {
	return id < message.IDMax && s.slots[id].Load()
}

// RequestSpectrum raises the spectrum update flag.
func (s *State) RequestSpectrum() { s.spectrum.Store(true) }

// TakeSpectrumRequest clears the flag and reports whether it was raised.
func (s *State) TakeSpectrumRequest() bool { return s.spectrum.Swap(false) }

// SetSpectrumSize records the FFT size receive strategies should use. Zero
// keeps each strategy's own default.
func (s *State) SetSpectrumSize(n int) { s.fftSize.Store(int32(n)) }

// SpectrumSize returns the requested FFT size, zero when none was set.
func (s *State) SpectrumSize() int { return int(s.fftSize.Load()) }

// Configuration returns the last applied baseband configuration.
func (s *State) Configuration() message.BasebandConfiguration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// SetConfiguration records the applied configuration.
func (s *State) SetConfiguration(cfg message.BasebandConfiguration) {
	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()
}
