// Package decode holds the receive-side bit chain: slicing, symbol timing,
// access code search and packet assembly.
package decode

import (
	"errors"
	"fmt"
	"math/bits"
)

// ErrInvalidConfig indicates a correlator or packet setting out of range.
var ErrInvalidConfig = errors.New("decode: invalid configuration")

const (
	MaxAccessCodeLength = 32
	MaxPacketLength     = 256
)

// AccessCodeCorrelator searches the bit stream for an access code, tolerating
// up to a configured number of differing bits.
type AccessCodeCorrelator struct {
	code        uint32
	mask        uint32
	maxDistance int
	history     uint32
	configured  bool
}

// Configure sets the code to search for. An out-of-range length leaves the
// previous configuration in place.
func (c *AccessCodeCorrelator) Configure(code uint32, length, maxDistance int) error {
	if length < 1 || length > MaxAccessCodeLength {
		return fmt.Errorf("%w: access code length %d not in 1..%d", ErrInvalidConfig, length, MaxAccessCodeLength)
	}
	if maxDistance < 0 {
		return fmt.Errorf("%w: negative tolerance %d", ErrInvalidConfig, maxDistance)
	}
	c.mask = uint32(uint64(1)<<length - 1)
	c.code = code & c.mask
	c.maxDistance = maxDistance
	c.configured = true
	return nil
}

// Execute shifts bit into the history and reports whether the last length
// bits are within tolerance of the code.
func (c *AccessCodeCorrelator) Execute(bit uint8) bool {
	c.history = c.history<<1 | uint32(bit&1)
	if !c.configured {
		return false
	}
	return bits.OnesCount32((c.history^c.code)&c.mask) <= c.maxDistance
}

// Reset clears the bit history.
func (c *AccessCodeCorrelator) Reset() { c.history = 0 }
