package decode

import "fmt"

// Packet is a completed payload, packed most significant bit first.
type Packet struct {
	Payload      []byte
	BitsReceived int
}

// Bit returns payload bit i.
func (p Packet) Bit(i int) uint8 {
	return p.Payload[i/8] >> (7 - uint(i%8)) & 1
}

// PacketBuilder collects a fixed number of bits following each access code match.
type PacketBuilder struct {
	length    int
	receiving bool
	count     int
	payload   [MaxPacketLength / 8]byte
}

func (b *PacketBuilder) Configure(length int) error {
	if length < 1 || length > MaxPacketLength {
		return fmt.Errorf("%w: packet length %d not in 1..%d", ErrInvalidConfig, length, MaxPacketLength)
	}
	b.length = length
	b.reset()
	return nil
}

func (b *PacketBuilder) reset() {
	b.receiving = false
	b.count = 0
	b.payload = [MaxPacketLength / 8]byte{}
}

// Execute consumes one symbol decision. A match (re)starts accumulation with
// the following bit; a full payload is passed to emit.
func (b *PacketBuilder) Execute(bit uint8, match bool, emit func(Packet)) {
	if match {
		b.reset()
		b.receiving = b.length > 0
		return
	}
	if !b.receiving {
		return
	}
	if bit&1 == 1 {
		b.payload[b.count/8] |= 0x80 >> uint(b.count%8)
	}
	b.count++
	if b.count < b.length {
		return
	}
	out := make([]byte, (b.count+7)/8)
	copy(out, b.payload[:])
	emit(Packet{Payload: out, BitsReceived: b.count})
	b.reset()
}
