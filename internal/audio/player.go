package audio

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/rjboer/GoBaseband/internal/buffer"
)

// pcmRing is the byte stream the oto player pulls from. Reads never block:
// an empty ring plays silence so the device callback keeps its cadence.
type pcmRing struct {
	mu   sync.Mutex
	data []byte
	r, n int
}

func newPCMRing(size int) *pcmRing { return &pcmRing{data: make([]byte, size)} }

// write appends p, dropping the oldest bytes on overflow.
func (r *pcmRing) write(p []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range p {
		if r.n == len(r.data) {
			r.r = (r.r + 1) % len(r.data)
			r.n--
		}
		r.data[(r.r+r.n)%len(r.data)] = b
		r.n++
	}
}

func (r *pcmRing) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := 0
	for ; i < len(p) && r.n > 0; i++ {
		p[i] = r.data[r.r]
		r.r = (r.r + 1) % len(r.data)
		r.n--
	}
	clear(p[i:])
	return len(p), nil
}

// Player plays mono audio on the default output device.
type Player struct {
	ctx    *oto.Context
	player *oto.Player
	ring   *pcmRing
	pcm    []byte
}

// NewPlayer opens the output device at sampleRate. About half a second of
// audio is buffered.
func NewPlayer(sampleRate int) (*Player, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}
	<-ready
	ring := newPCMRing(sampleRate)
	p := &Player{ctx: ctx, ring: ring, player: ctx.NewPlayer(ring)}
	p.player.Play()
	return p, nil
}

func (p *Player) Write(buf buffer.Buffer[float32]) error {
	p.pcm = p.pcm[:0]
	for _, s := range buf.Samples {
		p.pcm = binary.LittleEndian.AppendUint16(p.pcm, uint16(toPCM16(s)))
	}
	p.ring.write(p.pcm)
	return nil
}

func (p *Player) Close() error {
	return p.player.Close()
}
