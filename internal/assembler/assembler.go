// Package assembler turns an arbitrarily chunked byte stream into fixed-size
// packets.
//
// The wire format carries no sync byte or checksum, so packet boundaries are
// purely positional: a byte lost in transit shifts every following packet and
// is not detected here.
package assembler

import "github.com/bigbag/sensor-stream/internal/protocol"

// Assembler buffers at most one partial packet between calls.
// It is not safe for concurrent use.
type Assembler struct {
	pending [protocol.PacketSize]byte
	n       int
}

// New creates an Assembler with an empty buffer.
func New() *Assembler {
	return &Assembler{}
}

// Feed consumes chunk and returns every packet it completes, in arrival order.
func (a *Assembler) Feed(chunk []byte) []protocol.Packet {
	if len(chunk) == 0 {
		return nil
	}

	packets := make([]protocol.Packet, 0, (a.n+len(chunk))/protocol.PacketSize)
	a.FeedFunc(chunk, func(p protocol.Packet) {
		packets = append(packets, p)
	})
	return packets
}

// FeedFunc is like Feed but hands each completed packet to fn as soon as it
// is available.
func (a *Assembler) FeedFunc(chunk []byte, fn func(protocol.Packet)) {
	// Complete the pending packet first.
	if a.n > 0 {
		k := copy(a.pending[a.n:], chunk)
		a.n += k
		chunk = chunk[k:]
		if a.n < protocol.PacketSize {
			return
		}
		fn(a.pending)
		a.n = 0
	}

	// Whole packets straight from the chunk.
	for len(chunk) >= protocol.PacketSize {
		var p protocol.Packet
		copy(p[:], chunk[:protocol.PacketSize])
		fn(p)
		chunk = chunk[protocol.PacketSize:]
	}

	a.n = copy(a.pending[:], chunk)
}

// Buffered returns the number of bytes waiting for the rest of their packet.
func (a *Assembler) Buffered() int {
	return a.n
}

// Pending returns a copy of the buffered partial packet.
func (a *Assembler) Pending() []byte {
	out := make([]byte, a.n)
	copy(out, a.pending[:a.n])
	return out
}

// Reset drops any buffered bytes.
func (a *Assembler) Reset() {
	a.n = 0
}
