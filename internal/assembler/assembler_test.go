package assembler

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/bigbag/sensor-stream/internal/protocol"
)

// stream returns n bytes where byte i is i%251, so any shift is visible.
func stream(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func concat(packets []protocol.Packet) []byte {
	var out []byte
	for _, p := range packets {
		out = append(out, p[:]...)
	}
	return out
}

func feedChunks(a *Assembler, data []byte, sizes func() int) []protocol.Packet {
	var packets []protocol.Packet
	for len(data) > 0 {
		n := sizes()
		if n > len(data) {
			n = len(data)
		}
		packets = append(packets, a.Feed(data[:n])...)
		data = data[n:]
	}
	return packets
}

func TestFeed_ExactPacket(t *testing.T) {
	a := New()
	data := stream(protocol.PacketSize)

	packets := a.Feed(data)
	if len(packets) != 1 {
		t.Fatalf("Feed() returned %d packets, want 1", len(packets))
	}
	if !bytes.Equal(packets[0][:], data) {
		t.Errorf("Feed() packet = %v, want %v", packets[0], data)
	}
	if a.Buffered() != 0 {
		t.Errorf("Buffered() = %d, want 0", a.Buffered())
	}
}

func TestFeed_EmptyChunk(t *testing.T) {
	a := New()
	a.Feed([]byte{1, 2, 3})

	if packets := a.Feed(nil); len(packets) != 0 {
		t.Errorf("Feed(nil) returned %d packets, want 0", len(packets))
	}
	if packets := a.Feed([]byte{}); len(packets) != 0 {
		t.Errorf("Feed([]) returned %d packets, want 0", len(packets))
	}
	if a.Buffered() != 3 {
		t.Errorf("Buffered() = %d, want 3", a.Buffered())
	}
	if !bytes.Equal(a.Pending(), []byte{1, 2, 3}) {
		t.Errorf("Pending() = %v, want [1 2 3]", a.Pending())
	}
}

func TestFeed_PartialThenComplete(t *testing.T) {
	a := New()
	data := stream(protocol.PacketSize)

	if packets := a.Feed(data[:10]); len(packets) != 0 {
		t.Fatalf("Feed(10 bytes) returned %d packets, want 0", len(packets))
	}
	if a.Buffered() != 10 {
		t.Errorf("Buffered() = %d, want 10", a.Buffered())
	}

	packets := a.Feed(data[10:])
	if len(packets) != 1 {
		t.Fatalf("Feed(rest) returned %d packets, want 1", len(packets))
	}
	if !bytes.Equal(packets[0][:], data) {
		t.Errorf("Feed() packet = %v, want %v", packets[0], data)
	}
}

func TestFeed_ChunkSpansPackets(t *testing.T) {
	a := New()
	data := stream(3*protocol.PacketSize + 5)

	first := a.Feed(data[:15])
	second := a.Feed(data[15:])

	if len(first) != 0 {
		t.Errorf("first Feed() returned %d packets, want 0", len(first))
	}
	if len(second) != 3 {
		t.Fatalf("second Feed() returned %d packets, want 3", len(second))
	}
	if !bytes.Equal(concat(second), data[:3*protocol.PacketSize]) {
		t.Error("packets do not match input bytes")
	}
	if a.Buffered() != 5 {
		t.Errorf("Buffered() = %d, want 5", a.Buffered())
	}
	if !bytes.Equal(a.Pending(), data[3*protocol.PacketSize:]) {
		t.Errorf("Pending() = %v, want %v", a.Pending(), data[3*protocol.PacketSize:])
	}
}

func TestFeed_Completeness(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for _, length := range []int{0, 1, 20, 21, 22, 41, 42, 43, 1000, 4096} {
		data := stream(length)
		a := New()
		packets := feedChunks(a, data, func() int { return 1 + rng.Intn(64) })

		full := length / protocol.PacketSize
		if len(packets) != full {
			t.Errorf("length %d: got %d packets, want %d", length, len(packets), full)
		}
		if !bytes.Equal(concat(packets), data[:full*protocol.PacketSize]) {
			t.Errorf("length %d: packet bytes differ from input prefix", length)
		}
		if a.Buffered() != length%protocol.PacketSize {
			t.Errorf("length %d: Buffered() = %d, want %d", length, a.Buffered(), length%protocol.PacketSize)
		}

		// The remainder completes a packet once the missing bytes arrive.
		if rem := a.Buffered(); rem > 0 {
			tail := a.Feed(make([]byte, protocol.PacketSize-rem))
			if len(tail) != 1 {
				t.Errorf("length %d: completing remainder gave %d packets, want 1", length, len(tail))
			} else if !bytes.Equal(tail[0][:rem], data[full*protocol.PacketSize:]) {
				t.Errorf("length %d: completed packet lost buffered bytes", length)
			}
		}
	}
}

func TestFeed_ChunkSplitInvariance(t *testing.T) {
	data := stream(50*protocol.PacketSize + 7)

	whole := New().Feed(data)

	partitions := map[string]func() func() int{
		"single bytes": func() func() int { return func() int { return 1 } },
		"packet sized": func() func() int { return func() int { return protocol.PacketSize } },
		"off by one":   func() func() int { return func() int { return protocol.PacketSize - 1 } },
		"ble mtu":      func() func() int { return func() int { return 20 } },
		"random": func() func() int {
			rng := rand.New(rand.NewSource(42))
			return func() int { return rng.Intn(100) }
		},
	}

	for name, sizes := range partitions {
		got := feedChunks(New(), data, sizes())
		if len(got) != len(whole) {
			t.Errorf("%s: got %d packets, want %d", name, len(got), len(whole))
			continue
		}
		for i := range got {
			if got[i] != whole[i] {
				t.Errorf("%s: packet %d = %v, want %v", name, i, got[i], whole[i])
				break
			}
		}
	}
}

func TestFeed_SingleBytesDecodeIdentically(t *testing.T) {
	data := stream(1000)

	var bulk []*protocol.SampleRecord
	for _, p := range New().Feed(data) {
		bulk = append(bulk, p.Decode())
	}

	a := New()
	var single []*protocol.SampleRecord
	for i := range data {
		for _, p := range a.Feed(data[i : i+1]) {
			single = append(single, p.Decode())
		}
	}

	if len(bulk) != 1000/protocol.PacketSize {
		t.Fatalf("bulk decode produced %d records, want %d", len(bulk), 1000/protocol.PacketSize)
	}
	if len(single) != len(bulk) {
		t.Fatalf("single-byte decode produced %d records, want %d", len(single), len(bulk))
	}
	for i := range bulk {
		if *single[i] != *bulk[i] {
			t.Errorf("record %d = %v, want %v", i, single[i], bulk[i])
		}
	}
}

func TestFeed_PacketsDoNotAliasInput(t *testing.T) {
	a := New()
	data := stream(2 * protocol.PacketSize)
	packets := a.Feed(data)

	for i := range data {
		data[i] = 0xEE
	}
	if packets[0][0] == 0xEE || packets[1][0] == 0xEE {
		t.Error("Feed() packets share memory with the input chunk")
	}
}

func TestFeedFunc_Order(t *testing.T) {
	a := New()
	data := stream(5 * protocol.PacketSize)

	var indexes []byte
	a.FeedFunc(data[:30], func(p protocol.Packet) { indexes = append(indexes, p[0]) })
	a.FeedFunc(data[30:], func(p protocol.Packet) { indexes = append(indexes, p[0]) })

	for i, b := range indexes {
		if b != data[i*protocol.PacketSize] {
			t.Errorf("packet %d starts with %d, want %d", i, b, data[i*protocol.PacketSize])
		}
	}
	if len(indexes) != 5 {
		t.Errorf("FeedFunc emitted %d packets, want 5", len(indexes))
	}
}

func TestBuffered_AlwaysBelowPacketSize(t *testing.T) {
	a := New()
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		a.Feed(make([]byte, rng.Intn(3*protocol.PacketSize)))
		if a.Buffered() >= protocol.PacketSize {
			t.Fatalf("Buffered() = %d after Feed, want < %d", a.Buffered(), protocol.PacketSize)
		}
	}
}

func TestReset(t *testing.T) {
	a := New()
	a.Feed(stream(30))
	a.Reset()

	if a.Buffered() != 0 {
		t.Errorf("Buffered() after Reset = %d, want 0", a.Buffered())
	}

	data := stream(protocol.PacketSize)
	packets := a.Feed(data)
	if len(packets) != 1 || !bytes.Equal(packets[0][:], data) {
		t.Errorf("Feed() after Reset = %v, want one packet %v", packets, data)
	}
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.Feed([]byte{1, 2, 3})
	b.Feed([]byte{9})

	if a.Buffered() != 3 || b.Buffered() != 1 {
		t.Errorf("Buffered() = %d, %d, want 3, 1", a.Buffered(), b.Buffered())
	}
}
