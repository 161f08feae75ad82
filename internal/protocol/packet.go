package protocol

import (
	"fmt"
	"strings"
)

// Packet is one complete telemetry frame as received from the device.
//
// Layout:
// 0: unused
// 1: sample index
// 2-13: channel fields, ChannelFieldSize bytes each
// 14-20: not decoded, only rendered in Hex
type Packet [PacketSize]byte

// SampleRecord is a decoded packet.
type SampleRecord struct {
	Index    uint8
	Channels [NumChannels]int32
	// Status holds the first byte of each channel field. The decoder does
	// not interpret it.
	Status [NumChannels]byte
	Hex    string
}

// FramingError is returned when a packet is not exactly PacketSize bytes.
type FramingError struct {
	Size int
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("invalid packet size: %d bytes, want %d", e.Size, PacketSize)
}

// Decode parses a single packet. It fails only if len(pkt) != PacketSize.
func Decode(pkt []byte) (*SampleRecord, error) {
	if len(pkt) != PacketSize {
		return nil, &FramingError{Size: len(pkt)}
	}

	rec := &SampleRecord{
		Index: pkt[IndexOffset],
		Hex:   HexString(pkt),
	}

	for i := 0; i < NumChannels; i++ {
		field := pkt[ChannelsOffset+i*ChannelFieldSize : ChannelsOffset+(i+1)*ChannelFieldSize]
		value := field[ChannelValueOffset : ChannelValueOffset+ChannelValueSize]

		raw := uint32(value[0])<<16 | uint32(value[1])<<8 | uint32(value[2])
		rec.Status[i] = field[ChannelStatusOffset]
		rec.Channels[i] = SignExtend24(raw)
	}

	return rec, nil
}

// Decode parses p. A Packet always has the right size, so it cannot fail.
func (p Packet) Decode() *SampleRecord {
	rec, _ := Decode(p[:])
	return rec
}

// Hex returns the diagnostic rendering of the packet bytes.
func (p Packet) Hex() string {
	return HexString(p[:])
}

// SignExtend24 converts the low 24 bits of raw to a signed value.
func SignExtend24(raw uint32) int32 {
	raw &= SignRange - 1
	if raw&SignBit != 0 {
		return int32(raw) - SignRange
	}
	return int32(raw)
}

// HexString renders b as lowercase two-digit hex bytes separated by spaces.
func HexString(b []byte) string {
	return fmt.Sprintf("% x", b)
}

// String returns a one-line summary of the record.
func (r *SampleRecord) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "#%03d", r.Index)
	for i, v := range r.Channels {
		fmt.Fprintf(&sb, " ch%d=%d", i+1, v)
	}
	fmt.Fprintf(&sb, " [%s]", r.Hex)
	return sb.String()
}
