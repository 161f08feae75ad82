package protocol

// Packet layout
const (
	PacketSize       = 21
	NumChannels      = 3
	ChannelFieldSize = 4

	IndexOffset    = 1
	ChannelsOffset = 2
)

// Channel field layout. The first byte of every field is not part of the
// reading; it is kept on the record as Status.
const (
	ChannelStatusOffset = 0
	ChannelValueOffset  = 1
	ChannelValueSize    = 3
)

// 24-bit two's complement
const (
	SignBit   = 0x800000
	SignRange = 1 << 24

	MinReading = -SignBit
	MaxReading = SignBit - 1
)

// Default serial parameters
const (
	DefaultBaudRate = 115200
	DefaultReadSize = 256
)
