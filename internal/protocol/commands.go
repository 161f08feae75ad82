package protocol

// CommandTerminator ends every outbound text command.
const CommandTerminator = 0x0D

// Commands understood by the sensor firmware.
const (
	CmdStartStream = "b"
	CmdStopStream  = "s"
)

// EncodeCommand returns the bytes of text followed by CommandTerminator.
// No other transformation is applied.
func EncodeCommand(text string) []byte {
	out := make([]byte, 0, len(text)+1)
	out = append(out, text...)
	return append(out, CommandTerminator)
}
