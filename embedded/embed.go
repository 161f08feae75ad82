package embedded

import (
	_ "embed"
)

//go:embed demo.bin
var demo []byte

// DemoCapture returns a recorded stream of 300 packets: index 0-255 then
// wrapping, channel 1 a full-scale sine, channel 2 a small cosine, channel 3
// a ramp from -1000.
func DemoCapture() []byte {
	return demo
}
