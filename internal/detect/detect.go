package detect

import (
	"fmt"
	"io"
	"time"

	"github.com/bigbag/sensor-stream/internal/protocol"
	"github.com/bigbag/sensor-stream/internal/serial"
)

// DefaultWindow is how long a port is given to start streaming.
const DefaultWindow = 500 * time.Millisecond

// Result represents a port that answered the start command with sensor data.
type Result struct {
	Port  string
	Bytes int
}

// Packets returns the number of whole packets seen while probing.
func (r Result) Packets() int {
	return r.Bytes / protocol.PacketSize
}

type opener func(name string, baudRate int) (io.ReadWriteCloser, error)

func openSerial(name string, baudRate int) (io.ReadWriteCloser, error) {
	port, err := serial.Open(name, baudRate)
	if err != nil {
		return nil, err
	}
	return port, nil
}

// DetectDevice returns the first port that streams sensor data.
func DetectDevice(baudRate int) (*Result, error) {
	ports, err := serial.ListPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}
	return detect(ports, openSerial, baudRate, DefaultWindow)
}

// DetectOnPort probes a specific port.
func DetectOnPort(portName string, baudRate int) (*Result, error) {
	return tryPort(portName, openSerial, baudRate, DefaultWindow)
}

// ListDevices probes all ports and returns those that stream sensor data.
func ListDevices(baudRate int) ([]Result, error) {
	ports, err := serial.ListPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}
	return list(ports, openSerial, baudRate, DefaultWindow), nil
}

func detect(ports []string, open opener, baudRate int, window time.Duration) (*Result, error) {
	if len(ports) == 0 {
		return nil, fmt.Errorf("no serial ports found")
	}

	var lastErr error
	for _, name := range ports {
		result, err := tryPort(name, open, baudRate, window)
		if err != nil {
			lastErr = err
			continue
		}
		return result, nil
	}

	return nil, fmt.Errorf("no sensor found (last error: %w)", lastErr)
}

func list(ports []string, open opener, baudRate int, window time.Duration) []Result {
	var results []Result
	for _, name := range ports {
		if result, err := tryPort(name, open, baudRate, window); err == nil {
			results = append(results, *result)
		}
	}
	return results
}

// tryPort sends the start command, counts what arrives within window and
// stops the stream again.
func tryPort(name string, open opener, baudRate int, window time.Duration) (*Result, error) {
	port, err := open(name, baudRate)
	if err != nil {
		return nil, err
	}
	defer port.Close()

	if _, err := port.Write(protocol.EncodeCommand(protocol.CmdStartStream)); err != nil {
		return nil, fmt.Errorf("%s: failed to send start command: %w", name, err)
	}

	n, err := readFor(port, window, 2*protocol.PacketSize)

	port.Write(protocol.EncodeCommand(protocol.CmdStopStream))
	if f, ok := port.(interface{ Flush() error }); ok {
		f.Flush()
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if n < protocol.PacketSize {
		return nil, fmt.Errorf("%s: got %d bytes, want at least %d", name, n, protocol.PacketSize)
	}

	return &Result{Port: name, Bytes: n}, nil
}

// readFor reads until enough bytes arrived or the window elapsed.
func readFor(r io.Reader, window time.Duration, enough int) (int, error) {
	buf := make([]byte, protocol.DefaultReadSize)
	deadline := time.Now().Add(window)

	total := 0
	for total < enough && time.Now().Before(deadline) {
		n, err := r.Read(buf)
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, err
		}
		if n == 0 {
			time.Sleep(10 * time.Millisecond)
		}
	}
	return total, nil
}
