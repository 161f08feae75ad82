package transport

import (
	"context"
	"io"
	"sync"

	"github.com/bigbag/sensor-stream/internal/protocol"
)

// Serial reads chunks from a port whose Read returns (0, nil) on timeout,
// as internal/serial.Port does.
type Serial struct {
	port     io.ReadWriteCloser
	readSize int

	mu sync.Mutex
}

// NewSerial wraps port. readSize <= 0 uses protocol.DefaultReadSize.
func NewSerial(port io.ReadWriteCloser, readSize int) *Serial {
	if readSize <= 0 {
		readSize = protocol.DefaultReadSize
	}
	return &Serial{port: port, readSize: readSize}
}

// Run reads until ctx is done or the port fails.
func (s *Serial) Run(ctx context.Context, deliver func(chunk []byte)) error {
	buf := make([]byte, s.readSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := s.port.Read(buf)
		if n > 0 {
			deliver(buf[:n])
		}
		if err != nil {
			return err
		}
	}
}

// Write sends p to the port. Concurrent writes are serialized.
func (s *Serial) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port.Write(p)
}

// Close closes the port.
func (s *Serial) Close() error {
	return s.port.Close()
}
