package transport

import (
	"bytes"
	"context"
	"sync"
)

// Pipe is an in-memory Transport. Inbound chunks are queued with Push.
type Pipe struct {
	in        chan []byte
	closeOnce sync.Once

	mu       sync.Mutex
	written  bytes.Buffer
	writes   int
	writeErr error
	closed   bool
}

// NewPipe creates a Pipe that can queue up to size chunks before Push blocks.
func NewPipe(size int) *Pipe {
	return &Pipe{in: make(chan []byte, size)}
}

// Push queues a copy of chunk for delivery.
func (p *Pipe) Push(chunk []byte) {
	p.in <- append([]byte(nil), chunk...)
}

// CloseInbound ends the inbound stream; Run returns nil once drained.
func (p *Pipe) CloseInbound() {
	p.closeOnce.Do(func() { close(p.in) })
}

// Run delivers queued chunks until CloseInbound or ctx is done.
func (p *Pipe) Run(ctx context.Context, deliver func(chunk []byte)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-p.in:
			if !ok {
				return nil
			}
			deliver(chunk)
		}
	}
}

// FailWrites makes every following Write return err. nil clears it.
func (p *Pipe) FailWrites(err error) {
	p.mu.Lock()
	p.writeErr = err
	p.mu.Unlock()
}

// Write records p.
func (p *Pipe) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrClosed
	}
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.writes++
	return p.written.Write(b)
}

// Written returns a copy of everything written so far.
func (p *Pipe) Written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.written.Bytes()...)
}

// Writes returns the number of successful Write calls.
func (p *Pipe) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

// Close rejects further writes and ends the inbound stream.
func (p *Pipe) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.CloseInbound()
	return nil
}
