package transport

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"
)

// ReplayOptions controls how a capture is cut into chunks.
type ReplayOptions struct {
	// ChunkSize is the size of every delivery. With RandomChunks it is the
	// upper bound. Defaults to 20, the usual notification payload size.
	ChunkSize    int
	RandomChunks bool
	Seed         int64
	// Delay between deliveries. Zero replays as fast as possible.
	Delay    time.Duration
	Progress ProgressCallback
}

// DefaultReplayChunkSize matches the default BLE notification payload.
const DefaultReplayChunkSize = 20

// Replay plays back a captured byte stream.
type Replay struct {
	data []byte
	opts ReplayOptions

	mu      sync.Mutex
	written bytes.Buffer
	closed  bool
}

// NewReplay creates a Replay over data.
func NewReplay(data []byte, opts ReplayOptions) *Replay {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultReplayChunkSize
	}
	return &Replay{data: data, opts: opts}
}

// OpenReplay reads a capture file.
func OpenReplay(path string, opts ReplayOptions) (*Replay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture: %w", err)
	}
	return NewReplay(data, opts), nil
}

// Size returns the capture length in bytes.
func (r *Replay) Size() int64 {
	return int64(len(r.data))
}

// Run delivers the whole capture and returns nil, or ctx.Err() if cancelled.
func (r *Replay) Run(ctx context.Context, deliver func(chunk []byte)) error {
	var rng *rand.Rand
	if r.opts.RandomChunks {
		rng = rand.New(rand.NewSource(r.opts.Seed))
	}

	var tick <-chan time.Time
	if r.opts.Delay > 0 {
		ticker := time.NewTicker(r.opts.Delay)
		defer ticker.Stop()
		tick = ticker.C
	}

	total := int64(len(r.data))
	var sent int64
	for sent < total {
		if err := ctx.Err(); err != nil {
			return err
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}

		n := r.opts.ChunkSize
		if rng != nil {
			n = 1 + rng.Intn(r.opts.ChunkSize)
		}
		if rest := total - sent; int64(n) > rest {
			n = int(rest)
		}

		deliver(r.data[sent : sent+int64(n)])
		sent += int64(n)

		if r.opts.Progress != nil {
			r.opts.Progress(sent, total)
		}
	}

	return nil
}

// Write records p. Recorded bytes are available from Written.
func (r *Replay) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, ErrClosed
	}
	return r.written.Write(p)
}

// Written returns a copy of everything written so far.
func (r *Replay) Written() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.written.Bytes()...)
}

// Close marks the replay closed.
func (r *Replay) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}
