// Package transport defines the byte channel between the sensor and the
// decoder, along with the implementations the tool ships with.
package transport

import (
	"context"
	"errors"
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("transport closed")

// Transport delivers inbound byte chunks and accepts outbound writes.
//
// Run calls deliver for every chunk in arrival order, exactly once each, and
// returns when the stream ends (nil), ctx is done (ctx.Err()) or the
// underlying channel fails. deliver must not retain the chunk after it
// returns.
//
// Errors from Run and Write come from the underlying channel and are not
// retried.
type Transport interface {
	Run(ctx context.Context, deliver func(chunk []byte)) error
	Write(p []byte) (int, error)
	Close() error
}

// ProgressCallback is called to report how many bytes have been delivered.
type ProgressCallback func(current, total int64)

// Compile-time assertions.
var (
	_ Transport = (*Serial)(nil)
	_ Transport = (*Replay)(nil)
	_ Transport = (*Pipe)(nil)
)
