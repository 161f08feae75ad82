package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/bigbag/sensor-stream/internal/assembler"
	"github.com/bigbag/sensor-stream/internal/metrics"
	"github.com/bigbag/sensor-stream/internal/protocol"
	"github.com/bigbag/sensor-stream/internal/transport"
)

// DefaultQueueSize is the number of chunks buffered between the transport and
// the decoder.
const DefaultQueueSize = 64

// Handler receives every decoded sample, in stream order.
type Handler func(rec *protocol.SampleRecord)

// Session connects one transport to its own assembler and decoder.
type Session struct {
	transport     transport.Transport
	assembler     *assembler.Assembler
	handler       Handler
	metrics       *metrics.Metrics
	logger        zerolog.Logger
	queueSize     int
	startCommands []string

	writeMu sync.Mutex
}

type Option func(s *Session)

func WithHandler(h Handler) Option {
	return func(s *Session) {
		s.handler = h
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

func WithQueueSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithStartCommands sets commands sent once, in order, when Run starts.
func WithStartCommands(cmds ...string) Option {
	return func(s *Session) {
		s.startCommands = cmds
	}
}

func New(t transport.Transport, opts ...Option) *Session {
	s := &Session{
		transport: t,
		assembler: assembler.New(),
		handler:   func(*protocol.SampleRecord) {},
		metrics:   metrics.New(),
		logger:    log.Logger,
		queueSize: DefaultQueueSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Metrics returns the session counters.
func (s *Session) Metrics() *metrics.Metrics {
	return s.metrics
}

// Run streams until the transport ends or fails, or ctx is done.
//
// Chunks are copied off the transport's goroutine into a queue with a single
// consumer, so the assembler sees them strictly in delivery order. A
// transport error is returned as is; a finished stream returns nil.
func (s *Session) Run(ctx context.Context) error {
	s.metrics.Start()
	defer s.metrics.Stop()

	// A partial packet from an earlier connection never completes.
	s.assembler.Reset()

	for _, cmd := range s.startCommands {
		if err := s.Send(cmd); err != nil {
			return err
		}
	}

	eg, ctx := errgroup.WithContext(ctx)
	queue := make(chan []byte, s.queueSize)

	eg.Go(func() error {
		defer close(queue)
		return s.transport.Run(ctx, func(chunk []byte) {
			c := make([]byte, len(chunk))
			copy(c, chunk)
			select {
			case queue <- c:
			case <-ctx.Done():
			}
		})
	})

	eg.Go(func() error {
		for chunk := range queue {
			s.process(chunk)
		}
		return nil
	})

	err := eg.Wait()
	if errors.Is(err, context.Canceled) {
		s.logger.Debug().Msg("session stopped")
		return nil
	}
	return err
}

func (s *Session) process(chunk []byte) {
	s.metrics.AddChunk(len(chunk))

	n := 0
	s.assembler.FeedFunc(chunk, func(p protocol.Packet) {
		n++
		rec, err := protocol.Decode(p[:])
		if err != nil {
			s.metrics.AddDecodeError()
			s.logger.Error().Err(err).Msg("failed to decode packet")
			return
		}
		s.handler(rec)
	})
	s.metrics.AddPackets(n)

	s.logger.Trace().
		Int("bytes", len(chunk)).
		Int("packets", n).
		Int("buffered", s.assembler.Buffered()).
		Msg("chunk")
}

// Send encodes text as a command and writes it to the transport. A write
// error is returned as is and not retried.
func (s *Session) Send(text string) error {
	data := protocol.EncodeCommand(text)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.transport.Write(data); err != nil {
		return err
	}
	s.metrics.AddCommand()
	s.logger.Debug().Str("command", text).Msg("command sent")
	return nil
}

// Buffered returns the bytes waiting in the assembler for the next packet.
// Only meaningful once Run has returned.
func (s *Session) Buffered() int {
	return s.assembler.Buffered()
}

// Pending returns a copy of the bytes counted by Buffered.
func (s *Session) Pending() []byte {
	return s.assembler.Pending()
}
