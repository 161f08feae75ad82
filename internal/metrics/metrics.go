package metrics

import (
	"fmt"
	"sync"
	"time"
)

// Metrics counts stream activity for one session.
type Metrics struct {
	mu           sync.Mutex
	start        time.Time
	end          time.Time
	chunks       int64
	bytes        int64
	packets      int64
	decodeErrors int64
	commands     int64
}

// Snapshot is a point-in-time copy of Metrics.
type Snapshot struct {
	Chunks       int64
	Bytes        int64
	Packets      int64
	DecodeErrors int64
	Commands     int64
	Elapsed      time.Duration
}

func New() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Start() {
	m.mu.Lock()
	if m.start.IsZero() {
		m.start = time.Now()
		m.end = time.Time{}
	}
	m.mu.Unlock()
}

func (m *Metrics) Stop() {
	m.mu.Lock()
	if !m.start.IsZero() && m.end.IsZero() {
		m.end = time.Now()
	}
	m.mu.Unlock()
}

// AddChunk records one transport delivery of n bytes.
func (m *Metrics) AddChunk(n int) {
	m.mu.Lock()
	m.chunks++
	m.bytes += int64(n)
	m.mu.Unlock()
}

func (m *Metrics) AddPackets(n int) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	m.packets += int64(n)
	m.mu.Unlock()
}

func (m *Metrics) AddDecodeError() {
	m.mu.Lock()
	m.decodeErrors++
	m.mu.Unlock()
}

func (m *Metrics) AddCommand() {
	m.mu.Lock()
	m.commands++
	m.mu.Unlock()
}

func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		Chunks:       m.chunks,
		Bytes:        m.bytes,
		Packets:      m.packets,
		DecodeErrors: m.decodeErrors,
		Commands:     m.commands,
	}
	if !m.start.IsZero() {
		end := m.end
		if end.IsZero() {
			end = time.Now()
		}
		s.Elapsed = end.Sub(m.start)
	}
	return s
}

// Throughput returns bytes per second over the elapsed time.
func (s Snapshot) Throughput() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Bytes) / s.Elapsed.Seconds()
}

// PacketRate returns packets per second over the elapsed time.
func (s Snapshot) PacketRate() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Packets) / s.Elapsed.Seconds()
}

func (s Snapshot) Summary() string {
	return fmt.Sprintf("%d packets from %d bytes in %d chunks (%.1f packets/s, %.0f B/s), %d decode errors, %d commands",
		s.Packets, s.Bytes, s.Chunks, s.PacketRate(), s.Throughput(), s.DecodeErrors, s.Commands)
}
