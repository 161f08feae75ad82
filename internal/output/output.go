// Package output renders decoded samples for the terminal or for other tools.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/bigbag/sensor-stream/internal/protocol"
)

// Formats accepted by New.
const (
	FormatText   = "text"
	FormatNDJSON = "ndjson"
)

// Writer renders one sample record.
type Writer interface {
	WriteRecord(rec *protocol.SampleRecord) error
}

// New returns the Writer for format.
func New(format string, w io.Writer) (Writer, error) {
	switch format {
	case FormatText, "":
		return NewTextWriter(w), nil
	case FormatNDJSON:
		return NewNDJSONWriter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// TextWriter writes SampleRecord.String() lines.
type TextWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w}
}

func (t *TextWriter) WriteRecord(rec *protocol.SampleRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintln(t.w, rec.String())
	return err
}

// record is the JSON shape of a SampleRecord.
type record struct {
	Index    uint8   `json:"index"`
	Channels []int32 `json:"channels"`
	Status   []int   `json:"status"`
	Hex      string  `json:"hex"`
}

// NDJSONWriter streams newline-delimited JSON objects to the underlying writer.
type NDJSONWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	return &NDJSONWriter{enc: json.NewEncoder(w)}
}

// WriteRecord writes rec as a single NDJSON line.
func (n *NDJSONWriter) WriteRecord(rec *protocol.SampleRecord) error {
	r := record{
		Index:    rec.Index,
		Channels: rec.Channels[:],
		Status:   make([]int, len(rec.Status)),
		Hex:      rec.Hex,
	}
	for i, b := range rec.Status {
		r.Status[i] = int(b)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	return n.enc.Encode(r)
}
