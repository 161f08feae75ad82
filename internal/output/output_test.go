package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/bigbag/sensor-stream/internal/protocol"
)

func testRecord() *protocol.SampleRecord {
	var p protocol.Packet
	p[protocol.IndexOffset] = 5
	p[3], p[4], p[5] = 0x7F, 0xFF, 0xFF
	p[6] = 0x7A
	p[9] = 0x01
	p[11] = 0x80
	return p.Decode()
}

func TestNew_Formats(t *testing.T) {
	for _, format := range []string{"", FormatText, FormatNDJSON} {
		if _, err := New(format, &bytes.Buffer{}); err != nil {
			t.Errorf("New(%q) error = %v", format, err)
		}
	}
	if _, err := New("csv", &bytes.Buffer{}); err == nil {
		t.Error("New(csv) expected error, got nil")
	}
}

func TestTextWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTextWriter(&buf).WriteRecord(testRecord()); err != nil {
		t.Fatalf("WriteRecord() error = %v", err)
	}

	line := buf.String()
	if !strings.HasSuffix(line, "\n") {
		t.Errorf("output %q does not end with newline", line)
	}
	if !strings.Contains(line, "ch1=8388607 ch2=1 ch3=-8388608") {
		t.Errorf("output %q missing channel values", line)
	}
}

func TestNDJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewNDJSONWriter(&buf)
	rec := testRecord()
	w.WriteRecord(rec)
	w.WriteRecord(rec)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	var got struct {
		Index    int     `json:"index"`
		Channels []int32 `json:"channels"`
		Status   []int   `json:"status"`
		Hex      string  `json:"hex"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &got); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if got.Index != 5 {
		t.Errorf("index = %d, want 5", got.Index)
	}
	if len(got.Channels) != 3 || got.Channels[0] != 8388607 || got.Channels[1] != 1 || got.Channels[2] != -8388608 {
		t.Errorf("channels = %v, want [8388607 1 -8388608]", got.Channels)
	}
	if len(got.Status) != 3 || got.Status[1] != 0x7A {
		t.Errorf("status = %v, want [0 122 0]", got.Status)
	}
	if got.Hex != rec.Hex {
		t.Errorf("hex = %q, want %q", got.Hex, rec.Hex)
	}
}
