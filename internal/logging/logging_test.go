package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog/log"

	"github.com/bigbag/sensor-stream/internal/config"
)

func TestSetup_InvalidLevel(t *testing.T) {
	if _, err := setup(config.Logs{Level: "loud"}, &bytes.Buffer{}); err == nil {
		t.Error("setup() with invalid level expected error, got nil")
	}
}

func TestSetup_ConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	closer, err := setup(config.Logs{Level: "warn"}, &buf)
	if err != nil {
		t.Fatalf("setup() error = %v", err)
	}
	defer closer.Close()

	log.Info().Msg("hidden")
	log.Warn().Msg("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at warn level: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("warn message missing: %q", out)
	}
}

func TestSetup_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "sensor-stream.log")
	closer, err := setup(config.Logs{Level: "info", File: path, MaxSizeMB: 1}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("setup() error = %v", err)
	}

	log.Info().Str("source", "test").Msg("to file")
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), `"source":"test"`) {
		t.Errorf("log file = %q, want JSON with source field", data)
	}
}
