package metrics

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/influxdata/influxdb-client-go/api/write"
)

// Measurement is the InfluxDB measurement name for stream counters.
const Measurement = "stream.stats"

// Reporter periodically exports a Metrics snapshot.
type Reporter struct {
	metrics  *Metrics
	writeAPI api.WriteAPI
	source   string
	interval time.Duration
}

// NewReporter creates a Reporter. A nil writeAPI disables export.
func NewReporter(m *Metrics, writeAPI api.WriteAPI, source string, interval time.Duration) *Reporter {
	if writeAPI == nil {
		writeAPI = &NopWriteAPI{}
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Reporter{
		metrics:  m,
		writeAPI: writeAPI,
		source:   source,
		interval: interval,
	}
}

// Run reports on every tick until ctx is done, then writes a final point
// and flushes.
func (r *Reporter) Run(ctx context.Context) error {
	tick := time.NewTicker(r.interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Report()
			r.writeAPI.Flush()
			return nil
		case <-tick.C:
			r.Report()
		}
	}
}

// Report writes the current snapshot.
func (r *Reporter) Report() {
	r.writeAPI.WritePoint(r.point(r.metrics.Snapshot(), time.Now()))
}

func (r *Reporter) point(s Snapshot, ts time.Time) *write.Point {
	return influxdb2.NewPoint(Measurement,
		map[string]string{
			"source": r.source,
		},
		map[string]interface{}{
			"chunks":        s.Chunks,
			"bytes":         s.Bytes,
			"packets":       s.Packets,
			"decode_errors": s.DecodeErrors,
			"commands":      s.Commands,
			"packet_rate":   s.PacketRate(),
			"throughput":    s.Throughput(),
		}, ts)
}
