package metrics

import "github.com/influxdata/influxdb-client-go/api/write"

// NopWriteAPI discards everything. Used when InfluxDB is not configured.
type NopWriteAPI struct{}

func (m *NopWriteAPI) WriteRecord(line string) {}

func (m *NopWriteAPI) WritePoint(point *write.Point) {}

func (m *NopWriteAPI) Flush() {}

func (m *NopWriteAPI) Close() {}

// Errors returns nil; nothing is ever written.
func (m *NopWriteAPI) Errors() <-chan error { return nil }
