package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bigbag/sensor-stream/embedded"
	"github.com/bigbag/sensor-stream/internal/config"
	"github.com/bigbag/sensor-stream/internal/detect"
	"github.com/bigbag/sensor-stream/internal/logging"
	"github.com/bigbag/sensor-stream/internal/metrics"
	"github.com/bigbag/sensor-stream/internal/output"
	"github.com/bigbag/sensor-stream/internal/protocol"
	"github.com/bigbag/sensor-stream/internal/serial"
	"github.com/bigbag/sensor-stream/internal/session"
	"github.com/bigbag/sensor-stream/internal/transport"
)

// loadConfig reads --config (if any) and applies flags that were set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if configFlag != "" {
		var err error
		cfg, err = config.Load(configFlag)
		if err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port = portFlag
	}
	if flags.Changed("baud") {
		cfg.Baud = baudFlag
	}
	if flags.Changed("output") {
		cfg.Output = outputFlag
	}
	if flags.Changed("command") {
		cfg.StartCommands = commandFlags
	}
	if noStartFlag {
		cfg.StartCommands = nil
	}
	if logLevelFlag != "" {
		cfg.Logs.Level = logLevelFlag
	}

	return cfg, cfg.Validate()
}

func runStream(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	closer, err := logging.Setup(cfg.Logs)
	if err != nil {
		return err
	}
	defer closer.Close()

	if cfg.Port == "" {
		fmt.Fprintln(os.Stderr, "Detecting sensor...")
		result, err := detect.DetectDevice(cfg.Baud)
		if err != nil {
			return fmt.Errorf("failed to detect sensor: %w (use --port)", err)
		}
		cfg.Port = result.Port
		fmt.Fprintf(os.Stderr, "Found sensor on %s\n", cfg.Port)
	}

	port, err := serial.Open(cfg.Port, cfg.Baud)
	if err != nil {
		return err
	}
	tr := transport.NewSerial(port, cfg.ReadSize)
	defer tr.Close()

	log.Info().Str("port", port.PortName()).Int("baud", cfg.Baud).Msg("port open")

	return runSession(cfg, tr, "serial:"+port.PortName(), true)
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	closer, err := logging.Setup(cfg.Logs)
	if err != nil {
		return err
	}
	defer closer.Close()

	var (
		data   []byte
		source string
	)
	switch {
	case demoFlag:
		data = embedded.DemoCapture()
		source = "demo"
	case len(args) == 1:
		data, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read capture: %w", err)
		}
		source = "file:" + args[0]
	default:
		return fmt.Errorf("give a capture file or --demo")
	}

	fmt.Fprintf(os.Stderr, "Replaying %s (%d bytes, %d packets)\n", source, len(data), len(data)/protocol.PacketSize)

	opts := transport.ReplayOptions{
		ChunkSize:    chunkFlag,
		RandomChunks: randomFlag,
		Seed:         time.Now().UnixNano(),
		Delay:        time.Duration(delayFlag) * time.Millisecond,
	}

	// Records and the progress bar would interleave on the terminal.
	var bar *progressbar.ProgressBar
	if quietFlag {
		bar = progressbar.NewOptions64(int64(len(data)),
			progressbar.OptionSetDescription("Replaying"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		opts.Progress = func(current, total int64) {
			bar.Set64(current)
		}
	}

	tr := transport.NewReplay(data, opts)
	defer tr.Close()

	err = runSession(cfg, tr, source, !quietFlag)
	if bar != nil {
		bar.Finish()
	}
	return err
}

// runSession streams tr until it ends, fails or the process is interrupted.
func runSession(cfg config.Config, tr transport.Transport, source string, printRecords bool) error {
	out, err := output.New(cfg.Output, os.Stdout)
	if err != nil {
		return err
	}

	logger := log.With().Str("source", source).Logger()
	m := metrics.New()

	handler := func(rec *protocol.SampleRecord) {}
	if printRecords {
		handler = func(rec *protocol.SampleRecord) {
			if err := out.WriteRecord(rec); err != nil {
				logger.Error().Err(err).Msg("failed to write record")
			}
		}
	}

	s := session.New(tr,
		session.WithHandler(handler),
		session.WithMetrics(m),
		session.WithLogger(logger),
		session.WithQueueSize(cfg.QueueSize),
		session.WithStartCommands(cfg.StartCommands...),
	)

	var writeAPI api.WriteAPI
	if cfg.InfluxDB.Enabled() {
		client := influxdb2.NewClient(cfg.InfluxDB.Host, cfg.InfluxDB.Token)
		defer client.Close()
		writeAPI = client.WriteAPI(cfg.InfluxDB.Organization, cfg.InfluxDB.Bucket)
	}
	reporter := metrics.NewReporter(m, writeAPI, source, cfg.InfluxDB.Interval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	eg.Go(func() error {
		select {
		case <-sigChan:
			logger.Info().Msg("interrupted")
			cancel()
		case <-ctx.Done():
		}
		return nil
	})

	eg.Go(func() error {
		return reporter.Run(ctx)
	})

	eg.Go(func() error {
		defer cancel()
		return s.Run(ctx)
	})

	err = eg.Wait()

	snap := m.Snapshot()
	logger.Info().
		Int64("packets", snap.Packets).
		Int64("bytes", snap.Bytes).
		Int("buffered", s.Buffered()).
		Msg("stream finished")
	fmt.Fprintln(os.Stderr, snap.Summary())
	if n := s.Buffered(); n > 0 {
		fmt.Fprintf(os.Stderr, "%d trailing bytes did not form a complete packet: %s\n", n, protocol.HexString(s.Pending()))
	}

	return err
}

func runDecode(cmd *cobra.Command, args []string) error {
	data, err := parseHex(strings.Join(args, " "))
	if err != nil {
		return err
	}

	rec, err := protocol.Decode(data)
	if err != nil {
		return err
	}

	fmt.Printf("Index:    %d\n", rec.Index)
	for i, v := range rec.Channels {
		fmt.Printf("Channel %d: %d (status 0x%02x)\n", i+1, v, rec.Status[i])
	}
	fmt.Printf("Raw:      %s\n", rec.Hex)
	return nil
}

// parseHex accepts hex bytes with optional spaces, colons or a 0x prefix.
func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.NewReplacer(" ", "", ":", "", "\t", "", "\n", "").Replace(s)
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return data, nil
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Port == "" {
		return fmt.Errorf("no serial port given (use --port or set port in the config file)")
	}

	port, err := serial.Open(cfg.Port, cfg.Baud)
	if err != nil {
		return err
	}
	tr := transport.NewSerial(port, cfg.ReadSize)
	defer tr.Close()

	if err := session.New(tr).Send(args[0]); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}

	fmt.Printf("Sent %q to %s\n", args[0], cfg.Port)
	return nil
}
