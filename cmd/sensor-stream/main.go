package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bigbag/sensor-stream/internal/detect"
	"github.com/bigbag/sensor-stream/internal/protocol"
	"github.com/bigbag/sensor-stream/internal/serial"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configFlag   string
	portFlag     string
	baudFlag     int
	outputFlag   string
	commandFlags []string
	logLevelFlag string
	chunkFlag    int
	randomFlag   bool
	delayFlag    int
	demoFlag     bool
	quietFlag    bool
	noStartFlag  bool
	probeFlag    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sensor-stream",
		Short: "Decode live telemetry from a 3-channel sensor",
		Long: `Sensor Stream reads the raw byte stream of a 3-channel 24-bit sensor,
cuts it into 21-byte packets and prints the decoded samples.

Bytes may arrive in chunks of any size; packets are reassembled across
deliveries. The wire format has no sync byte or checksum, so a lost byte
misaligns every following packet until the device reconnects.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (overrides config)")

	// Stream command
	streamCmd := &cobra.Command{
		Use:   "stream",
		Short: "Stream and decode samples from a serial port",
		Long: `Open the serial port, send the start command(s) and print every decoded
sample until interrupted. Without --port the first port that streams
sensor data is used.

By default the start command is "b". Use --command to send others
(repeatable), or --no-start to send nothing.`,
		Args: cobra.NoArgs,
		RunE: runStream,
	}
	streamCmd.Flags().StringVarP(&portFlag, "port", "p", "", "Serial port")
	streamCmd.Flags().IntVarP(&baudFlag, "baud", "b", protocol.DefaultBaudRate, "Baud rate")
	streamCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output format: text or ndjson")
	streamCmd.Flags().StringArrayVarP(&commandFlags, "command", "c", nil, "Command sent after connecting (repeatable)")
	streamCmd.Flags().BoolVar(&noStartFlag, "no-start", false, "Do not send any start command")

	// Replay command
	replayCmd := &cobra.Command{
		Use:   "replay [capture.bin]",
		Short: "Decode a recorded byte stream",
		Long: `Replay a raw capture through the same reassembly and decoding path used
for live data. Chunk sizes can be randomized to exercise reassembly.

Use --demo to replay the bundled demo capture.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runReplay,
	}
	replayCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output format: text or ndjson")
	replayCmd.Flags().IntVar(&chunkFlag, "chunk", 20, "Chunk size (upper bound with --random)")
	replayCmd.Flags().BoolVar(&randomFlag, "random", false, "Randomize chunk sizes")
	replayCmd.Flags().IntVar(&delayFlag, "delay", 0, "Delay between chunks in milliseconds")
	replayCmd.Flags().BoolVar(&demoFlag, "demo", false, "Replay the embedded demo capture")
	replayCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Only print the summary")

	// Decode command
	decodeCmd := &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode a single packet given as hex",
		Long: `Decode one 21-byte packet. Bytes may be separated by spaces or colons:

  sensor-stream decode "00 05 00 7f ff ff 00 00 01 00 00 80 00 00 00 00 ff ff ff ff ff"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runDecode,
	}

	// Send command
	sendCmd := &cobra.Command{
		Use:   "send <command>",
		Short: "Send a single text command",
		Args:  cobra.ExactArgs(1),
		RunE:  runSend,
	}
	sendCmd.Flags().StringVarP(&portFlag, "port", "p", "", "Serial port")
	sendCmd.Flags().IntVarP(&baudFlag, "baud", "b", protocol.DefaultBaudRate, "Baud rate")

	// Version command
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sensor-stream %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available serial ports",
		RunE:  runList,
	}
	listCmd.Flags().BoolVar(&probeFlag, "probe", false, "Probe each port for a streaming sensor")
	listCmd.Flags().IntVarP(&baudFlag, "baud", "b", protocol.DefaultBaudRate, "Baud rate used when probing")

	rootCmd.AddCommand(streamCmd, replayCmd, decodeCmd, sendCmd, versionCmd, listCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runList(cmd *cobra.Command, args []string) error {
	if probeFlag {
		return runProbe()
	}

	ports, err := serial.ListPorts()
	if err != nil {
		return err
	}

	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}

	fmt.Println("Available serial ports:")
	for _, p := range ports {
		fmt.Printf("  %s\n", p)
	}

	return nil
}

func runProbe() error {
	fmt.Println("Probing serial ports...")
	results, err := detect.ListDevices(baudFlag)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No streaming sensor found")
		return nil
	}

	fmt.Println("Sensors found:")
	for _, r := range results {
		fmt.Printf("  %s (%d packets in %v)\n", r.Port, r.Packets(), detect.DefaultWindow)
	}

	return nil
}
