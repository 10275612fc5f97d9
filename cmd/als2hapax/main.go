// Package main is the entry point for the als2hapax CLI
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/james-see/als2hapax/pkg/api"
	"github.com/james-see/als2hapax/pkg/config"
	"github.com/james-see/als2hapax/pkg/converter"
	"github.com/james-see/als2hapax/pkg/converter/devices"
	"github.com/james-see/als2hapax/pkg/tui"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	outputFile     string
	selectionsFile string
	outPort        string
	channel        int
	verbose        bool
	serverPort     int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "als2hapax",
	Short: "Convert Ableton Live racks into Squarp Hapax definitions",
	Long: `als2hapax reads an Ableton Live set (.als) and turns its Instrument
and Drum Racks into Hapax instrument definition files, packaged as a zip.

Instrument Racks map their macros to CC 1-8. Drum Racks are split into
parts of at most 8 pads each.

Examples:
  als2hapax inspect song.als
  als2hapax convert song.als -o song_hapax.zip --channel 10 --port USBH
  als2hapax selections song.als > picks.yaml
  als2hapax convert song.als --selections picks.yaml
  als2hapax tui
  als2hapax serve --port 8080`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <input.als>",
	Short: "List the racks found in a Live set",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var convertCmd = &cobra.Command{
	Use:   "convert <input.als>",
	Short: "Convert racks to a zip of Hapax definitions",
	Long: `Converts the selected racks of a Live set. Without --selections every
rack is converted using the default channel and port.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

var selectionsCmd = &cobra.Command{
	Use:   "selections <input.als>",
	Short: "Print a selections file covering every rack",
	Args:  cobra.ExactArgs(1),
	RunE:  runSelections,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&outPort, "port-out", "", "Hapax output port (A, B, C, D, USBD, USBH)")
	rootCmd.PersistentFlags().IntVarP(&channel, "channel", "c", 0, "Default MIDI channel (1-16)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline steps to stderr")

	// convert command
	convertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .zip path (default: <project>_hapax.zip next to the input)")
	convertCmd.Flags().StringVarP(&selectionsFile, "selections", "s", "", "YAML file choosing racks, channels and ports")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Server port")

	// Add commands
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(selectionsCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig reads the environment and applies any flags that were set
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("port-out") {
		cfg.OutPort = strings.ToUpper(outPort)
	}
	if flags.Changed("channel") {
		cfg.Channel = channel
	}
	if flags.Changed("verbose") {
		cfg.Verbose = verbose
	}
	if flags.Changed("selections") {
		cfg.SelectionsFile = selectionsFile
	}
	if flags.Changed("port") {
		cfg.ServerPort = serverPort
	}
	return cfg, nil
}

func newConverter(cfg config.Config) *converter.Converter {
	return converter.New(devices.NewHapax(),
		converter.WithDefaultChannel(cfg.Channel),
		converter.WithDefaultPort(cfg.OutPort),
		converter.WithLogger(cfg.Logger()),
	)
}

func readSelections(path string) ([]converter.Selection, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open selections: %w", err)
	}
	defer func() { _ = f.Close() }()
	return converter.LoadSelections(f)
}

func inspectProject(cmd *cobra.Command, input string) (config.Config, []converter.RackSummary, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return cfg, nil, err
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return cfg, nil, fmt.Errorf("failed to read input file: %w", err)
	}
	racks, err := newConverter(cfg).Inspect(data)
	return cfg, racks, err
}

func runInspect(cmd *cobra.Command, args []string) error {
	_, racks, err := inspectProject(cmd, args[0])
	if err != nil {
		return err
	}
	if len(racks) == 0 {
		fmt.Println("No Instrument or Drum racks found")
		return nil
	}

	for _, r := range racks {
		fmt.Printf("%2d  %-10s %-32s %d controls, %d file(s)\n",
			r.Index, r.Kind, r.TrackName, len(r.Controls), r.Files)
		for i, ctl := range r.Controls {
			if ctl.NoteName != "" {
				fmt.Printf("      %2d  %-4s %s\n", i+1, ctl.NoteName, ctl.Label)
			} else {
				fmt.Printf("      %2d  %s\n", i+1, ctl.Label)
			}
		}
	}
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	selections, err := readSelections(cfg.SelectionsFile)
	if err != nil {
		return err
	}

	fmt.Printf("Converting %s...\n", input)
	written, err := newConverter(cfg).ConvertFile(input, outputFile, selections)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", written)
	return nil
}

func runSelections(cmd *cobra.Command, args []string) error {
	cfg, racks, err := inspectProject(cmd, args[0])
	if err != nil {
		return err
	}

	sels := make([]converter.Selection, 0, len(racks))
	for _, r := range racks {
		if r.Files == 0 {
			continue
		}
		sels = append(sels, converter.Selection{
			Rack:    r.Index,
			Channel: converter.Channel(cfg.Channel),
			Port:    cfg.OutPort,
		})
	}
	return converter.WriteSelections(os.Stdout, sels)
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return tui.Run(cfg)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	fmt.Printf("Starting API server on port %d...\n", cfg.ServerPort)
	return api.StartServer(cfg)
}
