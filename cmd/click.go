package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"loopy/engine"
)

var (
	clickBPM         float64
	clickBeatsPerBar int
	clickSubdivide   bool
	clickPort        string
)

var clickCmd = &cobra.Command{
	Use:   "click",
	Short: "Run a standalone metronome click",
	Long: `Run a metronome click at the given tempo until interrupted.

The first beat of every bar is accented. By default the click sounds on
each beat; --subdivide clicks on every grid step instead.

Example:
  loopy click --bpm 90 --beats-per-bar 3
`,
	RunE: runClick,
}

func init() {
	clickCmd.Flags().Float64Var(&clickBPM, "bpm", 120, "tempo in beats per minute")
	clickCmd.Flags().IntVar(&clickBeatsPerBar, "beats-per-bar", 4, "beats per bar (first beat accented)")
	clickCmd.Flags().BoolVar(&clickSubdivide, "subdivide", false, "click on every grid step, not just beats")
	clickCmd.Flags().StringVarP(&clickPort, "port", "p", "", "MIDI output port (default: built-in synth)")
	rootCmd.AddCommand(clickCmd)
}

func runClick(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync()

	backend, closeBackend, err := openBackend(clickPort, logger)
	if err != nil {
		return fmt.Errorf("open sound backend: %w", err)
	}
	defer closeBackend()

	project, err := engine.NewProject(backend,
		engine.WithTempo(clickBPM),
		engine.WithLogger(logger))
	if err != nil {
		return err
	}

	// Channel 10 (index 9) is the GM percussion channel.
	if _, err := project.RegisterInstrument("click", 9, 0); err != nil {
		return err
	}
	opts := engine.DefaultClickOptions()
	opts.BeatsPerBar = clickBeatsPerBar
	opts.EverySubdivision = clickSubdivide
	if _, err := project.AddClickChannel("click", "click", opts); err != nil {
		return err
	}

	project.Start()
	fmt.Printf("Clicking at %.0f BPM, %d beats per bar. Ctrl+C to stop.\n", clickBPM, clickBeatsPerBar)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	project.Stop()
	return nil
}
