package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"loopy/engine"
	"loopy/midi"
	"loopy/synth"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "loopy",
	Short: "A MIDI step sequencer and live looper",
	Long: `loopy is a step sequencer and live MIDI looper.

It drives step-programmed instrument channels and live MIDI input from a
single tick clock, playing either through a built-in synthesizer or out
to a hardware MIDI port.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	if verbose {
		l, err := zap.NewDevelopment()
		if err == nil {
			return l
		}
	}
	return zap.NewNop()
}

// openBackend opens the sound engine the commands play through: a
// hardware MIDI port when one is named, the built-in synth otherwise.
func openBackend(port string, logger *zap.Logger) (engine.SoundEngine, func(), error) {
	if port != "" {
		out, err := midi.OpenOut(port, logger)
		if err != nil {
			return nil, nil, err
		}
		return out, func() {
			out.Close()
			midi.CloseDriver()
		}, nil
	}
	s, err := synth.New()
	if err != nil {
		return nil, nil, err
	}
	return s, func() { s.Close() }, nil
}
