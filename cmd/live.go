package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"loopy/config"
	"loopy/engine"
	"loopy/midi"
)

var (
	liveInPort  string
	liveOutPort string
	liveProgram uint8
	liveClick   bool
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Echo a MIDI keyboard through the sound backend",
	Long: `Open a MIDI input port and play everything it sends, optionally with a
metronome click underneath.

Live notes bypass the step grid entirely, so latency is bounded only by
the backend.

Example:
  loopy live --in "USB MIDI Keyboard" --program 4
`,
	RunE: runLive,
}

func init() {
	liveCmd.Flags().StringVar(&liveInPort, "in", "", "MIDI input port (default: first available)")
	liveCmd.Flags().StringVarP(&liveOutPort, "port", "p", "", "MIDI output port (default: built-in synth)")
	liveCmd.Flags().Uint8Var(&liveProgram, "program", 0, "GM program number for the live instrument")
	liveCmd.Flags().BoolVar(&liveClick, "click", false, "play a metronome click while echoing")
	rootCmd.AddCommand(liveCmd)
}

func runLive(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	outPort := liveOutPort
	if outPort == "" {
		outPort = cfg.MIDI.OutPort
	}
	backend, closeBackend, err := openBackend(outPort, logger)
	if err != nil {
		return fmt.Errorf("open sound backend: %w", err)
	}
	defer closeBackend()
	defer midi.CloseDriver()

	project, err := engine.NewProject(backend,
		engine.WithTempo(cfg.Tempo),
		engine.WithStepsPerBeat(cfg.StepsPerBeat),
		engine.WithLogger(logger))
	if err != nil {
		return err
	}

	if _, err := project.RegisterInstrument("keys", 0, liveProgram); err != nil {
		return err
	}
	keys, err := project.AddFreeMidiChannel("keys", "keys")
	if err != nil {
		return err
	}

	inPort := liveInPort
	if inPort == "" {
		inPort = cfg.MIDI.InPort
	}
	in, err := midi.OpenInput(inPort, keys, logger)
	if err != nil {
		return fmt.Errorf("open MIDI input: %w", err)
	}
	defer in.Close()

	if liveClick {
		if _, err := project.RegisterInstrument("click", 9, 0); err != nil {
			return err
		}
		if _, err := project.AddClickChannel("click", "click", engine.DefaultClickOptions()); err != nil {
			return err
		}
		project.Start()
	}

	fmt.Printf("Echoing %s. Ctrl+C to stop.\n", in.Port())

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	project.Stop()
	keys.Silence()
	return nil
}
