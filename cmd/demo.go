package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"loopy/config"
	"loopy/engine"
)

var demoPort string

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Play a built-in two-channel demo loop",
	Long: `Play a short bass and lead pattern on a 16-step loop until interrupted.

Tempo, grid resolution and the click come from the config file when one
exists, defaults otherwise.`,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().StringVarP(&demoPort, "port", "p", "", "MIDI output port (default: built-in synth)")
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	port := demoPort
	if port == "" {
		port = cfg.MIDI.OutPort
	}
	backend, closeBackend, err := openBackend(port, logger)
	if err != nil {
		return fmt.Errorf("open sound backend: %w", err)
	}
	defer closeBackend()

	project, err := engine.NewProject(backend,
		engine.WithTempo(cfg.Tempo),
		engine.WithStepsPerBeat(cfg.StepsPerBeat),
		engine.WithLogger(logger))
	if err != nil {
		return err
	}

	if _, err := project.RegisterInstrument("bass", 0, 38); err != nil {
		return err
	}
	if _, err := project.RegisterInstrument("lead", 1, 80); err != nil {
		return err
	}

	bass, err := project.AddStepChannel("bass", "bass", 16)
	if err != nil {
		return err
	}
	lead, err := project.AddStepChannel("lead", "lead", 16)
	if err != nil {
		return err
	}

	// Root notes on the downbeats, a fifth on the off-beats.
	for i, note := range []uint8{36, 43, 36, 43} {
		bass.Sequence().SetStep(i*4, engine.Step{Note: note, Velocity: 110, Enabled: true})
	}
	for i, note := range []uint8{60, 63, 67, 70, 72, 70, 67, 63} {
		lead.Sequence().SetStep(i*2, engine.Step{Note: note, Velocity: 90, Enabled: true})
	}

	if cfg.Click.Enabled {
		if _, err := project.RegisterInstrument("click", 9, 0); err != nil {
			return err
		}
		opts := engine.ClickOptions{
			Note:             cfg.Click.Note,
			Volume:           cfg.Click.Volume,
			AccentVolume:     cfg.Click.AccentVolume,
			BeatsPerBar:      cfg.Click.BeatsPerBar,
			EverySubdivision: cfg.Click.EverySubdivision,
		}
		if _, err := project.AddClickChannel("click", "click", opts); err != nil {
			return err
		}
	}

	project.Start()
	fmt.Printf("Playing demo at %.0f BPM. Ctrl+C to stop.\n", cfg.Tempo)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	project.Stop()
	return nil
}
