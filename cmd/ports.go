package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"loopy/midi"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List available MIDI ports",
	Run:   runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

func runPorts(cmd *cobra.Command, args []string) {
	defer midi.CloseDriver()

	fmt.Println("MIDI inputs:")
	ins := midi.InPorts()
	if len(ins) == 0 {
		fmt.Println("  (none)")
	}
	for i, name := range ins {
		fmt.Printf("  %d: %s\n", i, name)
	}

	fmt.Println("MIDI outputs:")
	outs := midi.OutPorts()
	if len(outs) == 0 {
		fmt.Println("  (none)")
	}
	for i, name := range outs {
		fmt.Printf("  %d: %s\n", i, name)
	}
}
