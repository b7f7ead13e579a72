package midi

import gomidi "gitlab.com/gomidi/midi/v2"

// OutPorts returns the names of all MIDI output ports.
func OutPorts() []string {
	outs := gomidi.GetOutPorts()
	names := make([]string, len(outs))
	for i, out := range outs {
		names[i] = out.String()
	}
	return names
}

// InPorts returns the names of all MIDI input ports.
func InPorts() []string {
	ins := gomidi.GetInPorts()
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	return names
}

// CloseDriver releases the MIDI driver. Call once at shutdown.
func CloseDriver() {
	gomidi.CloseDriver()
}
