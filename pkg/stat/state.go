package stat

import "github.com/BTBurke/spc/pkg/fsm"

const (
	// Process states of a monitored collection.  A collection starts out collecting samples and moves in and out of
	// control as analyses are run.  Clearing the collection returns it to collecting.
	Collecting   = fsm.State("collecting")
	InControl    = fsm.State("in_control")
	OutOfControl = fsm.State("out_of_control")
)

// NewProcessMachine returns a state machine for one collection starting in Collecting
func NewProcessMachine(opts ...fsm.MachineOption) (*fsm.Machine, error) {
	opts = append([]fsm.MachineOption{fsm.WithTransitions(
		fsm.T(Collecting, InControl, OutOfControl),
		fsm.T(InControl, OutOfControl, Collecting),
		fsm.T(OutOfControl, InControl, Collecting),
	)}, opts...)
	return fsm.NewMachine(Collecting, opts...)
}

// StateFor maps an analysis outcome to the process state it implies
func StateFor(reports ...Report) fsm.State {
	for _, r := range reports {
		if !r.InControl() {
			return OutOfControl
		}
	}
	return InControl
}
