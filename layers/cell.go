package layers

import "github.com/VV-869/H-Mem/autograd"

// StepFunc advances a recurrence by one step: next state from current
// state and one input. Cells expose their step as this shape so the scan
// below stays independent of any particular cell.
type StepFunc func(state, input *autograd.Vec) *autograd.Vec

// Scan runs a strictly sequential recurrence over inputs and returns the
// final state. Each step depends on the previous state; there is nothing
// to parallelize inside one scan.
func Scan(initial *autograd.Vec, inputs []*autograd.Vec, step StepFunc) *autograd.Vec {
	state := initial
	for _, in := range inputs {
		state = step(state, in)
	}
	return state
}
