package statespace

import "github.com/samuelfneumann/dcegm/params"

// EndogenousState names one user-defined discrete state variable (other
// than period and lagged choice) and its admissible integer values, e.g.
// an experience or marital-status dimension (§6.2).
type EndogenousState struct {
	Name   string
	Values []int
}

// ExogenousProcess names one stochastic discrete state variable, its
// admissible values, and the user-supplied transition function producing
// a probability over those values conditional on the current state.
// Transition must return a slice the same length as States, summing to 1.
type ExogenousProcess struct {
	Name       string
	States     []int
	Transition func(state State, p params.Params) []float64
}

// Options is the setup-time schema consumed by Build (§6.2). It is the
// statespace-relevant subset of the full options schema; continuous
// states, model params, and tuning params are consumed by other packages
// and are not repeated here.
type Options struct {
	// NPeriods is the number of periods, T+1, and must be >= 2.
	NPeriods int

	// Choices is the ordered list of every discrete choice id that can
	// occur in any period; it also supplies the domain of lagged_choice.
	Choices []int

	// EndogenousStates lists additional discrete state dimensions beyond
	// period and lagged choice, in the column order they occupy in
	// State.
	EndogenousStates []EndogenousState

	// ExogenousProcesses lists the exogenous discrete state dimensions,
	// in the column order they occupy at the tail of State.
	ExogenousProcesses []ExogenousProcess

	// SparsityCondition reports whether a fully enumerated candidate
	// state is valid. If invalid, it may supply a proxy: every
	// reference to the candidate as a child state is then rewritten to
	// the proxy (§3, §4.2, §9 Open Question 1 -- the dict-based proxy
	// semantics is the only one implemented). A nil SparsityCondition
	// treats every candidate as valid.
	SparsityCondition func(state State) (valid bool, proxy State, hasProxy bool)

	// FeasibleChoiceSet returns the subset of Choices available at
	// state. A nil FeasibleChoiceSet makes every choice feasible at
	// every state.
	FeasibleChoiceSet func(state State) []int

	// NextState computes the endogenous-state columns of the state one
	// period ahead, given the current state, the choice taken, and one
	// realisation of every exogenous process (same order as
	// ExogenousProcesses). The builder prepends period+1 and the choice
	// as lagged_choice, and appends the exogenous realisation itself, to
	// form the full child State. A nil NextState is only valid when
	// EndogenousStates is empty.
	NextState func(state State, choice int, exogRealization []int) []int

	// MaxWorkingSet bounds the number of state-choice ids Build will
	// place in one batch (§4.2 point 6, §5 memory discipline). Zero
	// means unbounded: one batch per period.
	MaxWorkingSet int
}

func (o Options) validate() error {
	return validateOptions(o)
}
