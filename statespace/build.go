package statespace

import (
	"fmt"

	"github.com/samuelfneumann/dcegm/dcerr"
	"github.com/samuelfneumann/dcegm/params"
)

// Batch is an ordered chunk of a single period's state-choice ids (§3,
// §4.2 point 6). Every child state referenced by a state-choice in Batch
// lies in a period that is already fully solved by the time Batch is
// processed, because backward induction solves periods strictly in
// descending order -- see buildBatches' doc comment for why batch
// membership therefore never needs to respect intra-period ordering.
type Batch struct {
	Period        int
	StateChoiceIDs []int
}

// Space is the output of Build: the enumerated state space, state-choice
// space, child-state mapping (with proxy rewriting applied), and a batch
// partition for the driver. Space also retains the Options it was built
// from, since the exogenous-process transition callbacks are not
// persisted (§6.4) and must be re-supplied by the caller on every solve.
type Space struct {
	Options Options

	// StateSpace holds one row per valid discrete state, columns ordered
	// [period, lagged_choice, endog_vars..., exog_vars...].
	StateSpace [][]int

	// MapStateToIndex maps a State's canonical key to its row index in
	// StateSpace. Only valid (non-proxied-away) states appear here.
	MapStateToIndex map[string]int

	// StateChoiceSpace holds one entry per (state, choice) pair actually
	// reachable given FeasibleChoiceSet.
	StateChoiceSpace []StateChoice

	// ParentOfStateChoice[i] is the row index into StateSpace of
	// StateChoiceSpace[i].State.
	ParentOfStateChoice []int

	// ChildrenOfStateChoice[i] holds one entry per exogenous-state
	// realisation (same order as ExogRealizations): the row index into
	// StateSpace of the corresponding child state, or -1 if infeasible.
	ChildrenOfStateChoice [][]int

	// MapChildStateToIndex is identical to MapStateToIndex unless
	// proxies exist, in which case a proxied-from state's key resolves
	// to its proxy's index (§4.2 point 5).
	MapChildStateToIndex map[string]int

	// ExogRealizations enumerates the Cartesian product of every
	// ExogenousProcess's States, in the fixed order every
	// ChildrenOfStateChoice row and every TransitionProbs result uses.
	ExogRealizations [][]int

	// Batches partitions every period's state-choice ids (§4.2 point 6).
	Batches []Batch
}

// TransitionProbs returns the probability of each entry of ExogRealizations
// conditional on state, assuming independence across exogenous processes:
// the reference model's own example (a single ltc process) never needs
// more, and independence is the natural default absent a joint-transition
// callback in the options schema.
func (s *Space) TransitionProbs(state State, p params.Params) []float64 {
	n := len(s.Options.ExogenousProcesses)
	if n == 0 {
		return []float64{1}
	}
	marginals := make([][]float64, n)
	for i, proc := range s.Options.ExogenousProcesses {
		marginals[i] = proc.Transition(state, p)
	}
	out := make([]float64, len(s.ExogRealizations))
	for r, real := range s.ExogRealizations {
		prob := 1.0
		for i, proc := range s.Options.ExogenousProcesses {
			idx := indexOf(proc.States, real[i])
			prob *= marginals[i][idx]
		}
		out[r] = prob
	}
	return out
}

func indexOf(xs []int, v int) int {
	for i, x := range xs {
		if x == v {
			return i
		}
	}
	return -1
}

func validateOptions(o Options) error {
	if o.NPeriods < 2 {
		return fmt.Errorf("validate: n_periods must be >= 2, got %d: %w",
			o.NPeriods, dcerr.ErrConfiguration)
	}
	if len(o.Choices) == 0 {
		return fmt.Errorf("validate: choices must be non-empty: %w", dcerr.ErrConfiguration)
	}
	if len(o.EndogenousStates) > 0 && o.NextState == nil {
		return fmt.Errorf(
			"validate: endogenous_states is non-empty but NextState is nil: %w",
			dcerr.ErrConfiguration)
	}
	for _, proc := range o.ExogenousProcesses {
		if len(proc.States) == 0 {
			return fmt.Errorf("validate: exogenous process %q has no states: %w",
				proc.Name, dcerr.ErrConfiguration)
		}
		if proc.Transition == nil {
			return fmt.Errorf("validate: exogenous process %q has no transition callback: %w",
				proc.Name, dcerr.ErrConfiguration)
		}
	}
	return nil
}

// cartesianInt returns the Cartesian product of xs, each resulting
// combination having len(xs) entries in the same order as xs.
func cartesianInt(xs [][]int) [][]int {
	if len(xs) == 0 {
		return [][]int{{}}
	}
	rest := cartesianInt(xs[1:])
	out := make([][]int, 0, len(xs[0])*len(rest))
	for _, v := range xs[0] {
		for _, r := range rest {
			combo := make([]int, 0, 1+len(r))
			combo = append(combo, v)
			combo = append(combo, r...)
			out = append(out, combo)
		}
	}
	return out
}

// Build enumerates the full discrete state space described by o,
// applies the sparsity condition and proxy rewriting, assembles the
// state-choice space and child-state mapping, and partitions each
// period's state-choices into batches. Build returns a
// dcerr.ErrConfiguration-wrapped error for a malformed Options and for
// inconsistent proxy rewriting (a state that is both valid and proxied,
// or a proxy target that is not a valid state). A child state that does
// not resolve is recorded as -1, not reported as an error.
func Build(o Options) (*Space, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}

	endogDomains := make([][]int, len(o.EndogenousStates))
	for i, e := range o.EndogenousStates {
		endogDomains[i] = e.Values
	}
	exogDomains := make([][]int, len(o.ExogenousProcesses))
	for i, e := range o.ExogenousProcesses {
		exogDomains[i] = e.States
	}
	endogCombos := cartesianInt(endogDomains)
	exogCombos := cartesianInt(exogDomains)

	sp := &Space{
		Options:          o,
		MapStateToIndex:  make(map[string]int),
		ExogRealizations: exogCombos,
	}

	type proxyEdge struct {
		from State
		to   State
	}
	var proxies []proxyEdge

	for period := 0; period < o.NPeriods; period++ {
		for _, lagged := range o.Choices {
			for _, endog := range endogCombos {
				for _, exog := range exogCombos {
					state := make(State, 0, 2+len(endog)+len(exog))
					state = append(state, period, lagged)
					state = append(state, endog...)
					state = append(state, exog...)

					valid := true
					var proxy State
					hasProxy := false
					if o.SparsityCondition != nil {
						valid, proxy, hasProxy = o.SparsityCondition(state)
					}

					if valid {
						idx := len(sp.StateSpace)
						sp.StateSpace = append(sp.StateSpace, []int(state))
						sp.MapStateToIndex[state.key()] = idx
						continue
					}
					if hasProxy {
						proxies = append(proxies, proxyEdge{from: state, to: proxy})
					}
				}
			}
		}
	}

	sp.MapChildStateToIndex = make(map[string]int, len(sp.MapStateToIndex))
	for k, v := range sp.MapStateToIndex {
		sp.MapChildStateToIndex[k] = v
	}
	for _, e := range proxies {
		if _, ok := sp.MapStateToIndex[e.from.key()]; ok {
			return nil, fmt.Errorf(
				"build: state %v is both valid and proxied: %w", e.from, dcerr.ErrConfiguration)
		}
		target, ok := sp.MapStateToIndex[e.to.key()]
		if !ok {
			return nil, fmt.Errorf(
				"build: proxy target %v for state %v is not a valid state: %w",
				e.to, e.from, dcerr.ErrConfiguration)
		}
		sp.MapChildStateToIndex[e.from.key()] = target
	}

	for si, row := range sp.StateSpace {
		state := State(row)
		choices := o.Choices
		if o.FeasibleChoiceSet != nil {
			choices = o.FeasibleChoiceSet(state)
		}
		for _, choice := range choices {
			sp.StateChoiceSpace = append(sp.StateChoiceSpace, StateChoice{State: state, Choice: choice})
			sp.ParentOfStateChoice = append(sp.ParentOfStateChoice, si)

			children := make([]int, len(exogCombos))
			endog := state[2 : 2+len(endogDomains)]
			for ri, real := range exogCombos {
				var nextEndog []int
				if o.NextState != nil {
					nextEndog = o.NextState(state, choice, real)
				} else {
					nextEndog = append([]int(nil), endog...)
				}
				child := make(State, 0, 2+len(nextEndog)+len(real))
				child = append(child, state.Period()+1, choice)
				child = append(child, nextEndog...)
				child = append(child, real...)

				if idx, ok := sp.MapChildStateToIndex[child.key()]; ok {
					children[ri] = idx
				} else {
					children[ri] = -1
				}
			}
			sp.ChildrenOfStateChoice = append(sp.ChildrenOfStateChoice, children)
		}
	}

	sp.Batches = buildBatches(sp)
	return sp, nil
}
