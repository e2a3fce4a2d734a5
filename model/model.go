// Package model wraps user-supplied model primitives (utility, marginal
// utility and its inverse, budget, final-period solution, and an optional
// continuous-state update) into a fixed-arity calling convention, with
// params partially applied at setup time (§4.1, §9 DESIGN NOTES item 2).
// Transition probabilities and feasible-choice sets live in
// statespace.Options, not here.
// This replaces the reference implementation's variable-keyword-argument
// callbacks, generalizing the teacher's segregated
// Agent/Policy/Learner interfaces into a single struct of function
// values built once by New and never mutated afterward.
package model

import (
	"fmt"

	"github.com/samuelfneumann/dcegm/dcerr"
	"github.com/samuelfneumann/dcegm/params"
	"github.com/samuelfneumann/dcegm/statespace"
)

// UtilityFunc computes per-period flow utility of consumption under a
// discrete state and choice.
type UtilityFunc func(consumption float64, state statespace.State, choice int) float64

// MarginalUtilityFunc computes the first derivative of UtilityFunc with
// respect to consumption.
type MarginalUtilityFunc func(consumption float64, state statespace.State, choice int) float64

// InverseMarginalUtilityFunc inverts MarginalUtilityFunc: given a target
// marginal utility, returns the consumption that attains it.
type InverseMarginalUtilityFunc func(marginalUtility float64, state statespace.State, choice int) float64

// BudgetFunc maps end-of-period savings and a realised income shock to
// beginning-of-next-period wealth. Implementations must return a value
// no smaller than the configured consumption floor.
type BudgetFunc func(state statespace.State, choice int, savings, incomeShock float64, p params.Params) float64

// FinalPeriodFunc solves the terminal period in closed form, returning
// the marginal utility and value at the given resources.
type FinalPeriodFunc func(state statespace.State, choice int, resources float64, p params.Params) (marginalUtility, value float64)

// ContinuousStateUpdateFunc advances a second continuous state (e.g.
// work experience) one period forward. Optional: nil if the model has no
// second continuous state.
type ContinuousStateUpdateFunc func(state statespace.State, choice int, continuousState float64, p params.Params) float64

// Callbacks is the full set of user-supplied model primitives. Every
// field except ContinuousStateUpdate is required; NewModel validates
// this.
type Callbacks struct {
	Utility                UtilityFunc
	MarginalUtility        MarginalUtilityFunc
	InverseMarginalUtility InverseMarginalUtilityFunc
	Budget                 BudgetFunc
	FinalPeriod            FinalPeriodFunc
	ContinuousStateUpdate  ContinuousStateUpdateFunc
}

// Model binds Callbacks to a single, immutable Params value, generated
// once at setup so the hot path (inside the driver's per-state-choice
// workers) pays no indirection beyond a single method call, per §9
// DESIGN NOTES item 2's "builder objects that store params by value"
// resolution of the closures-with-partial-application pattern.
type Model struct {
	callbacks Callbacks
	params    params.Params
}

// New validates cb and binds it to p, returning a Model ready for use by
// egm, fues, finalperiod, and the driver. New returns a
// dcerr.ErrConfiguration-wrapped error if any required callback is nil.
func New(cb Callbacks, p params.Params) (*Model, error) {
	if cb.Utility == nil || cb.MarginalUtility == nil || cb.InverseMarginalUtility == nil ||
		cb.Budget == nil || cb.FinalPeriod == nil {
		return nil, fmt.Errorf("new: one or more required callbacks is nil: %w", dcerr.ErrConfiguration)
	}
	return &Model{callbacks: cb, params: p}, nil
}

// Params returns the Params value this Model was bound to.
func (m *Model) Params() params.Params { return m.params }

// Utility evaluates the bound utility callback.
func (m *Model) Utility(consumption float64, state statespace.State, choice int) float64 {
	return m.callbacks.Utility(consumption, state, choice)
}

// MarginalUtility evaluates the bound marginal-utility callback.
func (m *Model) MarginalUtility(consumption float64, state statespace.State, choice int) float64 {
	return m.callbacks.MarginalUtility(consumption, state, choice)
}

// InverseMarginalUtility evaluates the bound inverse-marginal-utility
// callback.
func (m *Model) InverseMarginalUtility(marginalUtility float64, state statespace.State, choice int) float64 {
	return m.callbacks.InverseMarginalUtility(marginalUtility, state, choice)
}

// Budget evaluates the bound budget callback with this Model's Params.
func (m *Model) Budget(state statespace.State, choice int, savings, incomeShock float64) float64 {
	return m.callbacks.Budget(state, choice, savings, incomeShock, m.params)
}

// FinalPeriod evaluates the bound final-period callback with this
// Model's Params.
func (m *Model) FinalPeriod(state statespace.State, choice int, resources float64) (float64, float64) {
	return m.callbacks.FinalPeriod(state, choice, resources, m.params)
}

// HasContinuousStateUpdate reports whether a second continuous state is
// configured.
func (m *Model) HasContinuousStateUpdate() bool {
	return m.callbacks.ContinuousStateUpdate != nil
}

// ContinuousStateUpdate evaluates the bound continuous-state-update
// callback with this Model's Params. Callers must check
// HasContinuousStateUpdate first.
func (m *Model) ContinuousStateUpdate(state statespace.State, choice int, continuousState float64) float64 {
	return m.callbacks.ContinuousStateUpdate(state, choice, continuousState, m.params)
}
