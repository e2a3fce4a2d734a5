// Package finalperiod implements the closed-form terminal solution of
// §4.7: at t=T, consumption equals all available resources (or a
// bequest target), evaluated pointwise on the Cartesian product of the
// savings grid and the shock grid. These seed the continuation arrays
// backward induction starts from. Grounded on dcegm/final_period.py.
package finalperiod

import (
	"fmt"

	"github.com/samuelfneumann/dcegm/dcerr"
	"github.com/samuelfneumann/dcegm/model"
	"github.com/samuelfneumann/dcegm/statespace"
	"gonum.org/v1/gonum/mat"
)

// Solution holds the terminal-period marginal utility and value,
// pointwise on savingsGrid x shockGrid, for one (state, choice). Both
// are indexed [savingsIdx][shockIdx], backed by gonum's dense matrix
// type the same way the teacher backs every comparable table (e.g.
// timestep.TimeStep, spec.Environment).
type Solution struct {
	MarginalUtility *mat.Dense
	Value           *mat.Dense
}

// Solve evaluates the bound final-period callback at every combination
// of the savings grid and shock grid, where resources at (savings index
// i, shock index j) is budget(state, choice, savingsGrid[i], shockGrid[j]).
func Solve(m *model.Model, state statespace.State, choice int, savingsGrid, shockGrid []float64) (Solution, error) {
	if len(savingsGrid) == 0 || len(shockGrid) == 0 {
		return Solution{}, fmt.Errorf("solve: empty savings or shock grid: %w", dcerr.ErrInvariant)
	}

	sol := Solution{
		MarginalUtility: mat.NewDense(len(savingsGrid), len(shockGrid), nil),
		Value:           mat.NewDense(len(savingsGrid), len(shockGrid), nil),
	}

	for i, a := range savingsGrid {
		for j, shock := range shockGrid {
			resources := m.Budget(state, choice, a, shock)
			mu, v := m.FinalPeriod(state, choice, resources)
			sol.MarginalUtility.Set(i, j, mu)
			sol.Value.Set(i, j, v)
		}
	}
	return sol, nil
}

// MiddleOfDraws returns (numDraws+1)/2 (§9 Open Question 3). For an odd
// numDraws this is the 1-based position of the central shock draw; the
// 0-based central index is one less, so MiddleOfDraws(5) == 3 and
// MiddleOfDraws(1) == 1. No code in this module calls it.
//
// FIXME: the reference implementation computes
// `middle_of_draws = int(value.shape[2] + 1 / 2)`, which -- by Python
// operator precedence -- evaluates to `shape[2] + 0`, i.e. shape[2]
// itself, one past the last valid shock index. The evidently intended
// expression is `(shape[2] + 1) // 2`; that is what this function
// computes.
// This is flagged rather than silently resolved because the reference
// behavior may have been relied upon elsewhere.
func MiddleOfDraws(numDraws int) int {
	return (numDraws + 1) / 2
}
