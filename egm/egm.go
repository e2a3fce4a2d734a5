// Package egm implements the Euler-equation inversion step (§4.5): given
// the aggregated post-decision marginal utility and expected value on a
// fixed exogenous savings grid, it recovers the endogenous wealth grid
// and consumption policy for one (state, choice). Grounded directly on
// dcegm/egm.py's solve_euler_equation and
// compute_optimal_policy_and_value, translated into Go, and on the
// teacher's buffer/gae.Buffer array-assembly style (flat, pre-sized
// result slices filled in a single pass).
package egm

import (
	"fmt"

	"github.com/samuelfneumann/dcegm/dcerr"
	"github.com/samuelfneumann/dcegm/model"
	"github.com/samuelfneumann/dcegm/statespace"
	"gonum.org/v1/gonum/mat"
)

// Raw is the unrefined output of Solve: parallel dense vectors of length
// len(savingsGrid), indexed by savings-grid point, plus the scalar
// expected value at zero savings used by fues to seed the left tail.
// Backed by gonum's mat.VecDense, the teacher's standard dense-1-D-array
// type (e.g. timestep.TimeStep's state/action fields).
type Raw struct {
	EndogenousGrid    *mat.VecDense
	Policy            *mat.VecDense
	Value             *mat.VecDense
	ExpectedValueZero float64
}

// Solve inverts the Euler equation at every point of savingsGrid for one
// (state, choice). mu and w are the aggregated post-decision marginal
// utility and expected value, already computed by the caller (aggregate
// over child choices and shocks, weighted by transition probabilities)
// and aligned index-for-index with savingsGrid. expectedValueZero is
// W(0), the continuation value evaluated at zero end-of-period savings
// under the shock-only distribution (§4.5 step 6).
//
// beta and r are the discount factor and interest rate; r is only used
// for the canonical budget(savings) = (1+r)*savings case -- a model with
// a more general budget function should pre-multiply mu by its own
// marginal wealth term and pass r=0.
func Solve(
	m *model.Model,
	state statespace.State,
	choice int,
	savingsGrid, mu, w []float64,
	expectedValueZero, beta, r float64,
) (Raw, error) {
	n := len(savingsGrid)
	if len(mu) != n || len(w) != n {
		return Raw{}, fmt.Errorf(
			"solve: savingsGrid/mu/w length mismatch (%d/%d/%d): %w",
			n, len(mu), len(w), dcerr.ErrInvariant)
	}

	raw := Raw{
		EndogenousGrid:    mat.NewVecDense(n, nil),
		Policy:            mat.NewVecDense(n, nil),
		Value:             mat.NewVecDense(n, nil),
		ExpectedValueZero: expectedValueZero,
	}

	for a := 0; a < n; a++ {
		rhs := beta * (1 + r) * mu[a]
		c := m.InverseMarginalUtility(rhs, state, choice)
		if c != c { // NaN: propagate, do not error (§7 numerical degeneracy).
			raw.Policy.SetVec(a, c)
			raw.EndogenousGrid.SetVec(a, c)
			raw.Value.SetVec(a, c)
			continue
		}

		raw.Policy.SetVec(a, c)
		raw.EndogenousGrid.SetVec(a, savingsGrid[a]+c)
		raw.Value.SetVec(a, m.Utility(c, state, choice)+beta*w[a])
	}

	return raw, nil
}
