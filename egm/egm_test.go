package egm

import (
	"math"
	"testing"

	"github.com/samuelfneumann/dcegm/model"
	"github.com/samuelfneumann/dcegm/params"
	"github.com/samuelfneumann/dcegm/statespace"
	"github.com/stretchr/testify/require"
)

func crraModel(t *testing.T, rho float64) *model.Model {
	t.Helper()
	p, err := params.NewBuilder().
		Set(params.Beta, 0.95).
		Set(params.InterestRate, 0.02).
		Set(params.Lambda, 0).
		Set(params.Sigma, 0).
		Build()
	require.NoError(t, err)

	cb := model.Callbacks{
		Utility: func(c float64, _ statespace.State, _ int) float64 {
			return math.Pow(c, 1-rho) / (1 - rho)
		},
		MarginalUtility: func(c float64, _ statespace.State, _ int) float64 {
			return math.Pow(c, -rho)
		},
		InverseMarginalUtility: func(mu float64, _ statespace.State, _ int) float64 {
			return math.Pow(mu, -1/rho)
		},
		Budget: func(_ statespace.State, _ int, savings, shock float64, p params.Params) float64 {
			return (1+p.Interest())*savings + shock
		},
		FinalPeriod: func(_ statespace.State, _ int, resources float64, p params.Params) (float64, float64) {
			return math.Pow(resources, -rho), math.Pow(resources, 1-rho) / (1 - rho)
		},
	}
	m, err := model.New(cb, p)
	require.NoError(t, err)
	return m
}

// TestSolve_ProducesStrictlyIncreasingEndogenousGrid feeds Solve the
// marginal utility and utility of consuming (1+r)*a next period and
// checks that the endogenous grid is strictly increasing, the policy is
// non-negative, and ExpectedValueZero is passed through unchanged.
func TestSolve_ProducesStrictlyIncreasingEndogenousGrid(t *testing.T) {
	m := crraModel(t, 0.5)
	state := statespace.State{0, 1}
	savingsGrid := []float64{0, 1, 2, 5, 10}

	mu := make([]float64, len(savingsGrid))
	w := make([]float64, len(savingsGrid))
	for i, a := range savingsGrid {
		next := (1.02) * a
		mu[i] = m.MarginalUtility(next, state, 1)
		w[i] = m.Utility(next, state, 1)
	}

	raw, err := Solve(m, state, 1, savingsGrid, mu, w, w[0], 0.95, 0.02)
	require.NoError(t, err)

	for i := 1; i < raw.EndogenousGrid.Len(); i++ {
		require.Greater(t, raw.EndogenousGrid.AtVec(i), raw.EndogenousGrid.AtVec(i-1))
		require.GreaterOrEqual(t, raw.Policy.AtVec(i), 0.0)
	}
	require.InDelta(t, w[0], raw.ExpectedValueZero, 1e-12)
}

func TestSolve_RejectsMismatchedLengths(t *testing.T) {
	m := crraModel(t, 0.5)
	state := statespace.State{0, 1}
	_, err := Solve(m, state, 1, []float64{1, 2}, []float64{1}, []float64{1, 2}, 0, 0.95, 0.02)
	require.Error(t, err)
}
