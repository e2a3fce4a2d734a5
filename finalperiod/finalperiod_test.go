package finalperiod

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
		Utility:                func(c float64, _ statespace.State, _ int) float64 { return math.Pow(c, 1-rho) / (1 - rho) },
		MarginalUtility:        func(c float64, _ statespace.State, _ int) float64 { return math.Pow(c, -rho) },
		InverseMarginalUtility: func(mu float64, _ statespace.State, _ int) float64 { return math.Pow(mu, -1/rho) },
		Budget: func(_ statespace.State, _ int, savings, shock float64, p params.Params) float64 {
			return (1+p.Interest())*savings + shock
		},
		FinalPeriod: func(_ statespace.State, _ int, resources float64, _ params.Params) (float64, float64) {
			return math.Pow(resources, -rho), math.Pow(resources, 1-rho) / (1 - rho)
		},
	}
	m, err := model.New(cb, p)
	require.NoError(t, err)
	return m
}

func TestSolve_EvaluatesEveryGridCombination(t *testing.T) {
	m := crraModel(t, 0.5)
	state := statespace.State{1, 0}
	savingsGrid := []float64{0, 1, 2}
	shockGrid := []float64{0.9, 1.0, 1.1}

	sol, err := Solve(m, state, 0, savingsGrid, shockGrid)
	require.NoError(t, err)

	for i, a := range savingsGrid {
		for j, shock := range shockGrid {
			resources := (1.02)*a + shock
			wantV := math.Pow(resources, 0.5) / 0.5
			require.InDelta(t, wantV, sol.Value.At(i, j), 1e-9)
		}
	}
}

func TestSolve_RejectsEmptyGrid(t *testing.T) {
	m := crraModel(t, 0.5)
	state := statespace.State{1, 0}
	_, err := Solve(m, state, 0, nil, []float64{1})
	require.Error(t, err)
}

func TestMiddleOfDraws_OddCount(t *testing.T) {
	require.Equal(t, 3, MiddleOfDraws(5))
	require.Equal(t, 1, MiddleOfDraws(1))
}
