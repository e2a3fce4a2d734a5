package interp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func crraUtility(rho float64) UtilityFunc {
	return func(c float64) float64 {
		if c <= 0 {
			return math.Inf(-1)
		}
		return math.Pow(c, 1-rho) / (1 - rho)
	}
}

func vec(xs ...float64) *mat.VecDense {
	return mat.NewVecDense(len(xs), xs)
}

func straightLine() Curve {
	return Curve{
		X:      vec(0, 1, 2, 3),
		Policy: vec(0, 1, 2, 3),
		Value:  vec(0, 2, 4, 6),
	}
}

func TestEval1D_ExactGridPoints(t *testing.T) {
	c := straightLine()
	beta := 0.95
	utility := crraUtility(0.5)
	for i := 0; i < c.X.Len(); i++ {
		p, v := Eval1D(c, c.X.AtVec(i), beta, utility)
		require.InDelta(t, c.Policy.AtVec(i), p, 1e-12)
		if i == 0 {
			// w <= X[0] takes the analytic credit-constrained branch.
			require.Equal(t, utility(c.X.AtVec(0))+beta*c.Value.AtVec(0), v)
			continue
		}
		require.InDelta(t, c.Value.AtVec(i), v, 1e-12)
	}
}

func TestEval1D_Interior(t *testing.T) {
	c := straightLine()
	p, v := Eval1D(c, 1.5, 0.95, crraUtility(0.5))
	require.InDelta(t, 1.5, p, 1e-12)
	require.InDelta(t, 3.0, v, 1e-12)
}

func TestEval1D_BelowFirstPointUsesAnalyticBranch(t *testing.T) {
	c := Curve{X: vec(5, 10), Policy: vec(5, 10), Value: vec(1, 2)}
	beta := 0.9
	utility := crraUtility(0.5)
	p, v := Eval1D(c, 3, beta, utility)
	require.InDelta(t, 3.0, p, 1e-12)
	require.InDelta(t, utility(3)+beta*c.Value.AtVec(0), v, 1e-12)
}

func TestEval1D_AboveLastPointExtrapolatesLinearly(t *testing.T) {
	c := straightLine()
	p, v := Eval1D(c, 4, 0.95, crraUtility(0.5))
	require.InDelta(t, 4.0, p, 1e-12)
	require.InDelta(t, 8.0, v, 1e-12)
}

func TestEvalMU_InteriorInterpolatesLinearly(t *testing.T) {
	c := straightLine()
	c.MU = vec(4, 3, 2, 1)
	got := EvalMU(c, 1.5, func(w float64) float64 { return 1 / w })
	require.InDelta(t, 2.5, got, 1e-12)
}

func TestEvalMU_BelowFirstPointUsesMarginalUtilityOfWealth(t *testing.T) {
	c := Curve{X: vec(5, 10), MU: vec(0.2, 0.1)}
	got := EvalMU(c, 3, func(w float64) float64 { return 1 / w })
	require.InDelta(t, 1.0/3.0, got, 1e-12)
}

func TestEval2D_BlendsBracketingNodes(t *testing.T) {
	lo := straightLine()
	hi := Curve{X: vec(0, 1, 2, 3), Policy: vec(0, 2, 4, 6), Value: vec(0, 4, 8, 12)}
	s := Surface2D{ZLo: 0, ZHi: 1, CurveLo: lo, CurveHi: hi}

	p, v := Eval2D(s, 0.5, 1.5, 0.95, crraUtility(0.5))
	require.InDelta(t, 2.25, p, 1e-9) // (1.5 + 3.0)/2
	require.InDelta(t, 4.5, v, 1e-9)  // (3.0 + 6.0)/2
}
