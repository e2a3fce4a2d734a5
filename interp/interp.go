// Package interp implements the 1-D and 2-D piecewise-linear
// interpolation kernel of §4.3: evaluating a refined (endogenous grid ->
// policy, value) mapping at an arbitrary query wealth, with analytic
// extrapolation into the credit-constrained region below the grid's
// first point and linear extrapolation above its last valid point.
// Bracket location uses sort.Search, adapted from the teacher's
// intutils.BinarySearch -- a BST unsuited to a sorted-slice lookup -- into
// a bisection appropriate for the dense, sorted grids this solver uses.
package interp

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Curve is a refined, strictly increasing endogenous grid together with
// its policy and value vectors, backed by gonum's mat.VecDense the same
// way the teacher backs every dense per-timestep array (timestep.TimeStep,
// spec.Environment). A nil X is the zero Curve (no valid entries). MU,
// the marginal utility at each grid point, is optional: nil unless the
// caller also needs EvalMU (the driver's aggregation step does).
type Curve struct {
	X      *mat.VecDense
	Policy *mat.VecDense
	Value  *mat.VecDense
	MU     *mat.VecDense
}

// UtilityFunc evaluates flow utility, used to extrapolate analytically
// below Curve.X[0].
type UtilityFunc func(consumption float64) float64

// Eval1D evaluates Curve at wealth w per the 1-D contract of §4.3.
// beta is the discount factor. For w <= X[0] the analytic branch returns
// policy w and value utility(w) + beta*Curve.Value[0], Value[0] being the
// expected continuation value at zero savings by the data model's
// invariant.
func Eval1D(c Curve, w float64, beta float64, utility UtilityFunc) (policy, value float64) {
	if c.X == nil || c.X.Len() == 0 {
		return w, utility(w)
	}
	n := c.X.Len()
	x := c.X.RawVector().Data
	if w <= x[0] {
		return w, utility(w) + beta*c.Value.AtVec(0)
	}
	if n == 1 {
		return w, c.Value.AtVec(0)
	}

	last := n - 1
	if w > x[last] {
		return interpolate(c, x, last-1, last, w)
	}

	// locate i such that X[i-1] <= w < X[i]; sort.Search returns the
	// smallest index for which the predicate holds, or n if w equals
	// the last grid point exactly (no X[i] exceeds it) -- clamp that
	// case back onto the last bracket instead of indexing past the end.
	i := sort.Search(n, func(i int) bool { return x[i] > w })
	if i >= n {
		i = n - 1
	}
	if i <= 0 {
		i = 1
	}
	return interpolate(c, x, i-1, i, w)
}

func interpolate(c Curve, x []float64, lo, hi int, w float64) (policy, value float64) {
	x0, x1 := x[lo], x[hi]
	t := (w - x0) / (x1 - x0)
	policy = c.Policy.AtVec(lo) + t*(c.Policy.AtVec(hi)-c.Policy.AtVec(lo))
	value = c.Value.AtVec(lo) + t*(c.Value.AtVec(hi)-c.Value.AtVec(lo))
	return policy, value
}

// EvalMU evaluates Curve.MU at wealth w using the same bracketing rule as
// Eval1D, since marginal utility is carried on the same endogenous grid.
// Below X[0], consumption equals w exactly (the credit-constrained
// branch), so the analytic value is marginalUtility(w).
func EvalMU(c Curve, w float64, marginalUtility UtilityFunc) float64 {
	if c.X == nil || c.X.Len() == 0 {
		return marginalUtility(w)
	}
	n := c.X.Len()
	x := c.X.RawVector().Data
	if w <= x[0] {
		return marginalUtility(w)
	}
	if n == 1 {
		return c.MU.AtVec(0)
	}
	last := n - 1
	if w > x[last] {
		return interpolateMU(c, x, last-1, last, w)
	}
	i := sort.Search(n, func(i int) bool { return x[i] > w })
	if i >= n {
		i = n - 1
	}
	if i <= 0 {
		i = 1
	}
	return interpolateMU(c, x, i-1, i, w)
}

func interpolateMU(c Curve, x []float64, lo, hi int, w float64) float64 {
	x0, x1 := x[lo], x[hi]
	t := (w - x0) / (x1 - x0)
	return c.MU.AtVec(lo) + t*(c.MU.AtVec(hi)-c.MU.AtVec(lo))
}

// Surface2D bundles the bracketing z-nodes of a secondary continuous
// state with the Curve evaluated at each node, for Eval2D.
type Surface2D struct {
	ZLo, ZHi     float64
	CurveLo, CurveHi Curve
}

// Eval2D evaluates a 2-D interpolation contract (§4.3): the secondary
// continuous state z is bracketed first, each bracketing node's Curve is
// evaluated in wealth via Eval1D, and the two results are linearly
// blended in z.
func Eval2D(s Surface2D, z, w, beta float64, utility UtilityFunc) (policy, value float64) {
	if s.ZHi == s.ZLo {
		return Eval1D(s.CurveLo, w, beta, utility)
	}
	pLo, vLo := Eval1D(s.CurveLo, w, beta, utility)
	pHi, vHi := Eval1D(s.CurveHi, w, beta, utility)
	t := (z - s.ZLo) / (s.ZHi - s.ZLo)
	policy = pLo + t*(pHi-pLo)
	value = vLo + t*(vHi-vLo)
	return policy, value
}
