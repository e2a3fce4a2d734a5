package fues

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func noopComputeValue(x float64) float64 { return x }

// TestRefine_NoKinkCase covers property 7: when the raw grid is already
// strictly increasing with no choice-jump anywhere, the output is the
// sorted input with zero prepended.
func TestRefine_NoKinkCase(t *testing.T) {
	endogGrid := []float64{1, 2, 3, 4, 5}
	policy := []float64{0.5, 1, 1.5, 2, 2.5}
	value := []float64{1, 2, 3, 4, 5}

	out, err := Refine(endogGrid, policy, value, 0, noopComputeValue)
	require.NoError(t, err)

	require.Equal(t, []float64{0, 1, 2, 3, 4, 5}, out.EndogenousGrid)
	for i := 1; i < len(out.EndogenousGrid); i++ {
		require.Greater(t, out.EndogenousGrid[i], out.EndogenousGrid[i-1])
	}
}

// TestRefine_MonotoneInputKeepsAllPoints covers property 8.
func TestRefine_MonotoneInputKeepsAllPoints(t *testing.T) {
	endogGrid := []float64{1, 2, 3, 4, 5, 6}
	value := []float64{1, 1.9, 2.7, 3.4, 4.0, 4.5} // concave, gradients non-increasing
	policy := []float64{0.2, 0.5, 0.9, 1.4, 2.0, 2.7}

	out, err := Refine(endogGrid, policy, value, 0, noopComputeValue)
	require.NoError(t, err)
	require.Equal(t, len(endogGrid)+1, len(out.EndogenousGrid))
}

// TestRefine_Idempotent covers property 6: refining an already-refined
// output leaves it unchanged.
func TestRefine_Idempotent(t *testing.T) {
	endogGrid := []float64{1, 2, 3, 4, 5}
	policy := []float64{0.5, 1, 1.5, 2, 2.5}
	value := []float64{1, 2, 3, 4, 5}

	once, err := Refine(endogGrid, policy, value, 0, noopComputeValue)
	require.NoError(t, err)

	twice, err := Refine(once.EndogenousGrid, once.Policy, once.Value, 0, noopComputeValue)
	require.NoError(t, err)

	require.InDeltaSlice(t, once.EndogenousGrid, twice.EndogenousGrid, 1e-9)
	require.InDeltaSlice(t, once.Value, twice.Value, 1e-9)
}

// TestRefine_SecondaryKinkInsertsTwoIntersectionPoints covers scenario S4:
// a raw EGM output with a known secondary kink (the value dips then
// recovers onto a second, steeper branch) must yield exactly two
// coincident-x intersection points and drop the dominated interior point.
func TestRefine_SecondaryKinkInsertsTwoIntersectionPoints(t *testing.T) {
	// Two branches crossing at (8, 8): branch A saves nothing (policy ==
	// x) with value x, at x = 2, 6, 9; branch B saves 5 (policy == x-5)
	// with value 2x-8, at x = 6.5, 10, 12, 14. B lies below A at 6.5 and
	// A lies below B at 9 -- a textbook primary-kink-producing crossing.
	endogGrid := []float64{2, 6, 6.5, 9, 10, 12, 14}
	value := []float64{2, 6, 5, 9, 12, 16, 20}
	policy := []float64{2, 6, 1.5, 9, 5, 7, 9}

	out, err := RefineWithThresh(endogGrid, policy, value, 0, noopComputeValue, 2)
	require.NoError(t, err)

	for i := 1; i < len(out.EndogenousGrid); i++ {
		require.GreaterOrEqual(t, out.EndogenousGrid[i], out.EndogenousGrid[i-1])
	}

	dupX := 0
	for i := 1; i < len(out.EndogenousGrid); i++ {
		if out.EndogenousGrid[i] == out.EndogenousGrid[i-1] {
			dupX++
		}
	}
	require.GreaterOrEqual(t, dupX, 1, "expected at least one coincident-x intersection pair")
}

// TestScanValueFunction_EqualGradientsTreatedAsNonKink covers the §4.6
// tie-break: when the gradient to the next point exactly equals the
// gradient to the best backward candidate, the point must be accepted as-is (same outcome
// as the monotone branch), not treated as a primary kink that overwrites
// the previously emitted point.
func TestScanValueFunction_EqualGradientsTreatedAsNonKink(t *testing.T) {
	endogGrid := []float64{0, 1, 2, 3}
	value := []float64{0, 1, 2, 3}
	policy := []float64{0, 11, 1.5, 3}

	eg, pol, val := scanValueFunction(endogGrid, value, policy, 2, nPointsToScan)

	require.Equal(t, endogGrid, eg)
	require.Equal(t, policy, pol)
	require.Equal(t, value, val)
}

func TestRefine_RejectsMismatchedLengths(t *testing.T) {
	_, err := Refine([]float64{1, 2}, []float64{1}, []float64{1, 2}, 0, noopComputeValue)
	require.Error(t, err)
}
