// Package fues implements the Fast Upper-Envelope Scan of Dobrescu and
// Shanker (§4.6): a single forward pass over a (possibly non-monotone)
// EGM output that removes dominated "secondary kink" segments and
// inserts linear-intersection points where two choice-specific value
// branches cross ("primary kinks"). This package is translated directly
// and closely from dcegm/fast_upper_envelope.py -- the forward/backward
// scan, the fixed-size ring buffer of suboptimal indices, and the
// intersection-insertion decision rule all mirror that file's structure,
// adapted from numba-jitted arithmetic-trick loops (needed there to stay
// inside a jit-compiled function) into plain early-exit Go loops with
// identical first-match semantics.
package fues

import (
	"fmt"
	"math"
	"sort"

	"github.com/samuelfneumann/dcegm/dcerr"
)

const (
	// DefaultJumpThresh is the default choice-jump detection threshold
	// (§4.6).
	DefaultJumpThresh = 2.0

	// eps guards gradient denominators against division by zero (§4.6).
	eps = 1e-16

	nPointsToScan = 10
)

// Refined is the scan's output: parallel arrays in non-decreasing x
// order. An x value repeats only where a primary-kink intersection is
// emitted twice, once with the left-branch policy and once with the
// right-branch policy. Callers that need a fixed-width, NaN-padded array (§3 data
// model) copy these into their own buffer and pad the remainder.
type Refined struct {
	EndogenousGrid []float64
	Policy         []float64
	Value          []float64
}

// ComputeValueFunc evaluates the agent's value at a point in the
// credit-constrained region, consuming all resources: utility(x) +
// beta*expectedValueZero, pre-bound to a single (state, choice).
type ComputeValueFunc func(x float64) float64

// Refine runs the full scan (§4.6): it augments the grid to the left
// when the raw grid dips below its first point, prepends the zero-savings
// point (x=0, policy 0, value expectedValueZero) unless the input already
// holds that exact point, stable-sorts by endogenous grid, and scans; with
// fewer than three points after that, the sorted points are returned
// unscanned. endogGrid, policy, and value must have equal, non-zero length.
func Refine(endogGrid, policy, value []float64, expectedValueZero float64, computeValue ComputeValueFunc) (Refined, error) {
	return RefineWithThresh(endogGrid, policy, value, expectedValueZero, computeValue, DefaultJumpThresh)
}

// RefineWithThresh is Refine with an explicit jump_thresh, exposed for
// testing the decision rule's sensitivity.
func RefineWithThresh(endogGrid, policy, value []float64, expectedValueZero float64, computeValue ComputeValueFunc, jumpThresh float64) (Refined, error) {
	n := len(endogGrid)
	if n == 0 || len(policy) != n || len(value) != n {
		return Refined{}, fmt.Errorf("refine: mismatched or empty input arrays: %w", dcerr.ErrInvariant)
	}

	minWealth := endogGrid[0]
	for _, x := range endogGrid {
		if x < minWealth {
			minWealth = x
		}
	}

	grid, pol, val := endogGrid, policy, value
	if endogGrid[0] > minWealth {
		grid, val, pol = augmentGrids(endogGrid, value, policy, expectedValueZero, len(endogGrid)/10, computeValue)
	}

	// An already-refined input carries the zero-savings point; prepending
	// it again would duplicate x=0.
	hasZeroPoint := false
	for i := range grid {
		if grid[i] == 0 && pol[i] == 0 && val[i] == expectedValueZero {
			hasZeroPoint = true
			break
		}
	}
	if !hasZeroPoint {
		grid = append([]float64{0}, grid...)
		pol = append([]float64{0}, pol...)
		val = append([]float64{expectedValueZero}, val...)
	}

	idx := make([]int, len(grid))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return grid[idx[a]] < grid[idx[b]] })

	sortedGrid := permute(grid, idx)
	sortedPol := permute(pol, idx)
	sortedVal := permute(val, idx)
	if len(sortedGrid) < 3 {
		return Refined{EndogenousGrid: sortedGrid, Policy: sortedPol, Value: sortedVal}, nil
	}

	eg, p, v := scanValueFunction(sortedGrid, sortedVal, sortedPol, jumpThresh, nPointsToScan)
	return Refined{EndogenousGrid: eg, Policy: p, Value: v}, nil
}

func permute(xs []float64, idx []int) []float64 {
	out := make([]float64, len(xs))
	for i, j := range idx {
		out[i] = xs[j]
	}
	return out
}

// augmentGrids extends endogGrid, value, and policy to the left with
// pointsToAdd-1 equally spaced points from minWealth up to, but not
// including, endogGrid[0] (none when pointsToAdd < 2), valued analytically by computeValue and consuming all resources (§4.6
// pre-processing).
func augmentGrids(endogGrid, value, policy []float64, expectedValueZero float64, pointsToAdd int, computeValue ComputeValueFunc) (grid, val, pol []float64) {
	minWealth := endogGrid[0]
	for _, x := range endogGrid {
		if x < minWealth {
			minWealth = x
		}
	}
	if pointsToAdd < 2 {
		return append([]float64(nil), endogGrid...), append([]float64(nil), value...), append([]float64(nil), policy...)
	}

	added := linspace(minWealth, endogGrid[0], pointsToAdd)
	added = added[:len(added)-1] // drop the last point: it duplicates endogGrid[0].

	grid = append(append([]float64(nil), added...), endogGrid...)
	pol = append(append([]float64(nil), added...), policy...)

	addedVal := make([]float64, len(added))
	for i, x := range added {
		addedVal[i] = computeValue(x)
	}
	val = append(addedVal, value...)
	return grid, val, pol
}

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = lo
		return out
	}
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + step*float64(i)
	}
	return out
}

// scanValueFunction is the single forward pass of §4.6: it walks
// endogGrid/value/policy once, dropping dominated points and inserting
// intersection points at primary kinks.
func scanValueFunction(endogGrid, value, policy []float64, jumpThresh float64, scanWidth int) (eg, pol, val []float64) {
	n := len(endogGrid)
	exogGrid := make([]float64, n)
	for i := range exogGrid {
		exogGrid[i] = endogGrid[i] - policy[i]
	}

	eg = []float64{endogGrid[0], endogGrid[1]}
	pol = []float64{policy[0], policy[1]}
	val = []float64{value[0], value[1]}

	suboptimal := make([]int, scanWidth) // ring buffer, FIFO, oldest-first; seeded at index 0 like the reference.

	valueJ, gridJ, policyJ := value[1], endogGrid[1], policy[1]
	exogJ := gridJ - policyJ

	valueK, gridK, policyK := value[0], endogGrid[0], policy[0]
	exogK := gridK - policyK

	for i := 1; i <= n-3; i++ {
		gradBefore := (valueJ - valueK) / math.Max(gridJ-gridK, eps)
		gradNext := (value[i+1] - valueJ) / math.Max(endogGrid[i+1]-gridJ, eps)
		switchValue := math.Abs((exogGrid[i+1]-exogJ)/math.Max(endogGrid[i+1]-gridJ, eps)) > jumpThresh

		gradForward, idxForward, _ := forwardScan(value, endogGrid, exogGrid, jumpThresh, gridJ, exogJ, i+1, scanWidth)
		gradBackward, idxBackwardPos := backwardScan(value, endogGrid, exogGrid, suboptimal, jumpThresh, gridJ, valueJ, i+1)
		idxBackward := suboptimal[idxBackwardPos]

		switch {
		case value[i+1] < valueJ || exogGrid[i+1] < exogJ || (switchValue && gradNext < gradForward):
			suboptimal = appendRing(suboptimal, i+1)

		case !switchValue:
			eg = append(eg, endogGrid[i+1])
			pol = append(pol, policy[i+1])
			val = append(val, value[i+1])

			valueK, gridK, exogK, policyK = valueJ, gridJ, exogJ, policyJ
			valueJ, gridJ, policyJ = value[i+1], endogGrid[i+1], policy[i+1]
			exogJ = gridJ - policyJ

		case gradBefore > gradNext || gradNext < gradBackward:
			ix, iv := linearIntersection(endogGrid[idxForward], value[idxForward], gridJ, valueJ,
				endogGrid[i+1], value[i+1], endogGrid[idxBackward], value[idxBackward])
			left := evaluateOnLine(endogGrid[idxForward], policy[idxForward], gridJ, policyJ, ix)
			right := evaluateOnLine(endogGrid[i+1], policy[i+1], endogGrid[idxBackward], policy[idxBackward], ix)

			eg = append(eg, ix, ix, endogGrid[i+1])
			pol = append(pol, left, right, policy[i+1])
			val = append(val, iv, iv, value[i+1])

			valueK, gridK, exogK, policyK = valueJ, gridJ, exogJ, policyJ
			valueJ, gridJ, policyJ = value[i+1], endogGrid[i+1], policy[i+1]
			exogJ = gridJ - policyJ

		case gradNext == gradBackward:
			// Exact gradient tie between the ends-kink and continues-kink
			// rules: treat as non-kink, same as the !switchValue branch
			// above (§4.6 tie-break).
			eg = append(eg, endogGrid[i+1])
			pol = append(pol, policy[i+1])
			val = append(val, value[i+1])

			valueK, gridK, exogK, policyK = valueJ, gridJ, exogJ, policyJ
			valueJ, gridJ, policyJ = value[i+1], endogGrid[i+1], policy[i+1]
			exogJ = gridJ - policyJ

		default: // gradNext > gradBackward
			ix, iv := linearIntersection(gridJ, valueJ, gridK, valueK,
				endogGrid[i+1], value[i+1], endogGrid[idxBackward], value[idxBackward])
			left := evaluateOnLine(gridK, policyK, gridJ, policyJ, ix)
			right := evaluateOnLine(endogGrid[i+1], policy[i+1], endogGrid[idxBackward], policy[idxBackward], ix)

			last := len(eg) - 1
			eg[last], pol[last], val[last] = ix, left, iv
			eg = append(eg, ix, endogGrid[i+1])
			pol = append(pol, right, policy[i+1])
			val = append(val, iv, value[i+1])

			valueJ, gridJ, policyJ = iv, ix, right
			exogJ = gridJ - policyJ
		}
	}

	eg = append(eg, endogGrid[n-1])
	pol = append(pol, policy[n-1])
	val = append(val, value[n-1])
	_ = exogK
	return eg, pol, val
}

// forwardScan looks up to n points past idxNext for the first index on
// the same branch as (endogGridCurrent, exogGridCurrent). It returns the
// gradient to idxNext from that point, the point's index, and whether one
// was found. Faithful to _forward_scan's first-match semantics (the
// reference's arithmetic trick is an artifact of numba jit compilation,
// not a different decision rule -- see this package's doc comment).
func forwardScan(value, endogGrid, exogGrid []float64, jumpThresh, endogGridCurrent, exogGridCurrent float64, idxNext, n int) (grad float64, idx int, found bool) {
	idxMax := len(exogGrid) - 1
	for i := 1; i <= n; i++ {
		idxToCheck := idxNext + i
		if idxToCheck > idxMax {
			idxToCheck = idxMax
		}
		if endogGridCurrent < endogGrid[idxToCheck] {
			onSameValue := math.Abs((exogGridCurrent-exogGrid[idxToCheck])/(endogGridCurrent-endogGrid[idxToCheck])) < jumpThresh
			if onSameValue {
				return (value[idxNext] - value[idxToCheck]) / (endogGrid[idxNext] - endogGrid[idxToCheck]), idxToCheck, true
			}
		}
	}
	return 0, 0, false
}

// backwardScan iterates the ring buffer from newest to oldest, returning
// the gradient to idxNext from the first same-branch point found, and its
// position within suboptimal (§4.6).
func backwardScan(value, endogGrid, exogGrid []float64, suboptimal []int, jumpThresh, endogGridCurrent, valueCurrent float64, idxNext int) (grad float64, pos int) {
	for i := len(suboptimal) - 1; i >= 0; i-- {
		idxToCheck := suboptimal[i]
		if endogGridCurrent > endogGrid[idxToCheck] {
			onSameValue := math.Abs((exogGrid[idxNext]-exogGrid[idxToCheck])/(endogGrid[idxNext]-endogGrid[idxToCheck])) < jumpThresh
			if onSameValue {
				return (valueCurrent - value[idxToCheck]) / (endogGridCurrent - endogGrid[idxToCheck]), i
			}
		}
	}
	return 0, 0
}

// appendRing shifts the ring buffer left and appends m, matching
// _append_index's fixed-size FIFO semantics.
func appendRing(buf []int, m int) []int {
	copy(buf, buf[1:])
	buf[len(buf)-1] = m
	return buf
}

func evaluateOnLine(x1, y1, x2, y2, x float64) float64 {
	return (y2-y1)/(x2-x1)*(x-x1) + y1
}

func linearIntersection(x1, y1, x2, y2, x3, y3, x4, y4 float64) (x, y float64) {
	slope1 := (y2 - y1) / (x2 - x1)
	slope2 := (y4 - y3) / (x4 - x3)
	x = (slope1*x1 - slope2*x3 + y3 - y1) / (slope1 - slope2)
	y = slope1*(x-x1) + y1
	return x, y
}
