// Package aggregate implements the discrete-choice logit aggregation
// kernel of §4.4: log-sum expected value, choice probabilities, and
// choice-probability-weighted marginal utility, all NaN-aware so an
// infeasible choice (represented as NaN rather than silently masked, per
// §7 and §9 DESIGN NOTES' "NaN-aware reductions are mandatory") never
// contaminates a feasible one. The column-wise max/sum pattern is
// grounded on buffer/gae's gonum floats/stat usage; the softmax-style
// weighting generalizes the teacher's
// agent/linear/discrete/policy.EGreedy.ActionProbabilities from
// epsilon-greedy exploration to a Gumbel/logit taste-shock model.
package aggregate

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/dcegm/dcerr"
)

// nanMax returns the maximum of xs, ignoring NaN entries, and whether any
// finite entry was found. gonum's floats.Max is not NaN-aware (a single
// NaN entry would poison the result), so this package implements its own
// reduction, per §7.
func nanMax(xs []float64) (max float64, ok bool) {
	max = math.Inf(-1)
	for _, x := range xs {
		if math.IsNaN(x) {
			continue
		}
		ok = true
		if x > max {
			max = x
		}
	}
	return max, ok
}

// Result holds the aggregated outputs for one parent state at one
// savings-grid point: the log-sum expected value, the per-choice choice
// probabilities (NaN for infeasible choices), and the aggregate marginal
// utility.
type Result struct {
	ExpectedValue     float64
	ChoiceProbability []float64
	MarginalUtility   float64
}

// Column aggregates, for a single parent state and a single savings /
// shock realisation, the choice-specific values V and marginal
// utilities M (§4.4). Infeasible choices must carry NaN in both V and M
// at the corresponding index. lambda is the taste-shock scale; lambda
// == 0 triggers the max/argmax degenerate path to avoid division by
// zero.
func Column(v, m []float64, lambda float64) (Result, error) {
	if len(v) != len(m) {
		return Result{}, fmt.Errorf("column: len(v)=%d != len(m)=%d: %w",
			len(v), len(m), dcerr.ErrInvariant)
	}

	vbar, ok := nanMax(v)
	if !ok {
		return Result{}, fmt.Errorf("column: no feasible choice: %w", dcerr.ErrInvariant)
	}

	if lambda == 0 {
		return degenerate(v, m, vbar)
	}

	e := make([]float64, len(v))
	sum := 0.0
	for c := range v {
		if math.IsNaN(v[c]) {
			e[c] = 0
			continue
		}
		e[c] = math.Exp((v[c] - vbar) / lambda)
		sum += e[c]
	}
	if sum == 0 {
		return Result{}, fmt.Errorf("column: zero choice-probability mass: %w", dcerr.ErrInvariant)
	}

	probs := make([]float64, len(v))
	aggMU := 0.0
	for c := range v {
		if math.IsNaN(v[c]) {
			probs[c] = math.NaN()
			continue
		}
		p := e[c] / sum
		probs[c] = p
		aggMU += p * m[c]
	}

	return Result{
		ExpectedValue:     vbar + lambda*math.Log(sum),
		ChoiceProbability: probs,
		MarginalUtility:   aggMU,
	}, nil
}

// degenerate implements the lambda -> 0 limit: expected value is the
// column max, choice probability is a (possibly ties-split) indicator of
// the maximizing choice(s), and marginal utility is the corresponding
// indicator-weighted average.
func degenerate(v, m []float64, vbar float64) (Result, error) {
	probs := make([]float64, len(v))
	var winners []int
	for c := range v {
		if math.IsNaN(v[c]) {
			probs[c] = math.NaN()
			continue
		}
		if v[c] == vbar {
			winners = append(winners, c)
		}
	}
	if len(winners) == 0 {
		return Result{}, fmt.Errorf("column: no feasible choice at max: %w", dcerr.ErrInvariant)
	}
	share := 1.0 / float64(len(winners))
	aggMU := 0.0
	for _, c := range winners {
		probs[c] = share
		aggMU += share * m[c]
	}
	return Result{ExpectedValue: vbar, ChoiceProbability: probs, MarginalUtility: aggMU}, nil
}
