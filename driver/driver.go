// Package driver implements the outermost backward-induction loop of
// §4.8: periods T..0 are solved strictly in reverse order; within a
// period, every batch's state-choices are solved independently and in
// parallel, fanned in with channerics.Merge. Grounded on
// experiment.Online for the run-loop/progress-bar shape, and on
// niceyeti-tabular's goroutine worker-pool + channerics.Merge fan-in
// pattern for the parallel map across state-choice ids -- the teacher
// itself has no parallel numeric core, so this concern is enriched from
// elsewhere in the pack, per the expansion rules.
package driver

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"time"

	"github.com/samuelfneumann/dcegm/aggregate"
	"github.com/samuelfneumann/dcegm/dcerr"
	"github.com/samuelfneumann/dcegm/egm"
	"github.com/samuelfneumann/dcegm/finalperiod"
	"github.com/samuelfneumann/dcegm/fues"
	"github.com/samuelfneumann/dcegm/interp"
	"github.com/samuelfneumann/dcegm/model"
	"github.com/samuelfneumann/dcegm/statespace"
	"github.com/samuelfneumann/progressbar"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	channerics "github.com/niceyeti/channerics/channels"
)

// Config bundles the process-wide grids and tuning knobs the driver
// needs beyond the Space and Model (§6.2 model_params/tuning_params).
type Config struct {
	// SavingsGrid is the exogenous savings grid, shared across every
	// (state, choice). SavingsGrid[0] must be 0 (§3 invariant: value at
	// zero savings is stored in the first slot).
	SavingsGrid []float64

	// ShockGrid and ShockWeights are the income-shock quadrature nodes
	// and weights, aligned index for index.
	ShockGrid    []float64
	ShockWeights []float64

	// InterestRate is r in the canonical budget(savings) = (1+r)*savings
	// case (§4.5 step 2).
	InterestRate float64

	// MaxWorkers bounds concurrent state-choice workers within a batch;
	// <= 0 defaults to runtime.GOMAXPROCS(0) (§5).
	MaxWorkers int

	// Logger receives period-boundary progress messages; nil defaults
	// to log.Default() (§4.0 ambient stack).
	Logger *log.Logger

	// ShowProgress toggles the progressbar.ProgressBar display.
	ShowProgress bool
}

func (c Config) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

func (c Config) maxWorkers() int {
	if c.MaxWorkers > 0 {
		return c.MaxWorkers
	}
	return runtime.GOMAXPROCS(0)
}

// Result is the complete solve output: Curves[period][stateChoiceID]
// holds the refined (endogenous grid, policy, value, marginal utility)
// curve for that state-choice, ready for interpolation by an earlier
// period or for final consumption by the caller.
type Result struct {
	Curves map[int]map[int]interp.Curve
}

type workerOut struct {
	period int
	scID   int
	curve  interp.Curve
	err    error
}

// Solve runs backward induction over every period of sp, returning the
// complete set of refined curves. Cancellation is checked once per
// period boundary (§5); a state-choice worker watches ctx only when
// publishing its result, which is dropped if ctx is already done.
func Solve(ctx context.Context, sp *statespace.Space, m *model.Model, cfg Config) (*Result, error) {
	if len(cfg.SavingsGrid) == 0 || cfg.SavingsGrid[0] != 0 {
		return nil, fmt.Errorf("solve: SavingsGrid must be non-empty with SavingsGrid[0] == 0: %w",
			dcerr.ErrConfiguration)
	}
	if len(cfg.ShockGrid) != len(cfg.ShockWeights) || len(cfg.ShockGrid) == 0 {
		return nil, fmt.Errorf("solve: ShockGrid and ShockWeights must be non-empty and equal length: %w",
			dcerr.ErrConfiguration)
	}

	result := &Result{Curves: make(map[int]map[int]interp.Curve)}
	childChoicesByState := indexChoicesByParent(sp)

	lastPeriod := sp.Options.NPeriods - 1
	pbar := progressbar.New(50, sp.Options.NPeriods, time.Second, cfg.ShowProgress)
	if cfg.ShowProgress {
		pbar.Display()
	}

	batchesByPeriod := make(map[int][]statespace.Batch)
	for _, b := range sp.Batches {
		batchesByPeriod[b.Period] = append(batchesByPeriod[b.Period], b)
	}

	for period := lastPeriod; period >= 0; period-- {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		result.Curves[period] = make(map[int]interp.Curve)
		for _, batch := range batchesByPeriod[period] {
			out, err := solveBatch(ctx, sp, m, cfg, childChoicesByState, result, period, batch)
			if err != nil {
				return nil, err
			}
			for scID, curve := range out {
				result.Curves[period][scID] = curve
			}
		}

		cfg.logger().Printf("driver: solved period %d (%d state-choices)", period, len(result.Curves[period]))
		pbar.Increment()
	}

	return result, nil
}

// solveBatch solves every state-choice in batch concurrently, bounded by
// cfg.maxWorkers(), and fans the results in with channerics.Merge.
func solveBatch(
	ctx context.Context,
	sp *statespace.Space,
	m *model.Model,
	cfg Config,
	childChoicesByState map[int][]int,
	result *Result,
	period int,
	batch statespace.Batch,
) (map[int]interp.Curve, error) {
	done := ctx.Done()
	sem := make(chan struct{}, cfg.maxWorkers())

	workers := make([]<-chan workerOut, 0, len(batch.StateChoiceIDs))
	for _, scID := range batch.StateChoiceIDs {
		scID := scID
		ch := make(chan workerOut, 1)
		workers = append(workers, ch)

		go func() {
			sem <- struct{}{}
			defer func() { <-sem }()

			var curve interp.Curve
			var err error
			if period == sp.Options.NPeriods-1 {
				curve, err = solveFinalPeriod(m, sp, cfg, scID)
			} else {
				curve, err = solveInterior(sp, m, cfg, childChoicesByState, result, period, scID)
			}

			select {
			case ch <- workerOut{period: period, scID: scID, curve: curve, err: err}:
			case <-done:
			}
			close(ch)
		}()
	}

	out := make(map[int]interp.Curve, len(batch.StateChoiceIDs))
	for res := range channerics.Merge(done, workers...) {
		if res.err != nil {
			return nil, res.err
		}
		out[res.scID] = res.curve
	}
	return out, nil
}

func indexChoicesByParent(sp *statespace.Space) map[int][]int {
	idx := make(map[int][]int)
	for scID, parent := range sp.ParentOfStateChoice {
		idx[parent] = append(idx[parent], scID)
	}
	return idx
}

// solveFinalPeriod seeds backward induction from finalperiod.Solve,
// evaluated at the single shock realisation 0 -- the terminal period has
// no continuation, so there is nothing for a richer shock grid to
// integrate over.
func solveFinalPeriod(m *model.Model, sp *statespace.Space, cfg Config, scID int) (interp.Curve, error) {
	sc := sp.StateChoiceSpace[scID]

	sol, err := finalperiod.Solve(m, sc.State, sc.Choice, cfg.SavingsGrid, []float64{0})
	if err != nil {
		return interp.Curve{}, err
	}

	n := len(cfg.SavingsGrid)
	x := make([]float64, n)
	policy := make([]float64, n)
	value := make([]float64, n)
	mu := make([]float64, n)

	for i, a := range cfg.SavingsGrid {
		resources := m.Budget(sc.State, sc.Choice, a, 0)
		x[i] = resources
		policy[i] = resources
		value[i] = sol.Value.At(i, 0)
		mu[i] = sol.MarginalUtility.At(i, 0)
	}
	for i := 1; i < n; i++ {
		if x[i] <= x[i-1] {
			return interp.Curve{}, fmt.Errorf(
				"solveFinalPeriod: state-choice %d budget is not strictly increasing in savings: %w",
				scID, dcerr.ErrInvariant)
		}
	}

	return interp.Curve{
		X:      mat.NewVecDense(n, x),
		Policy: mat.NewVecDense(n, policy),
		Value:  mat.NewVecDense(n, value),
		MU:     mat.NewVecDense(n, mu),
	}, nil
}

func solveInterior(
	sp *statespace.Space,
	m *model.Model,
	cfg Config,
	childChoicesByState map[int][]int,
	result *Result,
	period int,
	scID int,
) (interp.Curve, error) {
	sc := sp.StateChoiceSpace[scID]
	beta := m.Params().BetaValue()
	lambda := m.Params().LambdaValue()

	children := sp.ChildrenOfStateChoice[scID]
	transProbs := sp.TransitionProbs(sc.State, m.Params())

	n := len(cfg.SavingsGrid)
	mu := make([]float64, n)
	w := make([]float64, n)

	childWs := make([]float64, len(cfg.ShockGrid))
	childMUs := make([]float64, len(cfg.ShockGrid))
	for ai, a := range cfg.SavingsGrid {
		for si, shock := range cfg.ShockGrid {
			wealth := m.Budget(sc.State, sc.Choice, a, shock)

			childW, childMU, err := aggregateChildren(sp, m, childChoicesByState, result, period, children, transProbs, wealth, beta, lambda)
			if err != nil {
				return interp.Curve{}, err
			}
			childWs[si] = childW
			childMUs[si] = childMU
		}
		// Shock-quadrature expectation is a weighted sum, i.e. a dot
		// product against cfg.ShockWeights.
		mu[ai] = floats.Dot(cfg.ShockWeights, childMUs)
		w[ai] = floats.Dot(cfg.ShockWeights, childWs)
	}

	raw, err := egm.Solve(m, sc.State, sc.Choice, cfg.SavingsGrid, mu, w, w[0], beta, cfg.InterestRate)
	if err != nil {
		return interp.Curve{}, err
	}

	computeValue := func(x float64) float64 { return m.Utility(x, sc.State, sc.Choice) + beta*raw.ExpectedValueZero }
	refined, err := fues.Refine(
		raw.EndogenousGrid.RawVector().Data,
		raw.Policy.RawVector().Data,
		raw.Value.RawVector().Data,
		raw.ExpectedValueZero, computeValue)
	if err != nil {
		return interp.Curve{}, err
	}

	refinedMU := make([]float64, len(refined.Policy))
	for i, c := range refined.Policy {
		refinedMU[i] = m.MarginalUtility(c, sc.State, sc.Choice)
	}

	n = len(refined.EndogenousGrid)
	return interp.Curve{
		X:      mat.NewVecDense(n, refined.EndogenousGrid),
		Policy: mat.NewVecDense(n, refined.Policy),
		Value:  mat.NewVecDense(n, refined.Value),
		MU:     mat.NewVecDense(n, refinedMU),
	}, nil
}

// aggregateChildren computes the transition-probability-weighted
// continuation marginal utility and expected value at wealth, summed
// over every child state reachable from a state-choice, with each
// child's own feasible choices aggregated via the discrete-choice logit
// formula (§4.4).
func aggregateChildren(
	sp *statespace.Space,
	m *model.Model,
	childChoicesByState map[int][]int,
	result *Result,
	period int,
	children []int,
	transProbs []float64,
	wealth, beta, lambda float64,
) (expectedValue, marginalUtility float64, err error) {
	childPeriodCurves := result.Curves[period+1]

	for ci, childIdx := range children {
		if childIdx < 0 || transProbs[ci] == 0 {
			continue
		}
		choiceIDs := childChoicesByState[childIdx]
		childState := statespace.State(sp.StateSpace[childIdx])

		v := make([]float64, len(choiceIDs))
		mu := make([]float64, len(choiceIDs))
		for k, choiceID := range choiceIDs {
			curve, ok := childPeriodCurves[choiceID]
			if !ok {
				return 0, 0, fmt.Errorf(
					"aggregateChildren: child state-choice %d at period %d not yet solved: %w",
					choiceID, period+1, dcerr.ErrInvariant)
			}
			choice := sp.StateChoiceSpace[choiceID].Choice
			utility := func(x float64) float64 { return m.Utility(x, childState, choice) }
			marginalU := func(x float64) float64 { return m.MarginalUtility(x, childState, choice) }

			_, val := interp.Eval1D(curve, wealth, beta, utility)
			v[k] = val
			mu[k] = interp.EvalMU(curve, wealth, marginalU)
		}

		col, err := aggregate.Column(v, mu, lambda)
		if err != nil {
			return 0, 0, err
		}
		expectedValue += transProbs[ci] * col.ExpectedValue
		marginalUtility += transProbs[ci] * col.MarginalUtility
	}
	return expectedValue, marginalUtility, nil
}
