// Command dcegmsolve solves the toy retirement model end to end: builds
// the state space, constructs a discretized income-shock distribution,
// runs backward induction, and writes the resulting curves to a gob
// checkpoint. Flags follow the stdlib flag package idiom used throughout
// the rest of the pack's command-line entry points.
package main

import (
	"context"
	"encoding/gob"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/samuelfneumann/dcegm/driver"
	"github.com/samuelfneumann/dcegm/examples/retirement"
	"github.com/samuelfneumann/dcegm/params"
	"github.com/samuelfneumann/dcegm/persist"
	"github.com/samuelfneumann/dcegm/statespace"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

func main() {
	var (
		nPeriods     = flag.Int("periods", 10, "number of periods to solve")
		nGridWealth  = flag.Int("grid-points", 100, "number of savings-grid points")
		maxWealth    = flag.Float64("max-wealth", 50, "upper bound of the savings grid")
		nQuad        = flag.Int("quad-points", 7, "number of income-shock quadrature nodes")
		beta         = flag.Float64("beta", 0.96, "discount factor")
		interest     = flag.Float64("interest-rate", 0.03, "interest rate")
		lambda       = flag.Float64("lambda", 1.0, "taste-shock scale")
		sigma        = flag.Float64("sigma", 0.2, "income-shock standard deviation")
		theta        = flag.Float64("theta", 1.5, "CRRA risk-aversion coefficient")
		delta        = flag.Float64("delta", 0.3, "per-period disutility of working")
		consFloor    = flag.Float64("consumption-floor", 0, "minimum guaranteed resources")
		out          = flag.String("out", "solution.gob", "output checkpoint path")
		showProgress = flag.Bool("progress", true, "display a progress bar while solving")
	)
	flag.Parse()

	if err := run(*nPeriods, *nGridWealth, *maxWealth, *nQuad, *beta, *interest, *lambda,
		*sigma, *theta, *delta, *consFloor, *out, *showProgress); err != nil {
		log.Fatal(err)
	}
}

func run(
	nPeriods, nGridWealth int,
	maxWealth float64,
	nQuad int,
	beta, interest, lambda, sigma, theta, delta, consFloor float64,
	out string,
	showProgress bool,
) error {
	p, err := params.NewBuilder().
		Set(params.Beta, beta).
		Set(params.InterestRate, interest).
		Set(params.Lambda, lambda).
		Set(params.Sigma, sigma).
		Set(params.ConsumptionFlr, consFloor).
		Build()
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	cfg := retirement.Config{
		Theta:      theta,
		Delta:      delta,
		WageCoeffs: []float64{1.0, 0.02},
	}
	m, err := retirement.NewModel(cfg, p)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	sp, err := statespace.Build(retirement.Options(nPeriods))
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	savingsGrid := make([]float64, nGridWealth)
	for i := range savingsGrid {
		savingsGrid[i] = maxWealth * float64(i) / float64(nGridWealth-1)
	}

	shockGrid, shockWeights := quadratureNodes(nQuad, sigma)

	driverCfg := driver.Config{
		SavingsGrid:  savingsGrid,
		ShockGrid:    shockGrid,
		ShockWeights: shockWeights,
		InterestRate: interest,
		ShowProgress: showProgress,
	}

	result, err := driver.Solve(context.Background(), sp, m, driverCfg)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	defer f.Close()

	md := persist.FromSpace(sp)
	if err := persist.Save(f, md); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(result.Curves); err != nil {
		return fmt.Errorf("run: could not encode curves: %w", err)
	}

	fmt.Printf("solved %d periods, wrote checkpoint to %s\n", nPeriods, out)
	return nil
}

// quadratureNodes discretizes a mean-zero Normal(sigma) income-shock
// distribution into nQuad equal-probability-mass nodes, evaluated at the
// distribution's quantile function -- a simpler substitute for true
// Gauss-Hermite quadrature that still integrates a smooth continuation
// value to reasonable accuracy for a handful of nodes, and uses gonum's
// actual public distuv API rather than a hand-rolled normal quantile.
func quadratureNodes(nQuad int, sigma float64) (nodes, weights []float64) {
	if nQuad < 1 {
		nQuad = 1
	}
	dist := distuv.Normal{
		Mu:    0,
		Sigma: sigma,
		Src:   rand.NewSource(1),
	}

	nodes = make([]float64, nQuad)
	weights = make([]float64, nQuad)
	for i := 0; i < nQuad; i++ {
		prob := (float64(i) + 0.5) / float64(nQuad)
		nodes[i] = dist.Quantile(prob)
		weights[i] = 1.0 / float64(nQuad)
	}
	return nodes, weights
}
