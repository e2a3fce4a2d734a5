// Package params implements an immutable, name-keyed dictionary of model
// parameters, replacing the dynamically typed parameter dictionaries (e.g.
// pandas DataFrames keyed by (category, name)) of the reference
// implementation with a single real-valued map and a required-name
// whitelist, per DESIGN NOTES item 1 of the specification.
package params

import (
	"fmt"
	"math"
	"sort"

	"github.com/samuelfneumann/dcegm/dcerr"
)

// Parameter names. Beta, InterestRate, Lambda and Sigma are required by
// Build (§6.3); ConsumptionFlr and model-specific scalars are permitted
// but not required.
const (
	Beta           = "beta"           // discount factor, 0 < beta < 1
	InterestRate   = "interest_rate"  // r >= 0
	Lambda         = "lambda"         // taste-shock scale, >= 0
	Sigma          = "sigma"          // income-shock scale, >= 0
	ConsumptionFlr = "consumption_floor"
)

var required = []string{Beta, InterestRate, Lambda, Sigma}

// Params is an immutable, name-keyed mapping of model parameters to a
// single real type. Once built via Builder.Build, a Params value is never
// mutated; reads are safe for concurrent use by any number of goroutines,
// which matters because the driver shares one Params across all
// state-choice workers in a batch.
type Params struct {
	values map[string]float64
}

// Get returns the value stored for name and whether name was present.
func (p Params) Get(name string) (float64, bool) {
	v, ok := p.values[name]
	return v, ok
}

// MustGet returns the value stored for name, panicking if absent. Intended
// for the required names, which Build has already guaranteed exist.
func (p Params) MustGet(name string) float64 {
	v, ok := p.values[name]
	if !ok {
		panic(fmt.Sprintf("params: no value named %q", name))
	}
	return v
}

// BetaValue, Interest, LambdaValue and SigmaValue are convenience
// accessors for the four names every Params is guaranteed to carry.
func (p Params) BetaValue() float64  { return p.MustGet(Beta) }
func (p Params) Interest() float64   { return p.MustGet(InterestRate) }
func (p Params) LambdaValue() float64 { return p.MustGet(Lambda) }
func (p Params) SigmaValue() float64 { return p.MustGet(Sigma) }

// ConsumptionFloor returns the configured consumption floor, defaulting to
// 0 when unset.
func (p Params) ConsumptionFloor() float64 {
	v, ok := p.values[ConsumptionFlr]
	if !ok {
		return 0
	}
	return v
}

// Names returns the sorted list of every parameter name carried by p.
func (p Params) Names() []string {
	names := make([]string, 0, len(p.values))
	for k := range p.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Builder accumulates name -> value settings before freezing them into an
// immutable Params. Builder mirrors the teacher's Config structs, which are
// built up field by field and then used to construct a concrete type via a
// Create/CreateAgent method; here the "concrete type" is the frozen Params
// map itself.
type Builder struct {
	values map[string]float64
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{values: make(map[string]float64)}
}

// Set stores value under name, overwriting any previous value for that
// name, and returns the Builder for chaining.
func (b *Builder) Set(name string, value float64) *Builder {
	b.values[name] = value
	return b
}

// SetAll copies every entry of m into the Builder, overwriting collisions.
func (b *Builder) SetAll(m map[string]float64) *Builder {
	for k, v := range m {
		b.values[k] = v
	}
	return b
}

// Build validates that every required name (§6.3) is present and finite,
// then freezes the Builder's contents into a Params. Build returns a
// dcerr.ErrConfiguration-wrapped error when a required name is missing,
// when beta is not in (0, 1), or when interest_rate, lambda, or sigma is
// negative.
func (b *Builder) Build() (Params, error) {
	for _, name := range required {
		v, ok := b.values[name]
		if !ok {
			return Params{}, fmt.Errorf("build: missing required parameter %q: %w",
				name, dcerr.ErrConfiguration)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Params{}, fmt.Errorf("build: parameter %q is not finite: %w",
				name, dcerr.ErrConfiguration)
		}
	}

	beta := b.values[Beta]
	if beta <= 0 || beta >= 1 {
		return Params{}, fmt.Errorf(
			"build: beta must satisfy 0 < beta < 1, got %v: %w", beta,
			dcerr.ErrConfiguration)
	}
	for _, name := range []string{InterestRate, Lambda, Sigma} {
		if b.values[name] < 0 {
			return Params{}, fmt.Errorf(
				"build: parameter %q must be >= 0, got %v: %w", name,
				b.values[name], dcerr.ErrConfiguration)
		}
	}

	frozen := make(map[string]float64, len(b.values))
	for k, v := range b.values {
		frozen[k] = v
	}
	return Params{values: frozen}, nil
}
