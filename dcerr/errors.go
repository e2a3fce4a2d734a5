// Package dcerr defines the error taxonomy shared by every package in the
// solver core: configuration errors, invariant violations, and user
// callback errors are all fatal and are distinguished so that callers can
// use errors.Is at the API boundary. Numerical degeneracies (NaN
// propagation) are not represented as errors at all -- see the aggregate
// and interp packages.
package dcerr

import "errors"

// Sentinel errors identifying the class of a failure. Wrap one of these
// with fmt.Errorf("funcname: message: %w", Sentinel) so callers can
// recover the class with errors.Is.
var (
	// ErrConfiguration marks a malformed options/params setup: missing
	// required params, invalid proxy target, n_periods < 2, negative grid
	// spacing, and similar setup-time mistakes.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvariant marks an assertion failure discovered while solving: a
	// batch referencing an unsolved state, a non-increasing refined grid,
	// a choice-probability vector that does not sum to one.
	ErrInvariant = errors.New("invariant violation")

	// ErrUserCallback marks a user-supplied callback returning a
	// non-finite result for finite, in-domain arguments.
	ErrUserCallback = errors.New("user callback error")
)
