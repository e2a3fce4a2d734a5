// Package statespace enumerates the discrete state space, the
// state-choice space, the child-state mapping, and (optionally) a proxy
// map redirecting invalid states to representative valid ones. It also
// partitions each period's state-choice ids into memory-bounded batches
// for the backward driver.
package statespace

import (
	"strconv"
	"strings"
)

// State is a fixed-order integer vector describing a discrete state. By
// convention (§3 Invariants) the first entry is always the period; the
// last entries are the exogenous states. Endogenous and other
// user-defined discrete state variables sit in between.
type State []int

// key returns a canonical, comparable string encoding of s, used as the
// map key throughout this package. Unlike the reference implementation's
// dense multi-dimensional index array, this adapter keys a Go map by the
// encoded tuple directly.
func (s State) key() string {
	var b strings.Builder
	for i, v := range s {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
	return b.String()
}

// Clone returns a copy of s that shares no backing array with it.
func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

// Period returns the first column of s, the period.
func (s State) Period() int { return s[0] }

// LaggedChoice returns the second column of s.
func (s State) LaggedChoice() int { return s[1] }

// StateChoice pairs a discrete state with one of its feasible choices.
type StateChoice struct {
	State  State
	Choice int
}

// key returns the canonical encoding of sc, state columns followed by the
// choice, matching the reference implementation's
// state_choice_space[:, -1] convention of storing choice in the last
// column.
func (sc StateChoice) key() string {
	return sc.State.key() + "|" + strconv.Itoa(sc.Choice)
}
