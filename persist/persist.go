// Package persist implements gob-based serialization of a solved state
// space (§6.4): the enumerated state/state-choice space and batch
// partition, without the callback set, which the caller must re-supply
// on every solve. Grounded on experiment/checkpointer.NStep's
// encoding/gob.Encoder/Decoder usage.
package persist

import (
	"encoding/gob"
	"fmt"
	"io"

	"github.com/samuelfneumann/dcegm/dcerr"
	"github.com/samuelfneumann/dcegm/statespace"
)

// Metadata mirrors statespace.Space's persistable fields. Options is
// omitted entirely: its function-valued fields (SparsityCondition,
// FeasibleChoiceSet, NextState, and every ExogenousProcess.Transition)
// cannot survive gob encoding, so a reload requires the caller to
// re-supply the same Options, either through Splice or by re-running
// statespace.Build outright -- Save/Load exist only to skip
// re-enumerating a large space across process restarts.
type Metadata struct {
	StateSpace            [][]int
	MapStateToIndex       map[string]int
	StateChoiceSpace      []statespace.StateChoice
	ParentOfStateChoice   []int
	ChildrenOfStateChoice [][]int
	MapChildStateToIndex  map[string]int
	ExogRealizations      [][]int
	Batches               []statespace.Batch
}

// FromSpace extracts the persistable fields of sp.
func FromSpace(sp *statespace.Space) Metadata {
	return Metadata{
		StateSpace:            sp.StateSpace,
		MapStateToIndex:       sp.MapStateToIndex,
		StateChoiceSpace:      sp.StateChoiceSpace,
		ParentOfStateChoice:   sp.ParentOfStateChoice,
		ChildrenOfStateChoice: sp.ChildrenOfStateChoice,
		MapChildStateToIndex:  sp.MapChildStateToIndex,
		ExogRealizations:      sp.ExogRealizations,
		Batches:               sp.Batches,
	}
}

// Splice returns a *statespace.Space combining m with the caller-supplied
// Options (and therefore its callbacks), ready for the driver to solve
// without re-running statespace.Build.
func (m Metadata) Splice(o statespace.Options) *statespace.Space {
	return &statespace.Space{
		Options:               o,
		StateSpace:            m.StateSpace,
		MapStateToIndex:       m.MapStateToIndex,
		StateChoiceSpace:      m.StateChoiceSpace,
		ParentOfStateChoice:   m.ParentOfStateChoice,
		ChildrenOfStateChoice: m.ChildrenOfStateChoice,
		MapChildStateToIndex:  m.MapChildStateToIndex,
		ExogRealizations:      m.ExogRealizations,
		Batches:               m.Batches,
	}
}

// Save gob-encodes md to w.
func Save(w io.Writer, md Metadata) error {
	if err := gob.NewEncoder(w).Encode(md); err != nil {
		return fmt.Errorf("save: %v: %w", err, dcerr.ErrInvariant)
	}
	return nil
}

// Load gob-decodes a Metadata previously written by Save.
func Load(r io.Reader) (Metadata, error) {
	var md Metadata
	if err := gob.NewDecoder(r).Decode(&md); err != nil {
		return Metadata{}, fmt.Errorf("load: %v: %w", err, dcerr.ErrInvariant)
	}
	return md, nil
}
