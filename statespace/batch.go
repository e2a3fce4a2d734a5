package statespace

import "github.com/samuelfneumann/dcegm/utils/intutils"

// buildBatches partitions every period's state-choice ids into
// contiguous chunks of at most maxBatchSize(period) ids (§4.2 point 6).
//
// Backward induction always solves period t+1 to completion before
// period t is touched, so a period-t state-choice's children -- which by
// construction live in period t+1, see Build -- are already solved
// regardless of how period t itself is chunked. Chunk size therefore
// controls working-set memory, not correctness; this is why there is no
// debug breakpoint left in this function (§9 Open Question 2): there is
// nothing here to step through at runtime, the dependency invariant
// holds by construction of the period index.
func buildBatches(sp *Space) []Batch {
	byPeriod := make(map[int][]int)
	var periods []int
	for id, sc := range sp.StateChoiceSpace {
		p := sc.State.Period()
		if _, ok := byPeriod[p]; !ok {
			periods = append(periods, p)
		}
		byPeriod[p] = append(byPeriod[p], id)
	}

	var batches []Batch
	for _, period := range periods {
		ids := byPeriod[period]
		for _, chunk := range chunkIDs(ids, sp.Options.MaxWorkingSet) {
			batches = append(batches, Batch{Period: period, StateChoiceIDs: chunk})
		}
	}
	return batches
}

// chunkIDs splits ids into contiguous chunks of one size (the last chunk
// may be shorter). The size starts at len(ids) and shrinks by 5% at a
// time, at least 1 per step, until it is <= maxWorkingSet, as the
// builder's memory-budget check requires; it is the first size in that
// sequence to fit, not necessarily the largest that would. maxWorkingSet
// <= 0 means unbounded: a single chunk holding every id.
func chunkIDs(ids []int, maxWorkingSet int) [][]int {
	if len(ids) == 0 {
		return nil
	}
	size := len(ids)
	if maxWorkingSet > 0 {
		for size > maxWorkingSet {
			next := intutils.Min(int(float64(size)*0.95), size-1)
			size = intutils.Max(next, 1)
		}
	}

	var chunks [][]int
	for start := 0; start < len(ids); start += size {
		end := intutils.Min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
