package statespace

import (
	"testing"

	"github.com/samuelfneumann/dcegm/params"
	"github.com/stretchr/testify/require"
)

func testParams(t *testing.T) params.Params {
	t.Helper()
	p, err := params.NewBuilder().
		Set(params.Beta, 0.95).
		Set(params.InterestRate, 0.02).
		Set(params.Lambda, 1).
		Set(params.Sigma, 1).
		Build()
	require.NoError(t, err)
	return p
}

// ltcOptions builds the 2-period long-term-care options of scenario S3:
// an exogenous state ltc in {0, 1}, absorbing once it hits 1, with
// P(ltc=1 | ltc=0) = 0.3.
func ltcOptions() Options {
	transition := func(state State, p params.Params) []float64 {
		ltc := state[len(state)-1]
		if ltc == 1 {
			return []float64{0, 1}
		}
		return []float64{0.7, 0.3}
	}
	return Options{
		NPeriods: 2,
		Choices:  []int{0, 1},
		ExogenousProcesses: []ExogenousProcess{
			{Name: "ltc", States: []int{0, 1}, Transition: transition},
		},
	}
}

func TestBuild_LTC_Dimensions(t *testing.T) {
	sp, err := Build(ltcOptions())
	require.NoError(t, err)

	// period 0: 2 lagged choices x 2 ltc states = 4 states.
	// period 1: same = 4 states. Total 8.
	require.Len(t, sp.StateSpace, 8)

	for _, row := range sp.StateSpace {
		require.Len(t, row, 3) // period, lagged_choice, ltc
	}

	// every state has 2 feasible choices (no FeasibleChoiceSet set).
	require.Len(t, sp.StateChoiceSpace, 16)

	for i, children := range sp.ChildrenOfStateChoice {
		require.Len(t, children, 2) // ltc has 2 realisations
		state := sp.StateChoiceSpace[i].State
		if state.Period() == sp.Options.NPeriods-1 {
			for _, c := range children {
				require.Equal(t, -1, c, "last period has no children")
			}
		} else {
			for _, c := range children {
				require.NotEqual(t, -1, c, "non-last period children must resolve")
			}
		}
	}
}

func TestBuild_TransitionProbsSumToOne(t *testing.T) {
	sp, err := Build(ltcOptions())
	require.NoError(t, err)
	p := testParams(t)

	for _, row := range sp.StateSpace {
		probs := sp.TransitionProbs(State(row), p)
		sum := 0.0
		for _, v := range probs {
			sum += v
		}
		require.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestBuild_BatchesCoverEveryStateChoiceOncePerPeriod(t *testing.T) {
	sp, err := Build(ltcOptions())
	require.NoError(t, err)

	seen := make(map[int]bool)
	for _, b := range sp.Batches {
		for _, id := range b.StateChoiceIDs {
			require.False(t, seen[id], "state-choice %d appears in more than one batch", id)
			seen[id] = true
		}
	}
	require.Len(t, seen, len(sp.StateChoiceSpace))
}

func TestBuild_MaxWorkingSetShrinksBatches(t *testing.T) {
	opts := ltcOptions()
	opts.MaxWorkingSet = 2
	sp, err := Build(opts)
	require.NoError(t, err)

	for _, b := range sp.Batches {
		require.LessOrEqual(t, len(b.StateChoiceIDs), 2)
	}
}

func TestBuild_RejectsShortHorizon(t *testing.T) {
	opts := ltcOptions()
	opts.NPeriods = 1
	_, err := Build(opts)
	require.Error(t, err)
}

// TestBuild_ProxyRewriting checks that an invalid state with a declared
// proxy is absent from StateSpace but resolvable via
// MapChildStateToIndex, per §4.2 point 5 and §9 Open Question 1.
func TestBuild_ProxyRewriting(t *testing.T) {
	opts := Options{
		NPeriods: 2,
		Choices:  []int{0, 1},
		EndogenousStates: []EndogenousState{
			{Name: "marital", Values: []int{0, 1}},
		},
		NextState: func(state State, choice int, exog []int) []int {
			return []int{state[2]}
		},
		// lagged_choice=1 (retired) forces marital=0 (single); marital=1
		// with lagged_choice=1 is invalid and proxies to marital=0.
		SparsityCondition: func(state State) (bool, State, bool) {
			lagged, marital := state[1], state[2]
			if lagged == 1 && marital == 1 {
				proxy := state.Clone()
				proxy[2] = 0
				return false, proxy, true
			}
			return true, nil, false
		},
	}

	sp, err := Build(opts)
	require.NoError(t, err)

	invalid := State{0, 1, 1}
	_, ok := sp.MapStateToIndex[invalid.key()]
	require.False(t, ok, "invalid state must not appear in MapStateToIndex")

	proxyIdx, ok := sp.MapChildStateToIndex[invalid.key()]
	require.True(t, ok, "invalid state must resolve via MapChildStateToIndex")

	want := State{0, 1, 0}
	wantIdx, ok := sp.MapStateToIndex[want.key()]
	require.True(t, ok)
	require.Equal(t, wantIdx, proxyIdx)
}
