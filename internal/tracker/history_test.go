package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryExtendBoundsLength(t *testing.T) {
	var h History
	for i := 1; i <= 7; i++ {
		h = h.Extend(float64(i), 4)
		require.LessOrEqual(t, len(h), 4)
	}
	// oldest dropped first, order preserved
	assert.Equal(t, History{4, 5, 6, 7}, h)
}

func TestHistoryExtendDoesNotAliasSource(t *testing.T) {
	base := History{1, 2, 3}
	a := base.Extend(4, 3)
	b := base.Extend(5, 3)

	assert.Equal(t, History{1, 2, 3}, base)
	assert.Equal(t, History{2, 3, 4}, a)
	assert.Equal(t, History{2, 3, 5}, b)
}

func TestNextHistory(t *testing.T) {
	state := FaceTrackState{Histories: map[int]History{0: {0.1, 0.2}}}

	assert.Equal(t, History{0.1, 0.2, 0.3}, state.nextHistory(0, 0.3, true, 5))
	assert.Equal(t, History{0.3}, state.nextHistory(NoMatch, 0.3, true, 5))

	// a skipped statistic carries a match forward and leaves a new face empty
	assert.Equal(t, History{0.1, 0.2}, state.nextHistory(0, 0, false, 5))
	assert.Empty(t, state.nextHistory(NoMatch, 0, false, 5))
}
