package cricket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverTracker_CapAndWarning(t *testing.T) {
	tr := NewOverTracker()

	ok, warn := tr.Check(Four)
	require.True(t, ok)
	require.Empty(t, warn)
	ok, warn = tr.Check(Four)
	require.True(t, ok)
	require.Empty(t, warn)

	ok, warn = tr.Check(Four)
	require.True(t, ok)
	require.NotEmpty(t, warn, "third use warns")

	ok, warn = tr.Check(Four)
	assert.False(t, ok)
	assert.NotEmpty(t, warn)
	assert.Equal(t, 3, tr.Counts[Four], "refused attempt is not counted")
	assert.Zero(t, tr.Remaining(Four))
}

func TestOverTracker_TwoIsExempt(t *testing.T) {
	tr := NewOverTracker()
	for i := 0; i < 6; i++ {
		ok, warn := tr.Check(Two)
		require.True(t, ok, "use %d", i+1)
		require.Empty(t, warn)
	}
	assert.Equal(t, -1, tr.Remaining(Two))
}

func TestOverTracker_SingleVariantsCountSeparately(t *testing.T) {
	tr := NewOverTracker()
	for _, mv := range []Move{SingleA, SingleB, SingleC} {
		for i := 0; i < 3; i++ {
			ok, _ := tr.Check(mv)
			require.True(t, ok)
		}
	}
	ok, _ := tr.Check(SingleA)
	assert.False(t, ok)
	ok, _ = tr.Check(One)
	assert.True(t, ok)
}

func TestOverTracker_Roll(t *testing.T) {
	tr := NewOverTracker()
	tr.Check(Six)
	tr.Check(Six)
	tr.Check(Six)

	for balls := 0; balls < BallsPerOver; balls++ {
		require.False(t, tr.Roll(balls))
	}
	require.True(t, tr.Roll(6))
	assert.Empty(t, tr.Counts)
	assert.False(t, tr.Roll(6), "resets once per over")

	ok, _ := tr.Check(Six)
	assert.True(t, ok)
}
