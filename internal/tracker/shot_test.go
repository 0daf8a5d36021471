package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SPEAKER_TRACK/go-backend/internal/models"
)

func shotOptions() Options {
	opts := DefaultOptions()
	opts.IOUThreshold = 0.5
	opts.MinShotSpan = 2 * time.Second
	opts.OutputShotBoundary = true
	return opts
}

func TestDecideNoSpeaker(t *testing.T) {
	d := NewShotDecider(shotOptions())
	prev := det(0.1, 0.1, 0.2, 0.2)
	state := NewSpeakerDecisionState()
	state.Remember(3, prev)

	decision, next := d.Decide(state, nil, time.Second)

	require.NotNil(t, decision.Signal)
	assert.False(t, decision.Signal.Changed)
	assert.Equal(t, time.Second, decision.Signal.Timestamp)
	assert.Equal(t, NoSpeaker, next.PreviousID)
	assert.Nil(t, next.PreviousBox)
}

func TestDecideFirstSpeakerAlwaysChanges(t *testing.T) {
	d := NewShotDecider(shotOptions())
	box := det(0.1, 0.1, 0.2, 0.2)

	decision, next := d.Decide(NewSpeakerDecisionState(), &box, 0)

	assert.True(t, decision.Changed)
	require.NotNil(t, decision.Signal)
	assert.True(t, decision.Signal.Changed)
	assert.True(t, next.HasShot)
	assert.Equal(t, time.Duration(0), next.LastShot)
}

func TestDecideSameFaceDoesNotChange(t *testing.T) {
	d := NewShotDecider(shotOptions())
	state := NewSpeakerDecisionState()
	state.Remember(0, det(0.1, 0.1, 0.2, 0.2))
	moved := det(0.12, 0.1, 0.2, 0.2)

	decision, _ := d.Decide(state, &moved, 5*time.Second)

	assert.False(t, decision.Changed)
	require.NotNil(t, decision.Signal)
	assert.False(t, decision.Signal.Changed)
}

func TestDecideDebounce(t *testing.T) {
	d := NewShotDecider(shotOptions())
	a := det(0.0, 0.0, 0.2, 0.2)
	b := det(0.6, 0.6, 0.2, 0.2)

	state := NewSpeakerDecisionState()
	first, state := d.Decide(state, &a, 0)
	require.True(t, first.Signal.Changed)
	state.Remember(0, a)

	// within min_shot_span: decided, but not signaled
	second, state := d.Decide(state, &b, time.Second)
	assert.True(t, second.Changed)
	require.NotNil(t, second.Signal)
	assert.False(t, second.Signal.Changed)
	assert.Equal(t, time.Second, state.LastShot)
	state.Remember(1, b)

	// the suppressed change still restarted the debounce clock
	third, state := d.Decide(state, &a, 2500*time.Millisecond)
	assert.False(t, third.Signal.Changed)
	state.Remember(2, a)

	fourth, _ := d.Decide(state, &b, 5*time.Second)
	assert.True(t, fourth.Signal.Changed)
}

func TestDecideOutputOptions(t *testing.T) {
	box := det(0.1, 0.1, 0.2, 0.2)

	opts := shotOptions()
	opts.OutputShotBoundary = false
	decision, _ := NewShotDecider(opts).Decide(NewSpeakerDecisionState(), &box, 0)
	assert.True(t, decision.Changed)
	assert.Nil(t, decision.Signal)

	opts = shotOptions()
	opts.OutputShotBoundaryOnlyOnChange = true
	decision, _ = NewShotDecider(opts).Decide(NewSpeakerDecisionState(), nil, 0)
	assert.Nil(t, decision.Signal)

	decision, _ = NewShotDecider(opts).Decide(NewSpeakerDecisionState(), &box, 0)
	require.NotNil(t, decision.Signal)
	assert.True(t, decision.Signal.Changed)
}

func TestDebounceNeverSignalsTwoChangesWithinSpan(t *testing.T) {
	d := NewShotDecider(shotOptions())
	boxes := []models.Detection{det(0, 0, 0.2, 0.2), det(0.6, 0.6, 0.2, 0.2)}

	state := NewSpeakerDecisionState()
	var (
		signaled []time.Duration
		ts       time.Duration
	)
	for i := 0; i < 40; i++ {
		switch {
		case i == 0:
		case i%2 == 1:
			ts += 500 * time.Millisecond
		default:
			ts += 2500 * time.Millisecond
		}
		box := boxes[i%2]
		decision, next := d.Decide(state, &box, ts)
		state = next
		state.Remember(i, box)
		if decision.Signal != nil && decision.Signal.Changed {
			signaled = append(signaled, ts)
		}
	}

	require.Len(t, signaled, 20)
	for i := 1; i < len(signaled); i++ {
		assert.GreaterOrEqual(t, signaled[i]-signaled[i-1], 2*time.Second)
	}
}
