package tracker

import (
	"time"

	"SPEAKER_TRACK/go-backend/internal/geometry"
	"SPEAKER_TRACK/go-backend/internal/models"
)

// SpeakerDecisionState is all that survives from one window to the next.
type SpeakerDecisionState struct {
	// PreviousID is the previous window's dominant meta-face, NoSpeaker if none.
	PreviousID int `json:"previous_id"`
	// PreviousBox is the last box the previous dominant speaker was output at.
	PreviousBox *models.Detection `json:"previous_box,omitempty"`
	Strength    SpeakerStrength   `json:"strength"`
	// LastShot is only meaningful when HasShot is set.
	LastShot time.Duration `json:"last_shot"`
	HasShot  bool          `json:"has_shot"`
}

func NewSpeakerDecisionState() SpeakerDecisionState {
	return SpeakerDecisionState{PreviousID: NoSpeaker}
}

// Remember records the dominant speaker of a finished window.
func (s *SpeakerDecisionState) Remember(id int, last models.Detection) {
	s.PreviousID = id
	s.PreviousBox = &last
}

func (s *SpeakerDecisionState) Forget() {
	s.PreviousID = NoSpeaker
	s.PreviousBox = nil
}

// Decision is the outcome of one shot-boundary evaluation. Changed is the raw
// decision; Signal is what gets emitted after debounce and output options,
// nil when nothing is emitted.
type Decision struct {
	Changed bool
	Signal  *models.ShotSignal
}

type ShotDecider struct {
	opts Options
}

func NewShotDecider(opts Options) ShotDecider {
	return ShotDecider{opts: opts}
}

// Decide compares the window's dominant speaker box (nil when the window has
// none) with the previous dominant speaker and applies the debounce. ts is
// the first buffered frame's timestamp.
func (d ShotDecider) Decide(state SpeakerDecisionState, box *models.Detection, ts time.Duration) (Decision, SpeakerDecisionState) {
	next := state

	var changed bool
	switch {
	case box == nil:
		next.Forget()
	case state.PreviousBox == nil:
		// a speaker appears where there was none
		changed = true
	default:
		changed = geometry.IOU(state.PreviousBox.Box, box.Box) <= d.opts.IOUThreshold
	}

	if !d.opts.OutputShotBoundary {
		return Decision{Changed: changed}, next
	}

	signaled := changed
	if changed && state.HasShot && ts-state.LastShot < d.opts.MinShotSpan {
		signaled = false
	}
	if changed {
		next.LastShot = ts
		next.HasShot = true
	}

	out := Decision{Changed: changed}
	if signaled || !d.opts.OutputShotBoundaryOnlyOnChange {
		out.Signal = &models.ShotSignal{Timestamp: ts, Changed: signaled}
	}
	return out, next
}
