// Package tracker finds the active speaker among the faces of a video stream
// and turns speaker changes into a debounced shot-boundary signal.
//
// Frames are buffered until the window spans MinSpeakerSpan. The window is
// then evaluated as a whole: faces are chained across frames by box overlap
// into meta-faces, each frame's speaking face is picked from its lip motion,
// and the meta-face speaking most often becomes the window's speaker. One
// box per buffered frame is released, in timestamp order.
package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"SPEAKER_TRACK/go-backend/internal/models"
)

// ErrMissingVideo is returned when a step carries no video frame.
var ErrMissingVideo = errors.New("no video input")

// Renderer draws diagnostic frames. It is optional and lives outside this
// package.
type Renderer interface {
	Render(frame models.VideoFrame, diag FrameDiagnostics, speakers []models.Detection) (models.VideoFrame, error)
}

// WindowResult is everything one evaluated window produces.
type WindowResult struct {
	StartTimestamp time.Duration        `json:"-"`
	EndTimestamp   time.Duration        `json:"-"`
	Outputs        []models.FrameOutput `json:"outputs"`
	Shot           *models.ShotSignal   `json:"shot,omitempty"`
	Changed        bool                 `json:"changed"`
	Dominant       *MetaFace            `json:"dominant,omitempty"`
	MetaFaces      []MetaFace           `json:"meta_faces"`
	Frames         []FrameDiagnostics   `json:"frames,omitempty"`
}

// MarshalJSON writes the window bounds in microseconds, like every other
// stream timestamp on the wire.
func (r WindowResult) MarshalJSON() ([]byte, error) {
	type plain WindowResult
	return json.Marshal(struct {
		StartUs int64 `json:"start_timestamp_us"`
		EndUs   int64 `json:"end_timestamp_us"`
		plain
	}{r.StartTimestamp.Microseconds(), r.EndTimestamp.Microseconds(), plain(r)})
}

// DominantID returns the dominant meta-face id or NoSpeaker.
func (r *WindowResult) DominantID() int {
	if r == nil || r.Dominant == nil {
		return NoSpeaker
	}
	return r.Dominant.ID
}

type Option func(*LipTracker)

func WithRenderer(r Renderer) Option {
	return func(t *LipTracker) { t.renderer = r }
}

func WithLogger(l *log.Entry) Option {
	return func(t *LipTracker) { t.log = l }
}

// LipTracker is single-threaded: one instance per stream, not safe for
// concurrent use.
type LipTracker struct {
	opts       Options
	classifier Classifier
	decider    ShotDecider
	renderer   Renderer
	log        *log.Entry

	frameWidth  int
	frameHeight int
	frameFormat string

	buffer   []models.FrameSignal
	decision SpeakerDecisionState
}

func New(opts Options, options ...Option) (*LipTracker, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	t := &LipTracker{
		opts:        opts,
		classifier:  NewClassifier(opts),
		decider:     NewShotDecider(opts),
		log:         log.WithField("component", "lip_tracker"),
		frameWidth:  -1,
		frameHeight: -1,
		decision:    NewSpeakerDecisionState(),
	}
	for _, o := range options {
		o(t)
	}
	return t, nil
}

func (t *LipTracker) Options() Options {
	return t.opts
}

func (t *LipTracker) Buffered() int {
	return len(t.buffer)
}

func (t *LipTracker) Decision() SpeakerDecisionState {
	return t.decision
}

// FrameSize is the size fixed by the first frame, (-1, -1) before it.
func (t *LipTracker) FrameSize() (int, int) {
	return t.frameWidth, t.frameHeight
}

// Process is one host step. The frame is mandatory; landmarks and
// detections are only used when both are present.
func (t *LipTracker) Process(frame *models.VideoFrame, landmarks []models.NormalizedLandmarkList, detections []models.Detection, ts time.Duration) (*WindowResult, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("%w at time %.3fs", ErrMissingVideo, ts.Seconds())
	}

	sig := models.FrameSignal{
		Frame:     frame.Clone(),
		Timestamp: ts,
	}
	if len(landmarks) > 0 && len(detections) > 0 {
		sig.Landmarks = append([]models.NormalizedLandmarkList(nil), landmarks...)
		sig.Detections = append([]models.Detection(nil), detections...)
	}

	return t.Accumulate(sig)
}

// Accumulate buffers sig and evaluates the window once it spans
// MinSpeakerSpan. It returns nil while the window is still filling.
func (t *LipTracker) Accumulate(sig models.FrameSignal) (*WindowResult, error) {
	if sig.Frame.Empty() {
		return nil, fmt.Errorf("%w at time %.3fs", ErrMissingVideo, sig.Timestamp.Seconds())
	}
	if t.frameWidth < 0 {
		t.frameWidth = sig.Frame.Width
		t.frameHeight = sig.Frame.Height
		t.frameFormat = sig.Frame.Format
	}

	t.buffer = append(t.buffer, sig)

	if sig.Timestamp-t.buffer[0].Timestamp < t.opts.MinSpeakerSpan {
		return nil, nil
	}
	return t.flush()
}

// Close evaluates whatever is still buffered and resets the cross-window
// state. An empty buffer yields nil.
func (t *LipTracker) Close() (*WindowResult, error) {
	var (
		res *WindowResult
		err error
	)
	if len(t.buffer) > 0 {
		res, err = t.flush()
	}
	t.decision = NewSpeakerDecisionState()
	return res, err
}

func (t *LipTracker) flush() (*WindowResult, error) {
	frames := t.buffer
	t.buffer = nil

	evaluator := windowEvaluator{
		opts:       t.opts,
		classifier: t.classifier,
		width:      t.frameWidth,
		height:     t.frameHeight,
	}

	t.decision.Strength = SpeakerStrength{}
	ev, strength := evaluator.evaluate(frames, t.decision.Strength)
	t.decision.Strength = strength

	firstTS := frames[0].Timestamp
	res := &WindowResult{
		StartTimestamp: firstTS,
		EndTimestamp:   frames[len(frames)-1].Timestamp,
		Outputs:        make([]models.FrameOutput, len(frames)),
		MetaFaces:      ev.MetaFaces,
		Frames:         ev.Frames,
	}

	if !ev.HasSpeaker {
		decision, next := t.decider.Decide(t.decision, nil, firstTS)
		t.decision = next
		res.Shot = decision.Signal

		for pos, sig := range frames {
			res.Outputs[pos] = models.FrameOutput{Timestamp: sig.Timestamp, Detections: []models.Detection{}}
		}
		t.log.Debugf("Window %.3fs-%.3fs: %d frames, %d meta faces, no speaker",
			res.StartTimestamp.Seconds(), res.EndTimestamp.Seconds(), len(frames), len(ev.MetaFaces))
		return res, t.render(frames, res)
	}

	dominant := ev.Dominant
	res.Dominant = &dominant

	// the earliest box of the dominant speaker in this window
	first, _ := dominant.FirstFrame()
	carried := frames[first].Detections[dominant.Faces[first]]

	decision, next := t.decider.Decide(t.decision, &carried, firstTS)
	t.decision = next
	res.Shot = decision.Signal
	res.Changed = decision.Changed

	if res.Shot != nil && res.Shot.Changed {
		t.log.Infof("Speakers change at: %.3f seconds.", firstTS.Seconds())
	}

	for pos, sig := range frames {
		if idx := dominant.Faces[pos]; idx != Absent {
			carried = sig.Detections[idx]
		}
		res.Outputs[pos] = models.FrameOutput{
			Timestamp:  sig.Timestamp,
			Detections: []models.Detection{carried},
		}
	}
	t.decision.Remember(dominant.ID, carried)

	t.log.Debugf("Window %.3fs-%.3fs: %d frames, %d meta faces, speaker %d with %d hits",
		res.StartTimestamp.Seconds(), res.EndTimestamp.Seconds(), len(frames), len(ev.MetaFaces), dominant.ID, dominant.Hits)
	return res, t.render(frames, res)
}

func (t *LipTracker) render(frames []models.FrameSignal, res *WindowResult) error {
	if t.renderer == nil {
		return nil
	}
	for pos, sig := range frames {
		out, err := t.renderer.Render(sig.Frame, res.Frames[pos], res.Outputs[pos].Detections)
		if err != nil {
			return fmt.Errorf("render frame at %.3fs: %w", sig.Timestamp.Seconds(), err)
		}
		if out.Format == "" {
			out.Format = t.frameFormat
		}
		res.Outputs[pos].Rendered = &out
	}
	return nil
}
