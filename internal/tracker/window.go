package tracker

import (
	"SPEAKER_TRACK/go-backend/internal/lipstat"
	"SPEAKER_TRACK/go-backend/internal/models"
)

// FaceDiagnostics describes one face of one frame as the window saw it.
type FaceDiagnostics struct {
	MetaFace     int     `json:"meta_face"`
	Matched      int     `json:"matched"`
	Statistic    float64 `json:"statistic"`
	HasStatistic bool    `json:"has_statistic"`
	History      History `json:"history"`
	Speaking     bool    `json:"speaking"`
}

// FrameDiagnostics is the per-frame record handed to renderers.
type FrameDiagnostics struct {
	Timestamp  int64                           `json:"timestamp_us"`
	Skipped    bool                            `json:"skipped"`
	Speaker    int                             `json:"speaker"`
	Faces      []FaceDiagnostics               `json:"faces,omitempty"`
	Landmarks  []models.NormalizedLandmarkList `json:"-"`
	Detections []models.Detection              `json:"-"`
}

type windowEvaluation struct {
	Frames     []FrameDiagnostics
	MetaFaces  []MetaFace
	Dominant   MetaFace
	HasSpeaker bool
}

type windowEvaluator struct {
	opts       Options
	classifier Classifier
	width      int
	height     int
}

// evaluate runs association, lip statistics and classification over the
// buffered frames in order, carrying the track state frame to frame, and
// returns the meta-faces with their speaking hits.
func (e windowEvaluator) evaluate(frames []models.FrameSignal, strength SpeakerStrength) (windowEvaluation, SpeakerStrength) {
	arena := newMetaFaceArena(len(frames))
	var state FaceTrackState

	ev := windowEvaluation{Frames: make([]FrameDiagnostics, len(frames))}

	for pos, sig := range frames {
		diag := &ev.Frames[pos]
		diag.Timestamp = sig.Timestamp.Microseconds()
		diag.Speaker = NoSpeaker
		diag.Landmarks = sig.Landmarks
		diag.Detections = sig.Detections

		if !sig.HasFaces() {
			diag.Skipped = true
			continue
		}

		stats := lipstat.Extract(sig.Landmarks, e.width, e.height)
		histories := make(map[int]History, len(sig.Detections))
		metaIDs := make([]int, len(sig.Detections))
		speakerIdx := NoMatch

		for faceIdx, det := range sig.Detections {
			prevIdx := MatchFace(det, state.Detections, e.opts.IOUThreshold)

			// fewer landmark lists than detections leaves a gap
			var stat lipstat.Statistic
			if faceIdx < len(stats) {
				stat = stats[faceIdx]
			}

			h := state.nextHistory(prevIdx, stat.Value, stat.OK, e.opts.VarianceHistory)
			histories[faceIdx] = h

			if prevIdx != NoMatch {
				id := state.MetaFaces[prevIdx]
				arena.claim(id, pos, faceIdx)
				metaIDs[faceIdx] = id
			} else {
				metaIDs[faceIdx] = arena.mint(pos, faceIdx)
			}

			speaking, next := e.classifier.IsActiveSpeaker(h, strength)
			if speaking {
				strength = next
				speakerIdx = faceIdx
			}

			diag.Faces = append(diag.Faces, FaceDiagnostics{
				MetaFace:     metaIDs[faceIdx],
				Matched:      prevIdx,
				Statistic:    stat.Value,
				HasStatistic: stat.OK,
				History:      h,
				Speaking:     speaking,
			})
		}

		if speakerIdx != NoMatch {
			diag.Speaker = metaIDs[speakerIdx]
			arena.hit(diag.Speaker)
		}

		state = FaceTrackState{
			Detections: sig.Detections,
			Histories:  histories,
			MetaFaces:  metaIDs,
		}
		if e.opts.ResetStrengthEachFrame {
			strength = SpeakerStrength{}
		}
	}

	ev.Dominant, ev.HasSpeaker = arena.dominant()
	ev.MetaFaces = arena.snapshot()
	return ev, strength
}
