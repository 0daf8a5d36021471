package tracker

import "SPEAKER_TRACK/go-backend/internal/models"

// History is an oldest-first run of mouth aspect ratios for one face.
type History []float64

// Extend returns a copy of h with v appended and the oldest values dropped
// until at most limit remain. h itself is never modified.
func (h History) Extend(v float64, limit int) History {
	out := make(History, 0, len(h)+1)
	out = append(out, h...)
	out = append(out, v)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Clone copies h.
func (h History) Clone() History {
	return append(History(nil), h...)
}

// FaceTrackState is what one processed frame hands to the next: its
// detections, and per face index the lip history and meta-face id.
type FaceTrackState struct {
	Detections []models.Detection
	Histories  map[int]History
	MetaFaces  []int
}

func (s *FaceTrackState) Reset() {
	s.Detections = nil
	s.Histories = nil
	s.MetaFaces = nil
}

// nextHistory builds the history ending at the current frame for a face that
// matched prevIdx (or NoMatch). A skipped statistic carries the matched
// history forward unchanged.
func (s *FaceTrackState) nextHistory(prevIdx int, value float64, ok bool, limit int) History {
	var base History
	if prevIdx != NoMatch {
		base = s.Histories[prevIdx]
	}
	if !ok {
		return base.Clone()
	}
	return base.Extend(value, limit)
}
