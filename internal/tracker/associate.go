package tracker

import (
	"SPEAKER_TRACK/go-backend/internal/geometry"
	"SPEAKER_TRACK/go-backend/internal/models"
)

// NoMatch marks a detection with no counterpart in the previous frame.
const NoMatch = -1

// MatchFace returns the index of the previous detection with the highest IOU
// above threshold. On equal IOU the earliest previous detection is kept.
func MatchFace(box models.Detection, previous []models.Detection, threshold float64) int {
	idx := NoMatch
	best := 0.0
	for i, prev := range previous {
		iou := geometry.IOU(prev.Box, box.Box)
		if iou <= threshold {
			continue
		}
		if iou > best {
			best = iou
			idx = i
		}
	}
	return idx
}

// Associate maps every current detection to its previous-frame index, or
// NoMatch. Several current faces may map to the same previous face.
func Associate(current, previous []models.Detection, threshold float64) []int {
	out := make([]int, len(current))
	for i, det := range current {
		out[i] = MatchFace(det, previous, threshold)
	}
	return out
}
