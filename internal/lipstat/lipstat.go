// Package lipstat turns face-mesh landmarks into the mouth aspect ratio used
// as the speaking signal.
package lipstat

import (
	"SPEAKER_TRACK/go-backend/internal/geometry"
	"SPEAKER_TRACK/go-backend/internal/models"
)

// FaceMeshLandmarks is the landmark count of a full face mesh. Shorter lists
// carry no usable lip contour.
const FaceMeshLandmarks = 468

const (
	LipLeftInnerCornerIdx  = 78
	LipRightInnerCornerIdx = 308
)

var (
	LipUpperIdx = []int{82, 13, 312}
	LipLowerIdx = []int{87, 14, 317}
	// LipContourIdx walks the inner lip contour, for renderers.
	LipContourIdx = []int{78, 82, 13, 312, 308, 317, 14, 87}
)

// Statistic is the per-face result. OK is false when the face was skipped;
// the slot is kept so indices stay aligned with the detections.
type Statistic struct {
	Value float64
	OK    bool
}

// MouthAspectRatio returns the average inner-lip opening divided by the
// mouth width, both in pixels.
func MouthAspectRatio(list models.NormalizedLandmarkList, width, height int) (float64, bool) {
	if list.Len() < FaceMeshLandmarks {
		return 0, false
	}
	marks := list.Landmarks

	mouthWidth := geometry.Distance(marks[LipLeftInnerCornerIdx], marks[LipRightInnerCornerIdx], width, height)
	if mouthWidth <= 0 {
		return 0, false
	}

	mouthHeight := 0.0
	for i := range LipUpperIdx {
		mouthHeight += geometry.Distance(marks[LipUpperIdx[i]], marks[LipLowerIdx[i]], width, height)
	}
	mouthHeight /= float64(len(LipUpperIdx))

	return mouthHeight / mouthWidth, true
}

// Extract computes one Statistic per landmark list, index-aligned with lists.
func Extract(lists []models.NormalizedLandmarkList, width, height int) []Statistic {
	out := make([]Statistic, len(lists))
	for i, list := range lists {
		v, ok := MouthAspectRatio(list, width, height)
		out[i] = Statistic{Value: v, OK: ok}
	}
	return out
}
