package lipstat

import "SPEAKER_TRACK/go-backend/internal/models"

// SyntheticMesh builds a full face mesh inside box whose mouth aspect ratio on
// a width x height frame equals ratio. Used by the test client and by tests
// that need controllable lip motion.
func SyntheticMesh(box models.RelativeBoundingBox, ratio float64, width, height int) models.NormalizedLandmarkList {
	cx := box.XMin + box.Width/2
	cy := box.YMin + box.Height/2
	mouthY := cy + box.Height/4
	halfMouth := box.Width / 4

	marks := make([]models.NormalizedLandmark, FaceMeshLandmarks)
	for i := range marks {
		marks[i] = models.NormalizedLandmark{X: cx, Y: cy}
	}

	marks[LipLeftInnerCornerIdx] = models.NormalizedLandmark{X: cx - halfMouth, Y: mouthY}
	marks[LipRightInnerCornerIdx] = models.NormalizedLandmark{X: cx + halfMouth, Y: mouthY}

	// opening in normalized y so that opening*height == ratio*mouthWidthPx
	opening := ratio * (2 * halfMouth) * float64(width) / float64(height)
	for i := range LipUpperIdx {
		x := cx + float64(i-1)*halfMouth/2
		marks[LipUpperIdx[i]] = models.NormalizedLandmark{X: x, Y: mouthY - opening/2}
		marks[LipLowerIdx[i]] = models.NormalizedLandmark{X: x, Y: mouthY + opening/2}
	}

	return models.NormalizedLandmarkList{Landmarks: marks}
}
