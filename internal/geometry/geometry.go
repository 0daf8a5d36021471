package geometry

import (
	"math"

	"SPEAKER_TRACK/go-backend/internal/models"
)

// Distance returns the pixel distance between two normalized landmarks on a
// width x height frame.
func Distance(a, b models.NormalizedLandmark, width, height int) float64 {
	dx := (a.X - b.X) * float64(width)
	dy := (a.Y - b.Y) * float64(height)
	return math.Sqrt(dx*dx + dy*dy)
}

// IOU returns intersection over union of two normalized boxes. Scale cancels
// out, so normalized coordinates are used directly. Degenerate inputs yield 0.
func IOU(a, b models.RelativeBoundingBox) float64 {
	areaA, areaB := a.Area(), b.Area()

	x1 := math.Max(a.XMin, b.XMin)
	y1 := math.Max(a.YMin, b.YMin)
	x2 := math.Min(a.XMin+a.Width, b.XMin+b.Width)
	y2 := math.Min(a.YMin+a.Height, b.YMin+b.Height)

	inter := 0.0
	if x2 > x1 && y2 > y1 && areaA > 0 && areaB > 0 {
		inter = (x2 - x1) * (y2 - y1)
	}

	union := areaA + areaB - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
