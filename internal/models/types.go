package models

import "time"

// NormalizedLandmark is a face-mesh point with x/y in [0,1] relative to the frame.
type NormalizedLandmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z,omitempty"`
}

type NormalizedLandmarkList struct {
	Landmarks []NormalizedLandmark `json:"landmarks"`
}

func (l NormalizedLandmarkList) Len() int {
	return len(l.Landmarks)
}

// RelativeBoundingBox is a detection box normalized to the frame size.
type RelativeBoundingBox struct {
	XMin   float64 `json:"xmin"`
	YMin   float64 `json:"ymin"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (b RelativeBoundingBox) Area() float64 {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return b.Width * b.Height
}

type Detection struct {
	Box   RelativeBoundingBox `json:"box"`
	Score float64             `json:"score,omitempty"`
	Label string              `json:"label,omitempty"`
}

type VideoFrame struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format,omitempty"`
	Data   []byte `json:"data,omitempty"`
}

func (f *VideoFrame) Empty() bool {
	return f == nil || f.Width <= 0 || f.Height <= 0
}

// Clone copies the pixel buffer so the caller may reuse its frame.
func (f VideoFrame) Clone() VideoFrame {
	out := f
	if f.Data != nil {
		out.Data = append([]byte(nil), f.Data...)
	}
	return out
}

// FrameSignal is one buffered step: the frame copy plus the optional
// landmark lists and the parallel detections for the same instant.
type FrameSignal struct {
	Landmarks  []NormalizedLandmarkList `json:"landmarks,omitempty"`
	Detections []Detection              `json:"detections,omitempty"`
	Frame      VideoFrame               `json:"frame"`
	Timestamp  time.Duration            `json:"-"`
}

// HasFaces reports whether both landmark and detection inputs are present.
func (s FrameSignal) HasFaces() bool {
	return len(s.Landmarks) > 0 && len(s.Detections) > 0
}

// FrameOutput carries the speaker boxes emitted for one buffered frame.
type FrameOutput struct {
	Timestamp  time.Duration `json:"-"`
	Detections []Detection   `json:"detections"`
	Rendered   *VideoFrame   `json:"rendered,omitempty"`
}

// ShotSignal is the "speaker changed" boolean at a given timestamp.
type ShotSignal struct {
	Timestamp time.Duration `json:"-"`
	Changed   bool          `json:"changed"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Timestamp int64  `json:"timestamp"`
	Code      string `json:"code,omitempty"`
}

type HealthStatus struct {
	Status          string        `json:"status"`
	GoBackend       string        `json:"go_backend"`
	FaceMeshService bool          `json:"face_mesh_service"`
	ActiveSessions  int           `json:"active_sessions"`
	ActiveClients   int           `json:"active_clients"`
	Uptime          time.Duration `json:"uptime"`
	Version         string        `json:"version,omitempty"`
}
