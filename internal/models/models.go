package models

import "time"

type TrackingSession struct {
	ID        string     `json:"id"`
	Source    string     `json:"source,omitempty"`
	Status    string     `json:"status"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Notes     string     `json:"notes,omitempty"`
}

const (
	SessionActive = "active"
	SessionClosed = "closed"
)

// ShotEvent is a persisted shot-boundary signal.
type ShotEvent struct {
	ID        string        `json:"id"`
	SessionID string        `json:"session_id"`
	StreamTS  time.Duration `json:"-"`
	Changed   bool          `json:"changed"`
	CreatedAt time.Time     `json:"created_at"`
}

// WindowSummary is the persisted aggregate of one evaluated window.
type WindowSummary struct {
	ID               string        `json:"id"`
	SessionID        string        `json:"session_id"`
	StartTS          time.Duration `json:"-"`
	EndTS            time.Duration `json:"-"`
	Frames           int           `json:"frames"`
	MetaFaces        int           `json:"meta_faces"`
	DominantMetaFace int           `json:"dominant_meta_face"`
	DominantHits     int           `json:"dominant_hits"`
	CreatedAt        time.Time     `json:"created_at"`
}

type CreateSessionRequest struct {
	Source string `json:"source,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

// FrameRequest is one host step posted over HTTP or gRPC.
type FrameRequest struct {
	SessionID  string                   `json:"session_id"`
	Frame      *VideoFrame              `json:"frame"`
	Landmarks  []NormalizedLandmarkList `json:"landmarks,omitempty"`
	Detections []Detection              `json:"detections,omitempty"`
	// TimestampUs is the capture time in microseconds.
	TimestampUs int64 `json:"timestamp_us"`
}

func (r FrameRequest) Timestamp() time.Duration {
	return time.Duration(r.TimestampUs) * time.Microsecond
}

// WindowReply reports a flushed window; Flushed is false while frames are
// still buffering.
type WindowReply struct {
	SessionID        string        `json:"session_id"`
	Flushed          bool          `json:"flushed"`
	Outputs          []FrameOutput `json:"outputs,omitempty"`
	Shot             *ShotSignal   `json:"shot,omitempty"`
	DominantMetaFace int           `json:"dominant_meta_face"`
	MetaFaces        int           `json:"meta_faces"`
	// Error reports a rejected step on a stream that stays open.
	Error string `json:"error,omitempty"`
}
