package services

import (
	"sync"
	"sync/atomic"
	"time"
)

type Metrics struct {
	totalFrames   atomic.Int64
	totalErrors   atomic.Int64
	totalLatency  atomic.Int64
	activeClients atomic.Int32
	lastFrameTime atomic.Int64

	totalWindows     atomic.Int64
	totalShotChanges atomic.Int64
	landmarkFetches  atomic.Int64
	activeSessions   atomic.Int32

	wsConnections atomic.Int64
	wsMessages    atomic.Int64
	wsErrors      atomic.Int64
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

func NewMetrics() *Metrics {
	return &Metrics{}
}

func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = NewMetrics()
	})
	return metricsInstance
}

func (m *Metrics) IncrementFrames() {
	m.totalFrames.Add(1)
	m.lastFrameTime.Store(time.Now().Unix())
}

func (m *Metrics) IncrementErrors() {
	m.totalErrors.Add(1)
}

// RecordLatency accumulates per-frame processing time in microseconds.
func (m *Metrics) RecordLatency(duration time.Duration) {
	m.totalLatency.Add(duration.Microseconds())
}

func (m *Metrics) IncrementWindows() {
	m.totalWindows.Add(1)
}

func (m *Metrics) IncrementShotChanges() {
	m.totalShotChanges.Add(1)
}

func (m *Metrics) IncrementLandmarkFetches() {
	m.landmarkFetches.Add(1)
}

func (m *Metrics) SetActiveSessions(count int) {
	m.activeSessions.Store(int32(count))
}

func (m *Metrics) SetActiveClients(count int) {
	m.activeClients.Store(int32(count))
}

func (m *Metrics) GetTotalFrames() int64 {
	return m.totalFrames.Load()
}

func (m *Metrics) GetTotalErrors() int64 {
	return m.totalErrors.Load()
}

func (m *Metrics) GetTotalWindows() int64 {
	return m.totalWindows.Load()
}

func (m *Metrics) GetTotalShotChanges() int64 {
	return m.totalShotChanges.Load()
}

// GetAvgLatency returns the mean per-frame latency in milliseconds.
func (m *Metrics) GetAvgLatency() float64 {
	frames := m.totalFrames.Load()
	if frames == 0 {
		return 0
	}
	return float64(m.totalLatency.Load()) / float64(frames) / 1000
}

func (m *Metrics) GetActiveSessions() int {
	return int(m.activeSessions.Load())
}

func (m *Metrics) GetActiveClients() int {
	return int(m.activeClients.Load())
}

func (m *Metrics) GetLastFrameTime() int64 {
	return m.lastFrameTime.Load()
}

func (m *Metrics) IncrementWebSocketConnections() {
	m.wsConnections.Add(1)
}

func (m *Metrics) DecrementWebSocketConnections() {
	m.wsConnections.Add(-1)
}

func (m *Metrics) GetWebSocketConnections() int64 {
	return m.wsConnections.Load()
}

func (m *Metrics) IncrementWebSocketMessages() {
	m.wsMessages.Add(1)
}

func (m *Metrics) IncrementWebSocketErrors() {
	m.wsErrors.Add(1)
}

// GetWebSocketMetrics returns WebSocket-specific metrics
func (m *Metrics) GetWebSocketMetrics() map[string]interface{} {
	return map[string]interface{}{
		"connections": m.wsConnections.Load(),
		"messages":    m.wsMessages.Load(),
		"errors":      m.wsErrors.Load(),
	}
}

// Snapshot is the /api/metrics payload.
func (m *Metrics) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"total_frames":       m.GetTotalFrames(),
		"total_errors":       m.GetTotalErrors(),
		"total_windows":      m.GetTotalWindows(),
		"total_shot_changes": m.GetTotalShotChanges(),
		"landmark_fetches":   m.landmarkFetches.Load(),
		"avg_latency_ms":     m.GetAvgLatency(),
		"active_sessions":    m.GetActiveSessions(),
		"active_clients":     m.GetActiveClients(),
		"last_frame_time":    m.GetLastFrameTime(),
		"websocket":          m.GetWebSocketMetrics(),
	}
}
