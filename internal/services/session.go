package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"SPEAKER_TRACK/go-backend/internal/models"
	"SPEAKER_TRACK/go-backend/internal/tracker"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many active sessions")
)

// Store is the persistence the session manager writes to.
type Store interface {
	CreateSession(ctx context.Context, sess models.TrackingSession) error
	EndSession(ctx context.Context, id string, end time.Time) error
	InsertShotEvent(ctx context.Context, ev models.ShotEvent) error
	InsertWindowSummary(ctx context.Context, w models.WindowSummary) error
}

// Broadcaster receives every flushed window.
type Broadcaster interface {
	Broadcast(sessionID string, reply models.WindowReply)
}

// LandmarkSource fills in faces for frames posted without them.
type LandmarkSource interface {
	DetectLandmarks(ctx context.Context, frame models.VideoFrame, ts time.Duration) ([]models.NormalizedLandmarkList, []models.Detection, error)
}

type trackedSession struct {
	mu      sync.Mutex
	info    models.TrackingSession
	tracker *tracker.LipTracker
	closed  bool
}

type SessionOption func(*SessionManager)

func WithStore(s Store) SessionOption {
	return func(m *SessionManager) { m.store = s }
}

func WithBroadcaster(b Broadcaster) SessionOption {
	return func(m *SessionManager) { m.hub = b }
}

func WithLandmarkSource(src LandmarkSource) SessionOption {
	return func(m *SessionManager) { m.landmarks = src }
}

func WithMetrics(metrics *Metrics) SessionOption {
	return func(m *SessionManager) { m.metrics = metrics }
}

func WithMaxSessions(n int) SessionOption {
	return func(m *SessionManager) { m.maxSessions = n }
}

func WithRenderer(r tracker.Renderer) SessionOption {
	return func(m *SessionManager) { m.renderer = r }
}

// SessionManager owns one LipTracker per stream. Frames of one session are
// processed one at a time; different sessions run concurrently.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*trackedSession

	options     func() tracker.Options
	maxSessions int
	store       Store
	hub         Broadcaster
	landmarks   LandmarkSource
	renderer    tracker.Renderer
	metrics     *Metrics
	now         func() time.Time
}

// NewSessionManager takes the options source consulted whenever a session is
// opened, so reloaded options apply to new sessions only.
func NewSessionManager(options func() tracker.Options, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		sessions:    make(map[string]*trackedSession),
		options:     options,
		maxSessions: 64,
		metrics:     NewMetrics(),
		now:         time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *SessionManager) Metrics() *Metrics {
	return m.metrics
}

// Create opens a session with a fresh id.
func (m *SessionManager) Create(ctx context.Context, req models.CreateSessionRequest) (models.TrackingSession, error) {
	return m.Open(ctx, uuid.NewString(), req)
}

// Open starts a session under id, or returns the running one.
func (m *SessionManager) Open(ctx context.Context, id string, req models.CreateSessionRequest) (models.TrackingSession, error) {
	m.mu.Lock()
	if sess, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return sess.snapshot(), nil
	}
	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		m.mu.Unlock()
		return models.TrackingSession{}, fmt.Errorf("%w (%d)", ErrTooManySessions, m.maxSessions)
	}

	options := []tracker.Option{tracker.WithLogger(log.WithField("session", id))}
	if m.renderer != nil {
		options = append(options, tracker.WithRenderer(m.renderer))
	}
	lt, err := tracker.New(m.options(), options...)
	if err != nil {
		m.mu.Unlock()
		return models.TrackingSession{}, err
	}

	sess := &trackedSession{
		info: models.TrackingSession{
			ID:        id,
			Source:    req.Source,
			Status:    models.SessionActive,
			StartTime: m.now().UTC(),
			Notes:     req.Notes,
		},
		tracker: lt,
	}
	info := sess.info
	m.sessions[id] = sess
	m.metrics.SetActiveSessions(len(m.sessions))
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.CreateSession(ctx, info); err != nil {
			log.Warnf("Session %s not persisted: %v", id, err)
		}
	}

	log.WithFields(log.Fields{"session": id, "source": req.Source}).Info("Session opened")
	return info, nil
}

func (m *SessionManager) get(id string) (*trackedSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// snapshot copies the session info; Close rewrites it under sess.mu.
func (s *trackedSession) snapshot() models.TrackingSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

func (m *SessionManager) Get(id string) (models.TrackingSession, error) {
	sess, err := m.get(id)
	if err != nil {
		return models.TrackingSession{}, err
	}
	return sess.snapshot(), nil
}

// List returns the open sessions, oldest first.
func (m *SessionManager) List() []models.TrackingSession {
	m.mu.RLock()
	open := make([]*trackedSession, 0, len(m.sessions))
	for _, sess := range m.sessions {
		open = append(open, sess)
	}
	m.mu.RUnlock()

	// sess.mu is taken outside m.mu, the order Close uses
	out := make([]models.TrackingSession, 0, len(open))
	for _, sess := range open {
		out = append(out, sess.snapshot())
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

func (m *SessionManager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Push runs one frame through the session's tracker. The reply is flushed
// only when the frame completed a window.
func (m *SessionManager) Push(ctx context.Context, req models.FrameRequest) (models.WindowReply, error) {
	start := m.now()

	sess, err := m.get(req.SessionID)
	if err != nil {
		return models.WindowReply{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return models.WindowReply{}, fmt.Errorf("%w: %s", ErrSessionNotFound, req.SessionID)
	}

	landmarks, detections := req.Landmarks, req.Detections
	if len(landmarks) == 0 && m.landmarks != nil && !req.Frame.Empty() {
		landmarks, detections, err = m.landmarks.DetectLandmarks(ctx, *req.Frame, req.Timestamp())
		if err != nil {
			// the frame still counts, as a frame without faces
			log.Warnf("Session %s: landmarks unavailable at %.3fs: %v", req.SessionID, req.Timestamp().Seconds(), err)
			m.metrics.IncrementErrors()
			landmarks, detections = nil, nil
		} else {
			m.metrics.IncrementLandmarkFetches()
		}
	}

	res, err := sess.tracker.Process(req.Frame, landmarks, detections, req.Timestamp())
	if err != nil {
		m.metrics.IncrementErrors()
		return models.WindowReply{}, err
	}

	m.metrics.IncrementFrames()
	m.metrics.RecordLatency(m.now().Sub(start))

	return m.publish(ctx, sess.info.ID, res), nil
}

// Close flushes the session's partial window and removes it.
func (m *SessionManager) Close(ctx context.Context, id string) (models.WindowReply, error) {
	sess, err := m.get(id)
	if err != nil {
		return models.WindowReply{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return models.WindowReply{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	res, err := sess.tracker.Close()
	sess.closed = true

	m.mu.Lock()
	delete(m.sessions, id)
	m.metrics.SetActiveSessions(len(m.sessions))
	m.mu.Unlock()

	end := m.now().UTC()
	sess.info.Status = models.SessionClosed
	sess.info.EndTime = &end
	if m.store != nil {
		if err := m.store.EndSession(ctx, id, end); err != nil {
			log.Warnf("Session %s end not persisted: %v", id, err)
		}
	}

	if err != nil {
		m.metrics.IncrementErrors()
		return models.WindowReply{SessionID: id}, err
	}

	log.WithField("session", id).Info("Session closed")
	return m.publish(ctx, id, res), nil
}

// CloseAll flushes every open session, used on shutdown.
func (m *SessionManager) CloseAll(ctx context.Context) {
	for _, sess := range m.List() {
		if _, err := m.Close(ctx, sess.ID); err != nil && !errors.Is(err, ErrSessionNotFound) {
			log.Warnf("Session %s close failed: %v", sess.ID, err)
		}
	}
}

func (m *SessionManager) publish(ctx context.Context, sessionID string, res *tracker.WindowResult) models.WindowReply {
	reply := models.WindowReply{SessionID: sessionID, DominantMetaFace: tracker.NoSpeaker}
	if res == nil {
		return reply
	}

	reply.Flushed = true
	reply.Outputs = res.Outputs
	reply.Shot = res.Shot
	reply.DominantMetaFace = res.DominantID()
	reply.MetaFaces = len(res.MetaFaces)

	m.metrics.IncrementWindows()
	if res.Shot != nil && res.Shot.Changed {
		m.metrics.IncrementShotChanges()
	}

	if m.store != nil {
		now := m.now().UTC()
		summary := models.WindowSummary{
			ID:               uuid.NewString(),
			SessionID:        sessionID,
			StartTS:          res.StartTimestamp,
			EndTS:            res.EndTimestamp,
			Frames:           len(res.Outputs),
			MetaFaces:        len(res.MetaFaces),
			DominantMetaFace: res.DominantID(),
			CreatedAt:        now,
		}
		if res.Dominant != nil {
			summary.DominantHits = res.Dominant.Hits
		}
		if err := m.store.InsertWindowSummary(ctx, summary); err != nil {
			log.Warnf("Session %s: window summary not persisted: %v", sessionID, err)
		}

		if res.Shot != nil {
			ev := models.ShotEvent{
				ID:        uuid.NewString(),
				SessionID: sessionID,
				StreamTS:  res.Shot.Timestamp,
				Changed:   res.Shot.Changed,
				CreatedAt: now,
			}
			if err := m.store.InsertShotEvent(ctx, ev); err != nil {
				log.Warnf("Session %s: shot event not persisted: %v", sessionID, err)
			}
		}
	}

	if m.hub != nil {
		m.hub.Broadcast(sessionID, reply)
	}
	return reply
}
