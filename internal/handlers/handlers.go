package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"SPEAKER_TRACK/go-backend/internal/database"
	"SPEAKER_TRACK/go-backend/internal/models"
	"SPEAKER_TRACK/go-backend/internal/services"
	"SPEAKER_TRACK/go-backend/internal/tracker"
)

const Version = "1.0"

// HistoryStore serves persisted sessions, shot events and window summaries.
type HistoryStore interface {
	ListSessions(ctx context.Context, limit int) ([]models.TrackingSession, error)
	GetSession(ctx context.Context, id string) (models.TrackingSession, error)
	ListShotEvents(ctx context.Context, sessionID string, onlyChanges bool) ([]models.ShotEvent, error)
	ListWindowSummaries(ctx context.Context, sessionID string) ([]models.WindowSummary, error)
}

// HealthChecker reports whether an upstream service answers.
type HealthChecker interface {
	HealthCheck() bool
}

type APIConfig struct {
	// TokenHash is a bcrypt hash of the bearer token; empty disables auth.
	TokenHash   string
	RatePerMin  int
	CORSOrigins string
	MaxBodyMB   int
}

type API struct {
	sessions *services.SessionManager
	history  HistoryStore
	hub      *Hub
	faceMesh HealthChecker
	cfg      APIConfig
	started  time.Time
}

func NewAPI(sessions *services.SessionManager, history HistoryStore, hub *Hub, faceMesh HealthChecker, cfg APIConfig) *API {
	return &API{
		sessions: sessions,
		history:  history,
		hub:      hub,
		faceMesh: faceMesh,
		cfg:      cfg,
		started:  time.Now(),
	}
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(a.cors)

	r.Get("/api/health", a.Health)
	r.Get("/api/metrics", a.Metrics)

	r.Group(func(r chi.Router) {
		if a.cfg.RatePerMin > 0 {
			r.Use(rateLimit(a.cfg.RatePerMin))
		}
		r.Use(a.auth)

		r.Route("/api/sessions", func(r chi.Router) {
			r.Post("/", a.CreateSession)
			r.Get("/", a.GetSessions)
			r.Route("/{id}", func(r chi.Router) {
				r.Post("/frames", a.PushFrame)
				r.Post("/close", a.CloseSession)
				r.Get("/shots", a.GetShots)
				r.Get("/windows", a.GetWindows)
			})
		})

		if a.hub != nil {
			r.Get("/ws", a.hub.ServeWS)
		}
	})
	return r
}

func (a *API) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := a.cfg.CORSOrigins
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimit applies one token bucket to the whole API.
func rateLimit(perMin int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(perMin)/60, perMin)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, "rate_limited", "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (a *API) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.TokenHash == "" {
			next.ServeHTTP(w, r)
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			// browsers cannot set headers on websocket upgrades
			token = r.URL.Query().Get("token")
		}
		if token == "" || bcrypt.CompareHashAndPassword([]byte(a.cfg.TokenHash), []byte(token)) != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or missing token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HashToken produces the API_TOKEN_HASH value for a token.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("response encode failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, models.ErrorResponse{
		Error:     message,
		Code:      code,
		Timestamp: time.Now().Unix(),
	})
}

// writeServiceError maps session and tracker errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrSessionNotFound), errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, services.ErrTooManySessions):
		writeError(w, http.StatusServiceUnavailable, "too_many_sessions", err.Error())
	case errors.Is(err, tracker.ErrMissingVideo), errors.Is(err, tracker.ErrInvalidOptions):
		writeError(w, http.StatusBadRequest, "invalid_frame", err.Error())
	default:
		log.Errorf("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal", "Internal server error")
	}
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	maxMB := a.cfg.MaxBodyMB
	if maxMB <= 0 {
		maxMB = 50
	}
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxMB)<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Invalid request body")
		return false
	}
	return true
}

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	faceMeshUp := false
	if a.faceMesh != nil {
		faceMeshUp = a.faceMesh.HealthCheck()
	}
	clients := 0
	if a.hub != nil {
		clients = a.hub.Count()
	}

	writeJSON(w, http.StatusOK, models.HealthStatus{
		Status:          "healthy",
		GoBackend:       "running",
		FaceMeshService: faceMeshUp,
		ActiveSessions:  a.sessions.Active(),
		ActiveClients:   clients,
		Uptime:          time.Since(a.started),
		Version:         Version,
	})
}

func (a *API) Metrics(w http.ResponseWriter, r *http.Request) {
	snap := a.sessions.Metrics().Snapshot()
	snap["system_uptime_sec"] = int(time.Since(a.started).Seconds())
	snap["timestamp"] = time.Now().Format(time.RFC3339)
	writeJSON(w, http.StatusOK, snap)
}

func (a *API) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if r.ContentLength != 0 && !a.decode(w, r, &req) {
		return
	}

	sess, err := a.sessions.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// GetSessions lists open sessions, or persisted ones with ?all=true.
func (a *API) GetSessions(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("all") != "true" || a.history == nil {
		writeJSON(w, http.StatusOK, a.sessions.List())
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	sessions, err := a.history.ListSessions(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (a *API) PushFrame(w http.ResponseWriter, r *http.Request) {
	var req models.FrameRequest
	if !a.decode(w, r, &req) {
		return
	}
	req.SessionID = chi.URLParam(r, "id")

	reply, err := a.sessions.Push(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (a *API) CloseSession(w http.ResponseWriter, r *http.Request) {
	reply, err := a.sessions.Close(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (a *API) GetShots(w http.ResponseWriter, r *http.Request) {
	if a.history == nil {
		writeError(w, http.StatusNotImplemented, "no_store", "Persistence is disabled")
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := a.history.GetSession(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	events, err := a.history.ListShotEvents(r.Context(), id, r.URL.Query().Get("changes") == "true")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (a *API) GetWindows(w http.ResponseWriter, r *http.Request) {
	if a.history == nil {
		writeError(w, http.StatusNotImplemented, "no_store", "Persistence is disabled")
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := a.history.GetSession(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	summaries, err := a.history.ListWindowSummaries(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}
