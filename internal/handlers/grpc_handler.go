package handlers

import (
	"context"
	"errors"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"SPEAKER_TRACK/go-backend/internal/models"
	"SPEAKER_TRACK/go-backend/internal/services"
	"SPEAKER_TRACK/go-backend/internal/tracker"
	"SPEAKER_TRACK/go-backend/pkg/rpc"
)

type GRPCHandler struct {
	rpc.UnimplementedLipTrackServer
	sessions *services.SessionManager
	faceMesh HealthChecker
	clients  func() int
}

func NewGRPCHandler(sessions *services.SessionManager, faceMesh HealthChecker, clients func() int) *GRPCHandler {
	return &GRPCHandler{
		sessions: sessions,
		faceMesh: faceMesh,
		clients:  clients,
	}
}

func grpcError(err error) error {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, services.ErrTooManySessions):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, tracker.ErrMissingVideo), errors.Is(err, tracker.ErrInvalidOptions):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		log.Printf("Error: %v", err)
		return status.Error(codes.Internal, "processing failed")
	}
}

// ProcessFrame pushes one frame into an existing session.
func (h *GRPCHandler) ProcessFrame(ctx context.Context, req *models.FrameRequest) (*models.WindowReply, error) {
	start := time.Now()

	if req.SessionID == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	if req.Frame.Empty() {
		return nil, status.Error(codes.InvalidArgument, "frame is required")
	}

	reply, err := h.sessions.Push(ctx, *req)
	if err != nil {
		return nil, grpcError(err)
	}

	if reply.Flushed {
		log.Debugf("Session %s window flushed in %v, speaker %d", req.SessionID, time.Since(start), reply.DominantMetaFace)
	}
	return &reply, nil
}

// ProcessStream binds one session to the stream. The first message names it
// (a new one is opened when it has no session id); ending the send side
// flushes and closes the session. A step without video gets a reply carrying
// Error and the stream goes on.
func (h *GRPCHandler) ProcessStream(stream rpc.LipTrack_ProcessStreamServer) error {
	ctx := stream.Context()

	first, err := stream.Recv()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}

	var sess models.TrackingSession
	if first.SessionID == "" {
		sess, err = h.sessions.Create(ctx, models.CreateSessionRequest{Source: "grpc-stream"})
	} else {
		sess, err = h.sessions.Open(ctx, first.SessionID, models.CreateSessionRequest{Source: "grpc-stream"})
	}
	if err != nil {
		return grpcError(err)
	}
	log.Printf("Stream started for session %s", sess.ID)

	req := first
	for {
		req.SessionID = sess.ID
		reply, err := h.sessions.Push(ctx, *req)
		if errors.Is(err, tracker.ErrMissingVideo) {
			// only this step is lost, the session keeps its window
			log.Warnf("Session %s: %v", sess.ID, err)
			reply = models.WindowReply{SessionID: sess.ID, DominantMetaFace: tracker.NoSpeaker, Error: err.Error()}
		} else if err != nil {
			h.closeQuietly(sess.ID)
			return grpcError(err)
		}
		if err := stream.Send(&reply); err != nil {
			log.Printf("Client send error: %v", err)
			h.closeQuietly(sess.ID)
			return err
		}

		req, err = stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("Recv error: %v", err)
			h.closeQuietly(sess.ID)
			return err
		}
	}

	final, err := h.sessions.Close(ctx, sess.ID)
	if err != nil {
		return grpcError(err)
	}
	if final.Flushed {
		if err := stream.Send(&final); err != nil {
			return err
		}
	}

	log.Printf("Stream completed for session %s", sess.ID)
	return nil
}

func (h *GRPCHandler) closeQuietly(id string) {
	if _, err := h.sessions.Close(context.Background(), id); err != nil && !errors.Is(err, services.ErrSessionNotFound) {
		log.Warnf("Session %s close failed: %v", id, err)
	}
}

func (h *GRPCHandler) CloseSession(ctx context.Context, req *rpc.CloseSessionRequest) (*models.WindowReply, error) {
	if req.SessionID == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	reply, err := h.sessions.Close(ctx, req.SessionID)
	if err != nil {
		return nil, grpcError(err)
	}
	return &reply, nil
}

func (h *GRPCHandler) Health(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	faceMeshUp := false
	if h.faceMesh != nil {
		faceMeshUp = h.faceMesh.HealthCheck()
	}
	clients := 0
	if h.clients != nil {
		clients = h.clients()
	}

	log.Debugf("Health: FaceMesh=%v, Sessions=%d, Clients=%d", faceMeshUp, h.sessions.Active(), clients)

	return structpb.NewStruct(map[string]interface{}{
		"status":            "healthy",
		"face_mesh_service": faceMeshUp,
		"active_sessions":   h.sessions.Active(),
		"active_clients":    clients,
		"version":           Version,
	})
}
