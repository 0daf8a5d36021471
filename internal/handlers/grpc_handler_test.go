package handlers

import (
	"context"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"

	"SPEAKER_TRACK/go-backend/internal/models"
	"SPEAKER_TRACK/go-backend/internal/services"
	"SPEAKER_TRACK/go-backend/pkg/rpc"
)

type staticHealth bool

func (h staticHealth) HealthCheck() bool { return bool(h) }

func newGRPCClient(t *testing.T, sessions *services.SessionManager) rpc.LipTrackClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	rpc.RegisterLipTrackServer(srv, NewGRPCHandler(sessions, staticHealth(true), func() int { return 2 }))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return rpc.NewLipTrackClient(conn)
}

func TestGRPCProcessFrameAndClose(t *testing.T) {
	sessions := services.NewSessionManager(testOptions)
	client := newGRPCClient(t, sessions)
	ctx := context.Background()

	sess, err := sessions.Create(ctx, models.CreateSessionRequest{})
	require.NoError(t, err)

	var reply *models.WindowReply
	for i, ratio := range []float64{0.05, 0.15, 0.3} {
		req := talkingFrame(i*100, ratio)
		req.SessionID = sess.ID
		reply, err = client.ProcessFrame(ctx, &req)
		require.NoError(t, err)
	}
	assert.True(t, reply.Flushed)
	assert.Equal(t, 0, reply.DominantMetaFace)
	require.NotNil(t, reply.Shot)
	assert.True(t, reply.Shot.Changed)

	closed, err := client.CloseSession(ctx, &rpc.CloseSessionRequest{SessionID: sess.ID})
	require.NoError(t, err)
	assert.False(t, closed.Flushed)

	_, err = client.CloseSession(ctx, &rpc.CloseSessionRequest{SessionID: sess.ID})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestGRPCProcessFrameValidation(t *testing.T) {
	client := newGRPCClient(t, services.NewSessionManager(testOptions))
	ctx := context.Background()

	req := talkingFrame(0, 0.1)
	_, err := client.ProcessFrame(ctx, &req)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	req.SessionID = "unknown"
	_, err = client.ProcessFrame(ctx, &req)
	assert.Equal(t, codes.NotFound, status.Code(err))

	req.Frame = nil
	_, err = client.ProcessFrame(ctx, &req)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPCStreamFlushesOnEnd(t *testing.T) {
	sessions := services.NewSessionManager(testOptions)
	client := newGRPCClient(t, sessions)

	stream, err := client.ProcessStream(context.Background())
	require.NoError(t, err)

	// three frames complete a window, the fourth is left for the flush
	for i, ratio := range []float64{0.05, 0.15, 0.3, 0.1} {
		req := talkingFrame(i*100, ratio)
		require.NoError(t, stream.Send(&req))
	}
	require.NoError(t, stream.CloseSend())

	var replies []*models.WindowReply
	for {
		reply, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		replies = append(replies, reply)
	}

	require.Len(t, replies, 5)
	sessionID := replies[0].SessionID
	assert.NotEmpty(t, sessionID)
	flushed := 0
	for _, r := range replies {
		assert.Equal(t, sessionID, r.SessionID)
		if r.Flushed {
			flushed++
		}
	}
	assert.Equal(t, 2, flushed)
	assert.True(t, replies[4].Flushed)
	assert.Len(t, replies[4].Outputs, 1)
	assert.Zero(t, sessions.Active())
}

func TestGRPCHealth(t *testing.T) {
	client := newGRPCClient(t, services.NewSessionManager(testOptions))

	health, err := client.Health(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Fields["status"].GetStringValue())
	assert.True(t, health.Fields["face_mesh_service"].GetBoolValue())
	assert.Equal(t, float64(2), health.Fields["active_clients"].GetNumberValue())
}

func TestGRPCStreamSurvivesFrameWithoutVideo(t *testing.T) {
	sessions := services.NewSessionManager(testOptions)
	client := newGRPCClient(t, sessions)

	stream, err := client.ProcessStream(context.Background())
	require.NoError(t, err)

	steps := []models.FrameRequest{talkingFrame(0, 0.05), talkingFrame(50, 0.1), talkingFrame(100, 0.15), talkingFrame(200, 0.3)}
	steps[1].Frame = nil

	var replies []*models.WindowReply
	for _, req := range steps {
		require.NoError(t, stream.Send(&req))
		reply, err := stream.Recv()
		require.NoError(t, err)
		replies = append(replies, reply)
	}
	require.NoError(t, stream.CloseSend())
	_, err = stream.Recv()
	assert.Equal(t, io.EOF, err)

	assert.Contains(t, replies[1].Error, "no video input")
	assert.False(t, replies[1].Flushed)
	assert.Equal(t, replies[0].SessionID, replies[1].SessionID)

	// the rejected step left no slot in the window
	last := replies[3]
	assert.Empty(t, last.Error)
	require.True(t, last.Flushed)
	assert.Len(t, last.Outputs, 3)
	require.NotNil(t, last.Shot)
	assert.True(t, last.Shot.Changed)
	assert.Zero(t, sessions.Active())
}
