package services

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"SPEAKER_TRACK/go-backend/internal/models"
	"SPEAKER_TRACK/go-backend/pkg/rpc"
)

type stubPurger struct {
	cutoff time.Time
	n      int64
	err    error
}

func (p *stubPurger) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	p.cutoff = cutoff
	return p.n, p.err
}

func TestRetentionRunOnce(t *testing.T) {
	purger := &stubPurger{n: 7}
	job := NewRetentionJob(purger, 30)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	n, err := job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, now.Add(-30*24*time.Hour), purger.cutoff)

	purger.err = errors.New("locked")
	_, err = job.RunOnce(context.Background())
	assert.Error(t, err)
}

func TestRetentionDisabled(t *testing.T) {
	purger := &stubPurger{n: 7}
	job := NewRetentionJob(purger, 0)

	assert.False(t, job.Enabled())
	n, err := job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, purger.cutoff.IsZero())
	require.NoError(t, job.Start("not a schedule"))
}

func TestRetentionRejectsBadSchedule(t *testing.T) {
	job := NewRetentionJob(&stubPurger{}, 1)
	assert.Error(t, job.Start("every now and then"))

	require.NoError(t, job.Start("@hourly"))
	job.Stop()
}

type fakeFaceMesh struct {
	rpc.UnimplementedFaceMeshServer
}

func (fakeFaceMesh) DetectLandmarks(_ context.Context, in *rpc.LandmarkRequest) (*rpc.LandmarkReply, error) {
	return &rpc.LandmarkReply{
		Landmarks:  []models.NormalizedLandmarkList{{}},
		Detections: []models.Detection{{Score: float64(in.Frame.Width)}},
	}, nil
}

func (fakeFaceMesh) Health(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return &structpb.Struct{}, nil
}

func TestFaceMeshClient(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	rpc.RegisterFaceMeshServer(srv, fakeFaceMesh{})
	go srv.Serve(lis)
	defer srv.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	client := NewFaceMeshClientFromConn(conn, "bufnet")
	defer client.Close()

	landmarks, detections, err := client.DetectLandmarks(context.Background(), models.VideoFrame{Width: 320, Height: 240}, time.Second)
	require.NoError(t, err)
	assert.Len(t, landmarks, 1)
	require.Len(t, detections, 1)
	assert.Equal(t, float64(320), detections[0].Score)
	assert.True(t, client.HealthCheck())
	assert.Equal(t, "bufnet", client.URL())
}

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.IncrementFrames()
	m.IncrementFrames()
	m.RecordLatency(3 * time.Millisecond)
	m.RecordLatency(1 * time.Millisecond)
	m.IncrementShotChanges()

	assert.InDelta(t, 2.0, m.GetAvgLatency(), 1e-9)
	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap["total_frames"])
	assert.Equal(t, int64(1), snap["total_shot_changes"])
	assert.Same(t, GetMetrics(), GetMetrics())
}
