package services

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/emptypb"

	"SPEAKER_TRACK/go-backend/internal/models"
	"SPEAKER_TRACK/go-backend/pkg/rpc"
)

// FaceMeshClient fetches landmarks and face boxes for frames that arrive
// without them.
type FaceMeshClient struct {
	conn   *grpc.ClientConn
	client rpc.FaceMeshClient
	url    string
}

func NewFaceMeshClient(url string, maxMessageSizeMB int) (*FaceMeshClient, error) {
	log.Printf("Connecting to face mesh gRPC at %s", url)

	if maxMessageSizeMB <= 0 {
		maxMessageSizeMB = 50
	}
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(maxMessageSizeMB*1024*1024),
			grpc.MaxCallSendMsgSize(maxMessageSizeMB*1024*1024),
		),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                10 * time.Second,
			Timeout:             3 * time.Second,
			PermitWithoutStream: true,
		}),
	}

	conn, err := grpc.NewClient(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not connect to face mesh server at %s: %s", url, err)
	}

	return NewFaceMeshClientFromConn(conn, url), nil
}

// NewFaceMeshClientFromConn wraps an existing connection, which the client
// then owns.
func NewFaceMeshClientFromConn(conn *grpc.ClientConn, url string) *FaceMeshClient {
	return &FaceMeshClient{
		conn:   conn,
		client: rpc.NewFaceMeshClient(conn),
		url:    url,
	}
}

// DetectLandmarks returns index-aligned landmark lists and detections.
func (fc *FaceMeshClient) DetectLandmarks(ctx context.Context, frame models.VideoFrame, ts time.Duration) ([]models.NormalizedLandmarkList, []models.Detection, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	reply, err := fc.client.DetectLandmarks(ctx, &rpc.LandmarkRequest{
		Frame:       frame,
		TimestampUs: ts.Microseconds(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not detect landmarks: %w", err)
	}
	return reply.Landmarks, reply.Detections, nil
}

func (fc *FaceMeshClient) HealthCheck() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := fc.client.Health(ctx, &emptypb.Empty{})
	return err == nil
}

func (fc *FaceMeshClient) URL() string {
	return fc.url
}

func (fc *FaceMeshClient) Close() error {
	if fc.conn != nil {
		return fc.conn.Close()
	}
	return nil
}
