package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"SPEAKER_TRACK/go-backend/internal/models"
)

// The face-mesh service runs the landmark model outside this process.
const (
	FaceMesh_ServiceName                    = "facemesh.FaceMesh"
	FaceMesh_DetectLandmarks_FullMethodName = "/facemesh.FaceMesh/DetectLandmarks"
	FaceMesh_Health_FullMethodName          = "/facemesh.FaceMesh/Health"
)

type LandmarkRequest struct {
	Frame       models.VideoFrame `json:"frame"`
	TimestampUs int64             `json:"timestamp_us"`
}

// LandmarkReply holds one landmark list per detection, index-aligned.
type LandmarkReply struct {
	Landmarks  []models.NormalizedLandmarkList `json:"landmarks"`
	Detections []models.Detection              `json:"detections"`
}

type FaceMeshClient interface {
	DetectLandmarks(ctx context.Context, in *LandmarkRequest, opts ...grpc.CallOption) (*LandmarkReply, error)
	Health(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type faceMeshClient struct {
	cc grpc.ClientConnInterface
}

func NewFaceMeshClient(cc grpc.ClientConnInterface) FaceMeshClient {
	return &faceMeshClient{cc}
}

func (c *faceMeshClient) DetectLandmarks(ctx context.Context, in *LandmarkRequest, opts ...grpc.CallOption) (*LandmarkReply, error) {
	out := new(LandmarkReply)
	if err := c.cc.Invoke(ctx, FaceMesh_DetectLandmarks_FullMethodName, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *faceMeshClient) Health(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FaceMesh_Health_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type FaceMeshServer interface {
	DetectLandmarks(context.Context, *LandmarkRequest) (*LandmarkReply, error)
	Health(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

type UnimplementedFaceMeshServer struct{}

func (UnimplementedFaceMeshServer) DetectLandmarks(context.Context, *LandmarkRequest) (*LandmarkReply, error) {
	return nil, status.Error(codes.Unimplemented, "method DetectLandmarks not implemented")
}

func (UnimplementedFaceMeshServer) Health(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Health not implemented")
}

func RegisterFaceMeshServer(s grpc.ServiceRegistrar, srv FaceMeshServer) {
	s.RegisterService(&FaceMesh_ServiceDesc, srv)
}

func _FaceMesh_DetectLandmarks_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(LandmarkRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FaceMeshServer).DetectLandmarks(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FaceMesh_DetectLandmarks_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FaceMeshServer).DetectLandmarks(ctx, req.(*LandmarkRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _FaceMesh_Health_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FaceMeshServer).Health(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FaceMesh_Health_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FaceMeshServer).Health(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

var FaceMesh_ServiceDesc = grpc.ServiceDesc{
	ServiceName: FaceMesh_ServiceName,
	HandlerType: (*FaceMeshServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "DetectLandmarks", Handler: _FaceMesh_DetectLandmarks_Handler},
		{MethodName: "Health", Handler: _FaceMesh_Health_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "facemesh.proto",
}
