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

const (
	LipTrack_ServiceName                  = "liptrack.LipTrack"
	LipTrack_ProcessFrame_FullMethodName  = "/liptrack.LipTrack/ProcessFrame"
	LipTrack_ProcessStream_FullMethodName = "/liptrack.LipTrack/ProcessStream"
	LipTrack_CloseSession_FullMethodName  = "/liptrack.LipTrack/CloseSession"
	LipTrack_Health_FullMethodName        = "/liptrack.LipTrack/Health"
)

type CloseSessionRequest struct {
	SessionID string `json:"session_id"`
}

type LipTrack_ProcessStreamServer = grpc.BidiStreamingServer[models.FrameRequest, models.WindowReply]
type LipTrack_ProcessStreamClient = grpc.BidiStreamingClient[models.FrameRequest, models.WindowReply]

type LipTrackClient interface {
	ProcessFrame(ctx context.Context, in *models.FrameRequest, opts ...grpc.CallOption) (*models.WindowReply, error)
	// ProcessStream carries one session; closing the send side flushes it.
	ProcessStream(ctx context.Context, opts ...grpc.CallOption) (LipTrack_ProcessStreamClient, error)
	CloseSession(ctx context.Context, in *CloseSessionRequest, opts ...grpc.CallOption) (*models.WindowReply, error)
	Health(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type lipTrackClient struct {
	cc grpc.ClientConnInterface
}

func NewLipTrackClient(cc grpc.ClientConnInterface) LipTrackClient {
	return &lipTrackClient{cc}
}

func (c *lipTrackClient) ProcessFrame(ctx context.Context, in *models.FrameRequest, opts ...grpc.CallOption) (*models.WindowReply, error) {
	out := new(models.WindowReply)
	if err := c.cc.Invoke(ctx, LipTrack_ProcessFrame_FullMethodName, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *lipTrackClient) ProcessStream(ctx context.Context, opts ...grpc.CallOption) (LipTrack_ProcessStreamClient, error) {
	stream, err := c.cc.NewStream(ctx, &LipTrack_ServiceDesc.Streams[0], LipTrack_ProcessStream_FullMethodName, withJSON(opts)...)
	if err != nil {
		return nil, err
	}
	return &grpc.GenericClientStream[models.FrameRequest, models.WindowReply]{ClientStream: stream}, nil
}

func (c *lipTrackClient) CloseSession(ctx context.Context, in *CloseSessionRequest, opts ...grpc.CallOption) (*models.WindowReply, error) {
	out := new(models.WindowReply)
	if err := c.cc.Invoke(ctx, LipTrack_CloseSession_FullMethodName, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *lipTrackClient) Health(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, LipTrack_Health_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type LipTrackServer interface {
	ProcessFrame(context.Context, *models.FrameRequest) (*models.WindowReply, error)
	ProcessStream(LipTrack_ProcessStreamServer) error
	CloseSession(context.Context, *CloseSessionRequest) (*models.WindowReply, error)
	Health(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// UnimplementedLipTrackServer must be embedded by implementations.
type UnimplementedLipTrackServer struct{}

func (UnimplementedLipTrackServer) ProcessFrame(context.Context, *models.FrameRequest) (*models.WindowReply, error) {
	return nil, status.Error(codes.Unimplemented, "method ProcessFrame not implemented")
}

func (UnimplementedLipTrackServer) ProcessStream(LipTrack_ProcessStreamServer) error {
	return status.Error(codes.Unimplemented, "method ProcessStream not implemented")
}

func (UnimplementedLipTrackServer) CloseSession(context.Context, *CloseSessionRequest) (*models.WindowReply, error) {
	return nil, status.Error(codes.Unimplemented, "method CloseSession not implemented")
}

func (UnimplementedLipTrackServer) Health(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Health not implemented")
}

func RegisterLipTrackServer(s grpc.ServiceRegistrar, srv LipTrackServer) {
	s.RegisterService(&LipTrack_ServiceDesc, srv)
}

func _LipTrack_ProcessFrame_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(models.FrameRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LipTrackServer).ProcessFrame(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: LipTrack_ProcessFrame_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LipTrackServer).ProcessFrame(ctx, req.(*models.FrameRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _LipTrack_ProcessStream_Handler(srv any, stream grpc.ServerStream) error {
	return srv.(LipTrackServer).ProcessStream(&grpc.GenericServerStream[models.FrameRequest, models.WindowReply]{ServerStream: stream})
}

func _LipTrack_CloseSession_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CloseSessionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LipTrackServer).CloseSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: LipTrack_CloseSession_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LipTrackServer).CloseSession(ctx, req.(*CloseSessionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _LipTrack_Health_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LipTrackServer).Health(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: LipTrack_Health_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LipTrackServer).Health(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

var LipTrack_ServiceDesc = grpc.ServiceDesc{
	ServiceName: LipTrack_ServiceName,
	HandlerType: (*LipTrackServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ProcessFrame", Handler: _LipTrack_ProcessFrame_Handler},
		{MethodName: "CloseSession", Handler: _LipTrack_CloseSession_Handler},
		{MethodName: "Health", Handler: _LipTrack_Health_Handler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "ProcessStream",
			Handler:       _LipTrack_ProcessStream_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "liptrack.proto",
}
