package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The recovery service uses well-known protobuf types on the wire, so no
// generated code is involved. Uploads travel as BytesValue with the MIME
// type and client id in metadata; results and crops are Structs.
const (
	ServiceName = "recovery.v1.RecoveryService"

	runPipelineMethod = "/" + ServiceName + "/RunPipeline"
	submitCropMethod  = "/" + ServiceName + "/SubmitCrop"

	MetadataMimeType = "x-mime-type"
	MetadataClientID = "x-client-id"
)

// RecoveryServer is the server API for the recovery service.
type RecoveryServer interface {
	RunPipeline(ctx context.Context, in *wrapperspb.BytesValue) (*structpb.Struct, error)
	SubmitCrop(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

func RegisterRecoveryServer(s grpc.ServiceRegistrar, srv RecoveryServer) {
	s.RegisterService(&RecoveryServiceDesc, srv)
}

var RecoveryServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecoveryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RunPipeline", Handler: runPipelineHandler},
		{MethodName: "SubmitCrop", Handler: submitCropHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "recovery/v1/recovery.proto",
}

func runPipelineHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RecoveryServer).RunPipeline(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: runPipelineMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RecoveryServer).RunPipeline(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func submitCropHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RecoveryServer).SubmitCrop(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: submitCropMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RecoveryServer).SubmitCrop(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// RecoveryClient calls the recovery service.
type RecoveryClient struct {
	cc grpc.ClientConnInterface
}

func NewRecoveryClient(cc grpc.ClientConnInterface) *RecoveryClient {
	return &RecoveryClient{cc: cc}
}

// RunPipeline uploads data. mimeType and clientID may be empty.
func (c *RecoveryClient) RunPipeline(ctx context.Context, data []byte, mimeType, clientID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	var kv []string
	if mimeType != "" {
		kv = append(kv, MetadataMimeType, mimeType)
	}
	if clientID != "" {
		kv = append(kv, MetadataClientID, clientID)
	}
	if len(kv) > 0 {
		ctx = metadata.AppendToOutgoingContext(ctx, kv...)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, runPipelineMethod, wrapperspb.Bytes(data), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RecoveryClient) SubmitCrop(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, submitCropMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
