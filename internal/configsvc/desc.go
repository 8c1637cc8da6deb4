package configsvc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "groundproc.config.v1.ConfigService"

// ConfigServiceServer is the server API for the config service. Messages are
// protobuf well-known types; configurations travel as rdfpb record lists.
type ConfigServiceServer interface {
	// ListConfigs returns the stored configuration names as string values.
	ListConfigs(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	// GetConfig returns the named configuration as an ordered record list.
	GetConfig(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
	// GetValue takes {"config": ..., "key": ...} and returns one record.
	GetValue(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// Request fields of GetValue.
const (
	FieldConfig = "config"
	FieldKey    = "key"
)

// FullMethod returns the gRPC path of a ConfigService method.
func FullMethod(method string) string { return "/" + ServiceName + "/" + method }

// ServiceDesc describes ConfigService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ConfigServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListConfigs", ConfigServiceServer.ListConfigs),
		unary("GetConfig", ConfigServiceServer.GetConfig),
		unary("GetValue", ConfigServiceServer.GetValue),
	},
	Streams: []grpc.StreamDesc{},
}

// Register attaches srv to s.
func Register(s grpc.ServiceRegistrar, srv ConfigServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unary[Req, Resp any](name string, call func(ConfigServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	full := FullMethod(name)
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(ConfigServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			})
		},
	}
}
