package configsvc

import (
	"context"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/signalsfoundry/groundproc/rdf"
	"github.com/signalsfoundry/groundproc/rdfpb"
)

// Client calls a remote ConfigService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an existing connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Dial opens an insecure, traced connection to addr.
func Dial(addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
	return grpc.NewClient(addr, append(base, opts...)...)
}

// ListConfigs returns the names of the stored configurations.
func (c *Client) ListConfigs(ctx context.Context, opts ...grpc.CallOption) ([]string, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, FullMethod("ListConfigs"), &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(out.GetValues()))
	for _, v := range out.GetValues() {
		names = append(names, v.GetStringValue())
	}
	return names, nil
}

// GetConfig fetches a whole configuration.
func (c *Client) GetConfig(ctx context.Context, name string, opts ...grpc.CallOption) (*rdf.Mapping, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, FullMethod("GetConfig"), wrapperspb.String(name), out, opts...); err != nil {
		return nil, err
	}
	return rdfpb.FromList(out)
}

// GetValue fetches one record of a configuration.
func (c *Client) GetValue(ctx context.Context, name, key string, opts ...grpc.CallOption) (rdf.Record, error) {
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldConfig: structpb.NewStringValue(name),
		FieldKey:    structpb.NewStringValue(key),
	}}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod("GetValue"), in, out, opts...); err != nil {
		return rdf.Record{}, err
	}
	m, err := rdfpb.FromList(&structpb.ListValue{Values: []*structpb.Value{structpb.NewStructValue(out)}})
	if err != nil {
		return rdf.Record{}, err
	}
	return m.Records()[0], nil
}
