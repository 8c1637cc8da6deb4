// Package configsvc serves stored RDF configurations over gRPC.
package configsvc

import (
	"context"
	"fmt"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/signalsfoundry/groundproc/internal/logging"
	"github.com/signalsfoundry/groundproc/internal/observability"
	"github.com/signalsfoundry/groundproc/rdf"
	"github.com/signalsfoundry/groundproc/rdfpb"
	"github.com/signalsfoundry/groundproc/store"
)

// Service implements ConfigServiceServer over a store.
type Service struct {
	store *store.Store
	log   logging.Logger
}

var _ ConfigServiceServer = (*Service)(nil)

// NewService wires a Service to the shared store and optional logger.
func NewService(s *store.Store, log logging.Logger) *Service {
	if log == nil {
		log = logging.Noop()
	}
	return &Service{store: s, log: log}
}

func (s *Service) logger(ctx context.Context) logging.Logger {
	if l := logging.LoggerFromContext(ctx); l != nil {
		return l
	}
	return s.log
}

func (s *Service) ListConfigs(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	names := s.store.List()
	values := make([]*structpb.Value, 0, len(names))
	for _, name := range names {
		values = append(values, structpb.NewStringValue(name))
	}
	s.logger(ctx).Debug(ctx, "listed configurations", logging.Int("count", len(names)))
	return &structpb.ListValue{Values: values}, nil
}

func (s *Service) GetConfig(ctx context.Context, in *wrapperspb.StringValue) (*structpb.ListValue, error) {
	name := in.GetValue()
	if name == "" {
		return nil, ToStatusError(fmt.Errorf("%w: configuration name is required", ErrInvalidRequest))
	}

	_, span := otel.Tracer(tracerName).Start(ctx, "store.Get")
	span.SetAttributes(attribute.String("config.name", name))
	m, err := s.store.Get(name)
	span.End()
	if err != nil {
		s.logger(ctx).Debug(ctx, "configuration lookup failed", logging.String("name", name), logging.Err(err))
		return nil, ToStatusError(err)
	}
	return rdfpb.ToList(m), nil
}

func (s *Service) GetValue(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.GetFields()
	name := fields[FieldConfig].GetStringValue()
	key := fields[FieldKey].GetStringValue()
	if name == "" || key == "" {
		return nil, ToStatusError(fmt.Errorf("%w: %s and %s are required", ErrInvalidRequest, FieldConfig, FieldKey))
	}

	m, err := s.store.Get(name)
	if err != nil {
		return nil, ToStatusError(err)
	}
	f, ok := m.Field(key)
	if !ok {
		return nil, ToStatusError(fmt.Errorf("%w: %q in %q", rdf.ErrKeyNotFound, key, name))
	}
	return rdfpb.RecordStruct(rdf.Record{Key: key, Field: f}), nil
}

// NewServer builds a gRPC server with the request-ID, tracing and metrics
// interceptors chained in front of svc. metrics may be nil.
func NewServer(svc ConfigServiceServer, log logging.Logger, metrics *observability.ServiceCollector, extra ...grpc.ServerOption) *grpc.Server {
	opts := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			RequestIDUnaryServerInterceptor(log),
			TracingUnaryServerInterceptor(),
			metrics.UnaryServerInterceptor(),
		),
	}
	srv := grpc.NewServer(append(opts, extra...)...)
	Register(srv, svc)
	return srv
}
