package observability

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// ServiceCollector bundles Prometheus metrics for the config service and the
// store behind it, and provides helpers to wire them into gRPC servers and
// HTTP handlers.
type ServiceCollector struct {
	gatherer prometheus.Gatherer

	RPCRequests  *prometheus.CounterVec
	RPCDurations *prometheus.HistogramVec

	StoreConfigs prometheus.Gauge
	StoreRecords prometheus.Gauge
}

// NewServiceCollector registers service metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewServiceCollector(reg prometheus.Registerer) (*ServiceCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "configsvc_requests_total",
		Help: "Total number of handled config service RPCs, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"})
	requests, err := register(reg, requests, "configsvc_requests_total")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "configsvc_request_duration_seconds",
		Help:    "Config service RPC latency in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"service", "method"})
	durations, err = register(reg, durations, "configsvc_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	configs, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "config_store_entries",
		Help: "Current number of named configurations held by the store.",
	}), "config_store_entries")
	if err != nil {
		return nil, err
	}
	records, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "config_store_records",
		Help: "Current number of records across all stored configurations.",
	}), "config_store_records")
	if err != nil {
		return nil, err
	}

	return &ServiceCollector{
		gatherer:     gatherer,
		RPCRequests:  requests,
		RPCDurations: durations,
		StoreConfigs: configs,
		StoreRecords: records,
	}, nil
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *ServiceCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if c == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		code := status.Code(err).String()

		if c.RPCRequests != nil {
			c.RPCRequests.WithLabelValues(service, method, code).Inc()
		}
		if c.RPCDurations != nil {
			c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
		}

		return resp, err
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *ServiceCollector) Handler() http.Handler {
	return handlerFor(c.gatherer)
}

func handlerFor(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetStoreCounts satisfies store.MetricsRecorder so the store can drive the
// gauges directly from its mutators.
func (c *ServiceCollector) SetStoreCounts(configs, records int) {
	if c == nil {
		return
	}
	if c.StoreConfigs != nil {
		c.StoreConfigs.Set(float64(configs))
	}
	if c.StoreRecords != nil {
		c.StoreRecords.Set(float64(records))
	}
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components. It tolerates empty strings and partial paths, returning
// "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

// register adds c to reg, or returns the collector already registered under
// the same descriptor when it has the same type.
func register[C prometheus.Collector](reg prometheus.Registerer, c C, name string) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
			var zero C
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero C
		return zero, err
	}
	return c, nil
}
