package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/signalsfoundry/groundproc/internal/configsvc"
	"github.com/signalsfoundry/groundproc/internal/logging"
	"github.com/signalsfoundry/groundproc/internal/observability"
	"github.com/signalsfoundry/groundproc/internal/reload"
	"github.com/signalsfoundry/groundproc/store"
)

func (a *app) serve(ctx context.Context, args []string) error {
	fs := a.flags("serve")
	grpcAddr := fs.String("grpc-addr", a.settings.GRPCAddr, "TCP address the config gRPC server listens on")
	metricsAddr := fs.String("metrics-addr", a.settings.MetricsAddr, "HTTP address for Prometheus /metrics (empty disables)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	lis, err := net.Listen("tcp", *grpcAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", *grpcAddr, err)
	}
	return a.runServer(ctx, lis, *metricsAddr, fs.Args())
}

// runServer loads files into a store, watches them for changes and serves
// the store on lis until ctx is cancelled.
func (a *app) runServer(ctx context.Context, lis net.Listener, metricsAddr string, files []string) error {
	defer lis.Close()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTracing, err := observability.InitTracing(ctx, a.settings.Tracing.config(), a.log)
	if err != nil {
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, a.log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	parserMetrics, err := observability.NewParserCollector(reg)
	if err != nil {
		return err
	}
	serviceMetrics, err := observability.NewServiceCollector(reg)
	if err != nil {
		return err
	}

	st := store.New(
		store.WithLoader(a.parser(parserMetrics)),
		store.WithLogger(a.log),
		store.WithMetrics(serviceMetrics),
	)
	watcher := reload.New(st,
		reload.WithDebounce(a.settings.Debounce),
		reload.WithLogger(a.log),
		reload.WithMetrics(parserMetrics),
	)
	seen := make(map[string]string, len(files))
	for _, path := range files {
		name := configName(path)
		if prev, dup := seen[name]; dup {
			return fmt.Errorf("%s and %s both map to configuration %q", prev, path, name)
		}
		seen[name] = path
		if err := watcher.Add(ctx, name, path); err != nil {
			return err
		}
	}
	watchDone, err := watcher.Start(ctx)
	if err != nil {
		return err
	}

	metricsSrv := serveMetrics(metricsAddr, serviceMetrics.Handler(), a.log)

	server := configsvc.NewServer(configsvc.NewService(st, a.log), a.log, serviceMetrics)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve(lis) }()
	a.log.Info(ctx, "serving configurations",
		logging.String("addr", lis.Addr().String()),
		logging.Int("configs", len(files)),
	)

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	a.log.Info(ctx, "shutting down config server")
	server.GracefulStop()
	cancel()
	<-watchDone

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return serveErr
}

func configName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func serveMetrics(addr string, handler http.Handler, log logging.Logger) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
