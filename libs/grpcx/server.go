package grpcx

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/md-rashed-zaman/hotelbook/libs/runtime"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func NewServer(logger *slog.Logger, extra ...grpc.ServerOption) *grpc.Server {
	opts := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			UnaryServerRequestIDInterceptor(),
			UnaryServerLoggingInterceptor(logger),
		),
	}
	return grpc.NewServer(append(opts, extra...)...)
}

// HealthReporter mirrors the /readyz checks onto the standard gRPC health
// service. The overall status ("") and the named service share one status.
type HealthReporter struct {
	srv     *health.Server
	service string
	checks  []runtime.ReadyCheck
	every   time.Duration
	logger  *slog.Logger
}

func RegisterHealth(s *grpc.Server, service string, every time.Duration, logger *slog.Logger, checks ...runtime.ReadyCheck) *HealthReporter {
	if every <= 0 {
		every = 5 * time.Second
	}
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	return &HealthReporter{srv: hs, service: service, checks: checks, every: every, logger: logger}
}

// Refresh runs the checks once and publishes the result.
func (h *HealthReporter) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if failures := runtime.RunChecks(ctx, h.checks); len(failures) > 0 {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		h.logger.Warn("readiness check failed", "failures", failures)
	}
	h.srv.SetServingStatus("", status)
	h.srv.SetServingStatus(h.service, status)
	return status
}

// Run refreshes until ctx is done, then marks everything NOT_SERVING.
func (h *HealthReporter) Run(ctx context.Context) {
	h.Refresh(ctx)
	ticker := time.NewTicker(h.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.srv.Shutdown()
			return
		case <-ticker.C:
			h.Refresh(ctx)
		}
	}
}

// Serve blocks until ctx is done or the listener fails.
func Serve(ctx context.Context, s *grpc.Server, lis net.Listener, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("grpc server listening", "addr", lis.Addr().String())
		errCh <- s.Serve(lis)
	}()
	select {
	case <-ctx.Done():
		s.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}
