package main

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/md-rashed-zaman/hotelbook/libs/config"
	"github.com/md-rashed-zaman/hotelbook/libs/grpcx"
	"github.com/md-rashed-zaman/hotelbook/libs/runtime"
)

type grpcServer struct {
	done chan struct{}
}

// Wait blocks until the server has stopped. A disabled server returns at once.
func (g *grpcServer) Wait() {
	if g.done != nil {
		<-g.done
	}
}

// startGRPC exposes the standard health service on GRPC_PORT, reporting the
// same checks as /readyz. GRPC_ENABLED=false turns it off.
func startGRPC(ctx context.Context, service string, logger *slog.Logger, checks []runtime.ReadyCheck) (*grpcServer, error) {
	if !config.Bool("GRPC_ENABLED", true) {
		logger.Info("grpc server disabled")
		return &grpcServer{}, nil
	}
	port, err := config.Port("GRPC_PORT", "9083")
	if err != nil {
		return nil, err
	}
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return nil, err
	}

	s := grpcx.NewServer(logger)
	health := grpcx.RegisterHealth(s, service, config.Seconds("GRPC_HEALTH_INTERVAL_SECONDS", 5*time.Second), logger, checks...)
	go health.Run(ctx)

	g := &grpcServer{done: make(chan struct{})}
	go func() {
		defer close(g.done)
		if err := grpcx.Serve(ctx, s, lis, logger); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()
	return g, nil
}
