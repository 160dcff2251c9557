package server

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthChecker reports whether a dependency is usable.
type HealthChecker func(ctx context.Context) error

// NewGRPCHealthServer builds a gRPC server exposing only the standard health service.
func NewGRPCHealthServer() (*grpc.Server, *health.Server) {
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(gs)
	return gs, hs
}

// ServeGRPCHealth serves the health service on addr until ctx is done. When check is
// set it is consulted once at startup to pick the initial serving status.
func ServeGRPCHealth(ctx context.Context, addr string, check HealthChecker, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	gs, hs := NewGRPCHealthServer()
	if check != nil {
		if err := check(ctx); err != nil {
			logger.Warn("grpc.health.not_serving", "err", err)
			hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		}
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	logger.Info("grpc.health.listening", "addr", addr)

	errCh := make(chan error, 1)
	go func() { errCh <- gs.Serve(lis) }()

	select {
	case <-ctx.Done():
		hs.Shutdown()
		gs.GracefulStop()
		return nil
	case err := <-errCh:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}
