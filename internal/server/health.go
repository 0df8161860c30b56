package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported alongside the overall status.
const ServiceName = "catalog.Ingest"

// NewGRPCServer returns a gRPC server exposing the standard health service and
// reflection, plus the health server so callers can drive its status.
func NewGRPCServer(opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	s := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)
	return s, hs
}

// WatchHealth sets the serving status from checker every interval until ctx ends,
// then marks everything NOT_SERVING.
func WatchHealth(ctx context.Context, hs *health.Server, checker Checker, interval time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}

	last := healthpb.HealthCheckResponse_UNKNOWN
	check := func() {
		status := healthpb.HealthCheckResponse_SERVING
		if err := checker.HealthCheck(ctx, interval/2); err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			if ctx.Err() == nil {
				logger.Warn("health.check.failed", "error", err)
			}
		}
		if status != last {
			logger.Info("health.status.changed", "status", status.String())
			last = status
		}
		hs.SetServingStatus("", status)
		hs.SetServingStatus(ServiceName, status)
	}

	check()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
			check()
		}
	}
}
