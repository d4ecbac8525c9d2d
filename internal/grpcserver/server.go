// Package grpcserver exposes the standard gRPC health service, reporting
// SERVING while the portal database answers pings.
package grpcserver

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Service is the name reported next to the overall ("") status.
const Service = "karmasri.Portal"

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	Health   *health.Server
	DB       Pinger
	Interval time.Duration
	Log      *zap.Logger

	grpc *grpc.Server
}

func NewServer(db Pinger, interval time.Duration, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	s := &Server{
		Health:   health.NewServer(),
		DB:       db,
		Interval: interval,
		Log:      log,
		grpc:     grpc.NewServer(),
	}
	healthpb.RegisterHealthServer(s.grpc, s.Health)
	s.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

func (s *Server) set(st healthpb.HealthCheckResponse_ServingStatus) {
	s.Health.SetServingStatus("", st)
	s.Health.SetServingStatus(Service, st)
}

// Check pings the database once and updates the served status.
func (s *Server) Check(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.DB.PingContext(ctx); err != nil {
		s.Log.Warn("health: database ping failed", zap.Error(err))
		s.set(healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	s.set(healthpb.HealthCheckResponse_SERVING)
}

// Watch runs Check every Interval until ctx ends.
func (s *Server) Watch(ctx context.Context) {
	s.Check(ctx)
	t := time.NewTicker(s.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Check(ctx)
		}
	}
}

func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Stop marks the service down and drains in-flight calls.
func (s *Server) Stop() {
	s.Health.Shutdown()
	s.grpc.GracefulStop()
}
