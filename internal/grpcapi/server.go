package grpcapi

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// CredentialService is the health name reported for the credential store.
const CredentialService = "labconsole.credentials"

// Server exposes the standard gRPC health service.  The overall status ("")
// follows the process; CredentialService follows a periodic store probe.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger *zap.Logger
}

func NewServer(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(CredentialService, healthpb.HealthCheckResponse_UNKNOWN)

	return &Server{grpc: gs, health: hs, logger: logger}
}

func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("grpc listening", zap.String("addr", lis.Addr().String()))
	return s.grpc.Serve(lis)
}

// Shutdown marks everything NOT_SERVING and drains in-flight calls.
func (s *Server) Shutdown(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpc.Stop()
	}
}

// SetCredentialHealth records the latest probe outcome.
func (s *Server) SetCredentialHealth(err error) {
	st := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(CredentialService, st)
}

// Probe runs check immediately and then every interval until ctx ends.
func (s *Server) Probe(ctx context.Context, interval time.Duration, check func(context.Context) error) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	run := func() {
		cctx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		err := check(cctx)
		if err != nil {
			s.logger.Warn("credential store probe failed", zap.Error(err))
		}
		s.SetCredentialHealth(err)
	}

	run()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
