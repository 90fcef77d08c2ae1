// Package grpcapi is the gateway's admin gRPC surface: a standard
// grpc_health_v1 service, per SPEC_FULL.md's SUPPLEMENTED "admin gRPC
// surface" feature. Adapted from the teacher's grpcapi package, which
// wired a full generated sync-service gRPC API (syncv1.SyncServiceServer
// et al.) against gen/go/sync/v1 — that generated package has no
// SPEC_FULL.md counterpart (this gateway has no gRPC-exposed sync
// protocol), so the sync RPCs and their correlation-id/auth interceptors
// were dropped rather than adapted; the grpc.Server construction pattern
// itself is kept.
package grpcapi

import (
	"context"
	"net"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server is the admin gRPC listener: standard health checking, so
// orchestrators (k8s, fly.io) can probe liveness independently of the
// HTTP surface.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
}

// NewServer builds the admin gRPC server.
func NewServer() *Server {
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, healthSrv)

	return &Server{grpcServer: gs, health: healthSrv}
}

// Serve blocks accepting connections on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		s.grpcServer.GracefulStop()
	}()
	log.Info().Str("addr", addr).Msg("starting admin gRPC server")
	return s.grpcServer.Serve(lis)
}

// SetServing updates the health service's overall serving status, e.g.
// flipping to NOT_SERVING during a drain before shutdown.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_SERVING
	if !serving {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
}
