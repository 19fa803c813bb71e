// Package health provides the gRPC health check server used by Kubernetes probes.
package health

import (
	"fmt"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServingStatus constants for convenience.
const (
	Serving    = healthpb.HealthCheckResponse_SERVING
	NotServing = healthpb.HealthCheckResponse_NOT_SERVING
)

type Server struct {
	healthServer *health.Server
	grpcServer   *grpc.Server
	mu           sync.Mutex
}

func NewServer() *Server {
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", NotServing)

	return &Server{healthServer: healthServer}
}

// Start serves the health service on port and blocks until the server stops
func (s *Server) Start(port int) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", port, err)
	}

	return s.Serve(listener)
}

// Serve serves the health service on an existing listener
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	s.grpcServer = grpc.NewServer()
	healthpb.RegisterHealthServer(s.grpcServer, s.healthServer)
	grpcServer := s.grpcServer
	s.mu.Unlock()

	return grpcServer.Serve(listener)
}

func (s *Server) SetServingStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.healthServer.SetServingStatus("", status)
}

// Stop marks the service as not serving and gracefully stops the gRPC server
func (s *Server) Stop() {
	s.healthServer.Shutdown()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
}
