package server

import (
	"context"
	"time"

	"google.golang.org/grpc"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"oms-backend/pkg/database"
)

// HealthServer answers grpc.health.v1 checks from the database health.
type HealthServer struct {
	grpc_health_v1.UnimplementedHealthServer
	db database.DatabaseInterface
}

func NewHealthServer(db database.DatabaseInterface) *HealthServer {
	return &HealthServer{db: db}
}

func RegisterHealth(server grpc.ServiceRegistrar, svc *HealthServer) {
	grpc_health_v1.RegisterHealthServer(server, svc)
}

func (s *HealthServer) status(ctx context.Context) grpc_health_v1.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := s.db.HealthCheck(ctx); err != nil {
		return grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	return grpc_health_v1.HealthCheckResponse_SERVING
}

func (s *HealthServer) Check(ctx context.Context, _ *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	return &grpc_health_v1.HealthCheckResponse{Status: s.status(ctx)}, nil
}

func (s *HealthServer) Watch(_ *grpc_health_v1.HealthCheckRequest, stream grpc_health_v1.Health_WatchServer) error {
	return stream.Send(&grpc_health_v1.HealthCheckResponse{Status: s.status(stream.Context())})
}
