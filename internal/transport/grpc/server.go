package transportgrpc

import (
	"fmt"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcinterceptors "github.com/ndk123-web/backend-structure/internal/transport/grpc/interceptors"
)

const (
	healthCheckMethod = "/grpc.health.v1.Health/Check"
	healthListMethod  = "/grpc.health.v1.Health/List"
)

// ServerDependencies encapsulates services required by the gRPC server layer.
type ServerDependencies struct {
	Authenticator  grpcinterceptors.Authenticator
	Logger         *zap.Logger
	Metrics        *grpcinterceptors.GRPCMetrics
	TracingEnabled bool
	TracerProvider trace.TracerProvider
	PublicMethods  []string // methods that don't require authentication
}

// Server bundles the grpc.Server with its health service so the caller can
// flip serving status during startup and shutdown.
type Server struct {
	*grpc.Server
	Health *health.Server
}

// NewServer wires gRPC services with authentication enforced through interceptors.
func NewServer(deps ServerDependencies) (*Server, error) {
	if deps.Authenticator == nil {
		return nil, fmt.Errorf("authenticator is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	public := append([]string{healthCheckMethod, healthListMethod}, deps.PublicMethods...)
	authInterceptor := grpcinterceptors.NewAuthInterceptor(deps.Authenticator, grpcinterceptors.AuthOptions{
		Logger:       logger.Named("grpc"),
		AllowMethods: public,
	})
	unaryInterceptors := []grpc.UnaryServerInterceptor{
		deps.Metrics.UnaryServerInterceptor(),
		authInterceptor.UnaryServerInterceptor(),
	}

	options := []grpc.ServerOption{grpc.ChainUnaryInterceptor(unaryInterceptors...)}
	if deps.TracingEnabled {
		options = append(options, grpcinterceptors.TracingServerOption(grpcinterceptors.TracingOptions{
			TracerProvider: deps.TracerProvider,
			SkipMethods:    []string{healthCheckMethod, healthListMethod},
		}))
	}

	server := grpc.NewServer(options...)

	RegisterIdentityServiceServer(server, NewIdentityServer(logger))

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus(IdentityServiceName, healthpb.HealthCheckResponse_SERVING)

	// Register reflection service for tools like Postman, grpcurl, etc.
	reflection.Register(server)

	return &Server{Server: server, Health: healthServer}, nil
}
