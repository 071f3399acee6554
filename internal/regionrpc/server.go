package regionrpc

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/signalsfoundry/skyregion/internal/logging"
	"github.com/signalsfoundry/skyregion/internal/observability"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server is a gRPC server hosting RegionService and the standard health
// service.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	log    logging.Logger
}

// NewServer wires the interceptor chain and registers svc. rpcMetrics may be
// nil.
func NewServer(svc RegionServiceServer, rpcMetrics *observability.RPCCollector, log logging.Logger, opts ...grpc.ServerOption) *Server {
	if log == nil {
		log = logging.Noop()
	}

	base := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			RequestIDUnaryServerInterceptor(log),
			TracingUnaryServerInterceptor(),
			rpcMetrics.UnaryServerInterceptor(),
		),
	}
	gs := grpc.NewServer(append(base, opts...)...)
	RegisterRegionServiceServer(gs, svc)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	return &Server{grpc: gs, health: hs, log: log}
}

// Serve accepts connections on lis until ctx is cancelled, then stops
// gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpc.Serve(lis)
	}()

	s.log.Info(ctx, "serving RegionService", logging.String("addr", lis.Addr().String()))

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpc.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}

// Stop closes every connection immediately.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.Stop()
}

// DialOptions returns the options clients of this service use: plaintext
// transport and trace propagation.
func DialOptions() []grpc.DialOption {
	return []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
}

// Dial opens a client connection to a region-server at addr.
func Dial(addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, append(DialOptions(), opts...)...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return conn, nil
}
