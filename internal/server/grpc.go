package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// NewGRPCServer registers the Recognizer and the standard health service,
// which reports SERVING for both the server and the Recognizer.
func NewGRPCServer(svc RecognizerServer, logger *slog.Logger) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(logger)))

	RegisterRecognizerServer(s, svc)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	// Reflection for grpcurl
	reflection.Register(s)
	return s, hs
}

func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc.request",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}
