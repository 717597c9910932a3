package bootstrap

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/Domenick1991/skycheckout/config"
	flightsapi "github.com/Domenick1991/skycheckout/internal/api/flights_service_api"
	"github.com/Domenick1991/skycheckout/internal/service/flights"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const serviceName = "skycheckout"

type Servers struct {
	grpcServer  *grpc.Server
	health      *health.Server
	httpServer  *http.Server
	gatewayConn *grpc.ClientConn
}

// Run starts the gRPC health server and the HTTP server (REST API, gateway
// and swagger) and blocks until ctx is canceled or a server fails.
func Run(ctx context.Context, cfg *config.Config, api http.Handler, flightSvc flights.FlightUseCase, logger *logrus.Logger) error {
	s, err := newServers(cfg, api, flightSvc, logger)
	if err != nil {
		return err
	}
	defer s.gatewayConn.Close()

	errCh := make(chan error, 2)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}
	go func() { errCh <- s.grpcServer.Serve(lis) }()
	go func() { errCh <- s.httpServer.ListenAndServe() }()

	s.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	logger.WithFields(logrus.Fields{
		"http": cfg.HTTP.Address,
		"grpc": cfg.GRPC.Address,
	}).Info("servers started")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.health.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		s.grpcServer.GracefulStop()
		return nil
	}
}

func newServers(cfg *config.Config, api http.Handler, flightSvc flights.FlightUseCase, logger *logrus.Logger) (*Servers, error) {
	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	reflection.Register(grpcSrv)

	conn, err := grpc.NewClient(cfg.GRPC.Address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial gRPC %s: %w", cfg.GRPC.Address, err)
	}

	mux := runtime.NewServeMux(runtime.WithHealthzEndpoint(healthpb.NewHealthClient(conn)))
	if err := flightsapi.NewServer(flightSvc, logger).Register(mux); err != nil {
		conn.Close()
		return nil, fmt.Errorf("register flights gateway: %w", err)
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           newHandler(cfg, api, mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Servers{
		grpcServer:  grpcSrv,
		health:      healthSrv,
		httpServer:  httpSrv,
		gatewayConn: conn,
	}, nil
}

func newHandler(cfg *config.Config, api http.Handler, gateway http.Handler) http.Handler {
	handler := http.NewServeMux()
	handler.Handle("/api/", api)
	handler.Handle("/", gateway)

	if cfg.HTTP.SwaggerDir != "" {
		doc := filepath.Join(cfg.HTTP.SwaggerDir, "doc.json")
		handler.HandleFunc("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, doc)
		})
		handler.Handle("/swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	}
	return handler
}
