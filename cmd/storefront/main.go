package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/MikeMC777/storefront/internal/config"
	"github.com/MikeMC777/storefront/internal/notify"
	"github.com/MikeMC777/storefront/internal/telemetry"
)

// @title       Storefront API
// @version     1.0
// @BasePath    /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "storefront", cfg.Tracing.Exporter, cfg.Tracing.OTLPEndpoint)
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	var b backend
	switch cfg.StoreDriver {
	case "memory":
		log.Printf("[db] using in-memory store, data is lost on exit")
		b = memoryBackend()
	default:
		if b, err = postgresBackend(ctx, cfg); err != nil {
			log.Fatalf("postgres: %v", err)
		}
	}
	defer b.close()

	sessions, closeSessions, err := sessionStore(ctx, cfg)
	if err != nil {
		log.Fatalf("sessions: %v", err)
	}
	defer closeSessions()

	a := newApp(cfg, b, sessions, notify.NewHub(cfg.CORS.AllowOrigins))
	if err := a.bootstrap(ctx); err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	grpcSrv, healthSrv := startHealth(cfg.GRPCHealthAddr)
	defer grpcSrv.GracefulStop()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(newRouter(a), "storefront"),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("storefront listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	healthSrv.Shutdown()
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
}

// startHealth serves the standard gRPC health service for orchestrators.
func startHealth(addr string) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus("storefront", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	l, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("grpc health listen: %v", err)
	}
	go func() {
		log.Printf("grpc health listening on %s", addr)
		if err := srv.Serve(l); err != nil {
			log.Printf("grpc health: %v", err)
		}
	}()
	return srv, hs
}
