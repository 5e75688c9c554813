package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/ashureev/focusbooster/internal/api"
	"github.com/ashureev/focusbooster/internal/coach"
	"github.com/ashureev/focusbooster/internal/config"
	"github.com/ashureev/focusbooster/internal/relay"
	"github.com/ashureev/focusbooster/internal/session"
	"github.com/ashureev/focusbooster/internal/stats"
	"github.com/ashureev/focusbooster/internal/store"
	"github.com/ashureev/focusbooster/internal/telemetry"
	"github.com/ashureev/focusbooster/internal/timer"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the timer, view API and coach relay",
	Long: `Run the focus session and serve it over HTTP.

Examples:
  focusbooster serve                  # Listen on PORT (default 8080)
  focusbooster serve --port 3000      # Override the port
  focusbooster serve -c focus.yaml    # Load settings from a YAML file`,
	RunE: runServe,
}

var servePort string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "Port to listen on (overrides PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return err
	}
	if servePort != "" {
		cfg.Port = servePort
	}
	logger := newLogger(cfg.LogLevel, os.Stdout)

	logger.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	db, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("Failed to close store", "error", closeErr)
		}
	}()

	if err := db.Ping(context.Background()); err != nil {
		logger.Error("Database health check failed", "error", err)
		return err
	}
	logger.Info("Database connected", "path", cfg.DBPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder := newRecorder(ctx, cfg, logger)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := recorder.Close(closeCtx); err != nil {
			logger.Warn("Failed to flush metrics", "error", err)
		}
	}()

	// Coach relay, served by this process.
	gateway := relay.NewGateway(relay.GatewayConfig{
		URL:    cfg.Gateway.URL,
		APIKey: cfg.Gateway.APIKey,
		Model:  cfg.Gateway.Model,
	}, logger)
	relayHandler := relay.NewHandler(gateway, relay.Options{
		ClientKey:          cfg.Relay.ClientKey,
		MaxRequestBodySize: cfg.SSE.MaxRequestBodySize,
		RateLimit:          cfg.RateLimit.RequestsPerWindow,
		RateWindow:         cfg.RateLimit.WindowDuration,
		Logger:             logger,
	})
	defer relayHandler.Close()
	if cfg.Gateway.APIKey == "" {
		logger.Warn("GATEWAY_API_KEY not set, coach replies will fail")
	}

	relayURL, relayKey := relayTarget(cfg)
	coachClient := coach.NewClient(coach.ClientConfig{
		URL:     relayURL,
		APIKey:  relayKey,
		Timeout: cfg.Relay.Timeout,
	}, logger)
	logger.Info("Coach client configured", "relay_url", relayURL)

	svc := session.New(session.Config{
		Ticks:    timer.NewWallClock(cfg.TickInterval),
		Stats:    stats.New(db, stats.WithLogger(logger)),
		Sender:   coachClient,
		Recorder: recorder,
		Logger:   logger,
	})
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Session loop failed", "error", err)
		}
	}()

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	api.NewHealthHandler(db).RegisterHealth(r)
	relayHandler.RegisterRoutes(r)
	api.NewHandler(svc, api.Options{
		AllowedOrigins:     cfg.AllowedOrigins(),
		KeepaliveInterval:  cfg.SSE.KeepaliveInterval,
		RetryDelay:         cfg.SSE.RetryDelay,
		MaxRequestBodySize: cfg.SSE.MaxRequestBodySize,
		Logger:             logger,
	}).RegisterRoutes(r)

	// SSE connections require no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	grpcSrv, healthSrv, err := startGRPCHealth(cfg.GRPCHealthPort, logger)
	if err != nil {
		logger.Error("Failed to start gRPC health server", "error", err)
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Wait for shutdown signal.
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		logger.Error("Server failed", "error", err)
		stop()
		<-loopDone
		return err
	}
	stop()

	logger.Info("Shutting down gracefully...")

	if healthSrv != nil {
		healthSrv.Shutdown()
		grpcSrv.GracefulStop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		return err
	}
	<-loopDone

	logger.Info("Server stopped successfully")
	return nil
}

// relayTarget returns the relay URL and key the coach client uses. Without
// RELAY_URL it targets the relay mounted on this server.
func relayTarget(cfg *config.Config) (string, string) {
	if cfg.Relay.URL != "" {
		return cfg.Relay.URL, cfg.Relay.APIKey
	}
	key := cfg.Relay.APIKey
	if key == "" {
		key = cfg.Relay.ClientKey
	}
	return "http://127.0.0.1:" + cfg.Port + relay.FunctionPath, key
}

func newRecorder(ctx context.Context, cfg *config.Config, logger *slog.Logger) telemetry.Recorder {
	if !cfg.Telemetry.Enabled {
		return telemetry.NewNoOpRecorder()
	}
	exp, err := telemetry.NewExporter(ctx, telemetry.Config{
		Endpoint: cfg.Telemetry.Endpoint,
		Enabled:  cfg.Telemetry.Enabled,
		Insecure: cfg.Telemetry.Insecure,
	})
	if err != nil {
		logger.Warn("Metrics export disabled", "error", err)
		return telemetry.NewNoOpRecorder()
	}
	logger.Info("Metrics exporter started", "endpoint", cfg.Telemetry.Endpoint)
	return exp
}

// startGRPCHealth serves the standard gRPC health service when port is set.
func startGRPCHealth(port string, logger *slog.Logger) (*grpc.Server, *health.Server, error) {
	if port == "" {
		return nil, nil, nil
	}
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return nil, nil, fmt.Errorf("listen on gRPC health port: %w", err)
	}

	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		logger.Info("gRPC health server listening", "addr", lis.Addr().String())
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Error("gRPC health server failed", "error", err)
		}
	}()
	return grpcSrv, healthSrv, nil
}
