package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"gochats/internal/chat/repository"
	"gochats/internal/config"
	"gochats/internal/wire"
)

const (
	shutdownTimeout    = 30 * time.Second
	storeProbeInterval = 15 * time.Second
	healthServiceName  = "chats.v1.ChatsService"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the gRPC health server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(config.LoadConfig())
		},
	}
}

func serve(cfg *config.Config) error {
	app, cleanup, err := wire.InitializeApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer cleanup()
	logger := app.Logger

	mainCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	indexCtx, cancel := context.WithTimeout(mainCtx, 10*time.Second)
	err = repository.EnsureIndexes(indexCtx, app.Messages)
	cancel()
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:           cfg.Addr(),
		Handler:        app.Router,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	healthServer.SetServingStatus(healthServiceName, healthpb.HealthCheckResponse_SERVING)

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		logger.Info("HTTP server starting", "address", server.Addr, "docs", "/api-docs")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		address := ":" + cfg.Server.GRPCHealthPort
		lis, err := net.Listen("tcp", address)
		if err != nil {
			return fmt.Errorf("failed to listen for gRPC on %s: %w", address, err)
		}
		logger.Info("gRPC health server starting", "address", address)
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		probeStore(groupCtx, app, healthServer, logger)
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		healthServer.Shutdown()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("HTTP server forced to shutdown", "error", err)
		}
		grpcServer.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("service stopped with error", "error", err)
		return err
	}
	logger.Info("service stopped")
	return nil
}

// probeStore flips the gRPC health status with store reachability.
func probeStore(ctx context.Context, app *wire.Application, hs *health.Server, logger *slog.Logger) {
	ticker := time.NewTicker(storeProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := app.Mongo.Ping(pingCtx)
			cancel()

			status := healthpb.HealthCheckResponse_SERVING
			if err != nil {
				status = healthpb.HealthCheckResponse_NOT_SERVING
				logger.Warn("MongoDB ping failed", "error", err)
			}
			hs.SetServingStatus(healthServiceName, status)
			hs.SetServingStatus("", status)
		}
	}
}
