package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"SPEAKER_TRACK/go-backend/internal/config"
	"SPEAKER_TRACK/go-backend/internal/database"
	"SPEAKER_TRACK/go-backend/internal/handlers"
	"SPEAKER_TRACK/go-backend/internal/services"
	"SPEAKER_TRACK/go-backend/internal/tracker"
	"SPEAKER_TRACK/go-backend/pkg/rpc"
)

func serveCmd() *cobra.Command {
	var httpPort, grpcPort, faceMeshURL string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC, HTTP and WebSocket servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			if httpPort != "" {
				cfg.HTTPPort = httpPort
			}
			if grpcPort != "" {
				cfg.GRPCPort = grpcPort
			}
			if faceMeshURL != "" {
				cfg.FaceMeshURL = faceMeshURL
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVar(&httpPort, "http-port", "", "HTTP port (overrides HTTP_PORT)")
	cmd.Flags().StringVar(&grpcPort, "grpc-port", "", "gRPC port (overrides GRPC_PORT)")
	cmd.Flags().StringVar(&faceMeshURL, "face-mesh-url", "", "face mesh service address (overrides FACE_MESH_URL)")
	return cmd
}

func trimPort(port string) string {
	if len(port) > 0 && port[0] == ':' {
		return port[1:]
	}
	return port
}

func runServe(cfg *config.Config) error {
	log.Println("Starting...")
	log.Printf("gRPC port: %s", cfg.GRPCPort)
	log.Printf("HTTP port: %s", cfg.HTTPPort)
	log.Printf("Face mesh service: %s", cfg.FaceMeshURL)
	log.Printf("Database: %s", cfg.DSNForLog())
	log.Printf("Environment: %s", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := config.NewOptionsWatcher(cfg.TrackerOptionsFile)
	if err != nil {
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		log.Warnf("Tracker options will not be reloaded: %v", err)
	}
	watcher.OnLoad(func(o tracker.Options) {
		log.Infof("New sessions use min_speaker_span=%s min_shot_span=%s", o.MinSpeakerSpan, o.MinShotSpan)
	})

	metrics := services.GetMetrics()
	hub := handlers.NewHub(metrics)
	sessionOpts := []services.SessionOption{
		services.WithBroadcaster(hub),
		services.WithMetrics(metrics),
		services.WithMaxSessions(cfg.MaxSessions),
	}

	var history handlers.HistoryStore
	driver, dsn := cfg.Database()
	store, err := database.InitDB(ctx, driver, dsn)
	if err != nil {
		log.Printf("Database unavailable: %v", err)
		log.Println("Continuing without persistence")
	} else {
		defer store.Close()
		history = store
		sessionOpts = append(sessionOpts, services.WithStore(store))

		retention := services.NewRetentionJob(store, cfg.RetentionDays)
		if err := retention.Start(cfg.RetentionSchedule); err != nil {
			return err
		}
		defer retention.Stop()
	}

	// Подключение к face mesh
	var faceMeshHealth handlers.HealthChecker
	if cfg.FaceMeshURL != "" {
		faceMesh, err := services.NewFaceMeshClient(cfg.FaceMeshURL, cfg.MaxMessageSizeMB)
		if err != nil {
			log.Printf("Face mesh service unavailable: %v", err)
			log.Println("Continuing with client-supplied landmarks only")
		} else {
			defer faceMesh.Close()
			faceMeshHealth = faceMesh
			sessionOpts = append(sessionOpts, services.WithLandmarkSource(faceMesh))
		}
	}

	sessions := services.NewSessionManager(watcher.Current, sessionOpts...)
	hub.SetFrameProcessor(sessions)

	// gRPC сервер
	maxMsg := cfg.MaxMessageSizeMB * 1024 * 1024
	grpcServer := grpc.NewServer(
		grpc.MaxRecvMsgSize(maxMsg),
		grpc.MaxSendMsgSize(maxMsg),
	)
	rpc.RegisterLipTrackServer(grpcServer, handlers.NewGRPCHandler(sessions, faceMeshHealth, hub.Count))

	api := handlers.NewAPI(sessions, history, hub, faceMeshHealth, handlers.APIConfig{
		TokenHash:   cfg.APITokenHash,
		RatePerMin:  cfg.RateLimitPerMin,
		CORSOrigins: cfg.CORSOrigins,
		MaxBodyMB:   cfg.MaxMessageSizeMB,
	})
	httpServer := &http.Server{
		Addr:         ":" + trimPort(cfg.HTTPPort),
		Handler:      api.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+trimPort(cfg.GRPCPort))
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		log.Printf("gRPC server listening on port %s", trimPort(cfg.GRPCPort))
		errCh <- grpcServer.Serve(lis)
	}()
	go func() {
		port := trimPort(cfg.HTTPPort)
		log.Printf("HTTP server listening on port %s", port)
		log.Printf("WebSocket:  ws://localhost:%s/ws", port)
		log.Printf("REST API:   http://localhost:%s/api/*", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Ждём сигнала
	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		log.Errorf("Server failed: %v", serveErr)
	}
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		log.Println("Stopping gRPC server...")
		grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		log.Println("Stopped")
	case <-shutdownCtx.Done():
		log.Println("Forced shutdown")
		grpcServer.Stop()
	}

	httpShutdownCtx, cancelHTTP := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelHTTP()

	log.Println("Stopping HTTP server...")
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	} else {
		log.Println("HTTP server gracefully stopped")
	}

	log.Println("Flushing open sessions...")
	sessions.CloseAll(context.Background())

	log.Println("Closing WebSocket connections...")
	hub.CloseAll()

	log.Println("Goodbye!")
	return serveErr
}
