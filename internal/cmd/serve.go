package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/shop-admin/internal/adapter/handler"
	"github.com/rl1809/shop-admin/internal/adapter/identity"
	"github.com/rl1809/shop-admin/internal/adapter/messaging"
	"github.com/rl1809/shop-admin/internal/adapter/storage"
	"github.com/rl1809/shop-admin/internal/adapter/upload"
	"github.com/rl1809/shop-admin/internal/config"
	"github.com/rl1809/shop-admin/internal/core/domain"
	"github.com/rl1809/shop-admin/internal/core/service"
	"github.com/rl1809/shop-admin/internal/port"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and gRPC API",
	Long: `Start the shop admin API:
- REST API for products, orders, uploads and sessions
- gRPC OrderService with the standard health service
- background delivery of domain events to RabbitMQ or the log`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// eventPublisher is a publisher that holds a connection.
type eventPublisher interface {
	port.EventPublisher
	Close() error
}

type nopCloser struct{ port.EventPublisher }

func (nopCloser) Close() error { return nil }

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := cfg.Log.NewLogger()
	slog.SetDefault(logger)
	ctx := cmd.Context()

	store, closeStore, err := openStateStore(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(cfg.Auth.UsersDB); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create users db dir: %w", err)
		}
	}
	userDB, err := storage.OpenUserDB(cfg.Auth.UsersDB)
	if err != nil {
		return err
	}

	var publisher eventPublisher
	if cfg.Events.AMQPURL != "" {
		amqpPublisher, err := messaging.DialAMQP(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			return err
		}
		publisher = amqpPublisher
		logger.Info("publishing events to rabbitmq", "exchange", cfg.Events.Exchange)
	} else {
		publisher = nopCloser{messaging.NewLogPublisher(logger)}
	}

	// Start event workers
	dispatcher := service.NewEventDispatcher(cfg.Events.QueueSize)
	var workers sync.WaitGroup
	for i := 0; i < cfg.Events.Workers; i++ {
		workers.Add(1)
		go func(id int) {
			defer workers.Done()
			dispatcher.Run(publisher, cfg.Events.PublishTimeout, func(e domain.Event, err error) {
				logger.Error("event delivery failed", "worker", id, "event_id", e.ID, "type", e.Type, "error", err)
			})
		}(i)
	}
	logger.Info("started event workers", "count", cfg.Events.Workers)

	var uploader port.ImageUploader
	if cfg.Upload.APIKey != "" {
		uploader = upload.NewClient(cfg.Upload.Endpoint, cfg.Upload.APIKey, &http.Client{Timeout: cfg.Upload.Timeout})
	} else {
		logger.Warn("upload.api_key not set, image uploads are disabled")
	}

	var verifier port.FederatedVerifier
	if cfg.Auth.Google.ClientID != "" {
		verifier = identity.NewGoogleVerifier(cfg.Auth.Google.TokenInfoURL, cfg.Auth.Google.ClientID, nil)
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		logger.Warn("auth.jwt_secret not set, sessions will not survive a restart")
	}

	opts := []service.Option{
		service.WithEvents(dispatcher),
		service.WithPageSize(cfg.Pagination.PageSize),
		service.WithLogger(logger),
	}
	catalog := service.NewCatalogService(storage.NewCatalogStore(store), append(opts, service.WithUploader(uploader))...)
	orders := service.NewOrderService(storage.NewOrderStore(store), catalog, opts...)
	ids := service.NewIdentityService(
		storage.NewUserRepository(userDB),
		identity.NewBcryptHasher(cfg.Auth.BcryptCost),
		identity.NewJWTManager(identity.JWTConfig{Secret: secret, TTL: cfg.Auth.TokenTTL, Issuer: cfg.Auth.Issuer}),
		verifier,
		service.WithLogger(logger),
	)

	// gRPC server
	interceptors := []grpc.UnaryServerInterceptor{handler.RecoveryInterceptor(logger)}
	if cfg.Auth.Required {
		interceptors = append(interceptors, handler.AuthInterceptor(ids))
	}
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))
	handler.RegisterOrderServiceServer(grpcServer, handler.NewGRPCHandler(orders, logger))
	healthServer := health.NewServer()
	healthServer.SetServingStatus(handler.OrderServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPC.Addr, err)
	}
	go func() {
		logger.Info("gRPC server listening", "addr", cfg.GRPC.Addr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", "error", err)
		}
	}()

	// HTTP server
	httpHandler := handler.NewHTTPHandler(catalog, orders, ids, uploader, store, handler.HTTPConfig{
		RequireAuth:    cfg.Auth.Required,
		MaxUploadBytes: cfg.HTTP.MaxUploadBytes,
	}, logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpHandler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	// Servers stop first; queued events drain and connections close after.
	var serversDown sync.WaitGroup
	serversDown.Add(2)

	wait := gfshutdown.GracefulShutdown(context.Background(), cfg.Shutdown.Timeout, map[string]gfshutdown.Operation{
		"http": func(ctx context.Context) error {
			defer serversDown.Done()
			return httpServer.Shutdown(ctx)
		},
		"grpc": func(ctx context.Context) error {
			defer serversDown.Done()
			healthServer.Shutdown()
			stopped := make(chan struct{})
			go func() {
				grpcServer.GracefulStop()
				close(stopped)
			}()
			select {
			case <-stopped:
				return nil
			case <-ctx.Done():
				grpcServer.Stop()
				return ctx.Err()
			}
		},
		"events": func(ctx context.Context) error {
			serversDown.Wait()
			dispatcher.Close()
			workers.Wait()
			return publisher.Close()
		},
		"storage": func(ctx context.Context) error {
			serversDown.Wait()
			sqlDB, err := userDB.DB()
			if err != nil {
				return err
			}
			return errors.Join(closeStore(), sqlDB.Close())
		},
	})

	exitCode := <-wait
	logger.Info("shop-admin exited", "code", exitCode)
	if exitCode != 0 {
		return fmt.Errorf("shutdown finished with exit code %d", exitCode)
	}
	return nil
}
