package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stedixon/KafkaChat/api/rest"
	"github.com/stedixon/KafkaChat/api/ws"
	"github.com/stedixon/KafkaChat/config"
	"github.com/stedixon/KafkaChat/internal/hub"
	"github.com/stedixon/KafkaChat/internal/store"
	"github.com/stedixon/KafkaChat/internal/stream"
	"github.com/stedixon/KafkaChat/pkg/logger"
	"github.com/stedixon/KafkaChat/service"
)

// App represents the main application structure holding all dependencies
type App struct {
	cfg          config.Config
	logger       logger.Logger
	streamClient *stream.Client
	messageStore *store.Store
	sessionHub   *hub.Hub
	relay        *stream.RelayConsumer
	chatService  service.ChatService
	httpServer   *http.Server
	rootCtx      context.Context
	cancel       context.CancelFunc
}

// NewApp initializes and connects all application dependencies
func NewApp(cfg config.Config) (*App, error) {
	baseLogger := logger.NewLogger(cfg.LogLevel, cfg.LogFile)
	rootCtx := logger.NewContext(context.Background(), baseLogger)
	rootCtx, rootCancel := context.WithCancel(rootCtx)

	log := baseLogger.WithModule("app")
	log.Infof("Initializing application components...")

	streamClient, err := stream.NewClient(rootCtx, cfg.NATSURL, cfg.Stream.Name)
	if err != nil {
		rootCancel()
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	messageStore, err := store.NewStore(rootCtx, cfg.RedisURL)
	if err != nil {
		rootCancel()
		streamClient.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	sessionHub := hub.NewHub(baseLogger)
	chatService := service.NewChatService(rootCtx, messageStore, streamClient)
	relay := stream.NewRelayConsumer(rootCtx, streamClient, sessionHub, cfg.Stream.DurableName)

	httpServer := createHTTPServer(rootCtx, cfg.Port, sessionHub, chatService)

	app := &App{
		cfg:          cfg,
		logger:       log,
		streamClient: streamClient,
		messageStore: messageStore,
		sessionHub:   sessionHub,
		relay:        relay,
		chatService:  chatService,
		httpServer:   httpServer,
		rootCtx:      rootCtx,
		cancel:       rootCancel,
	}

	log.Infof("Application initialized successfully")
	return app, nil
}

func createHTTPServer(ctx context.Context, port int, sessionHub *hub.Hub, chatService service.ChatService) *http.Server {
	mux := http.NewServeMux()

	ws.RegisterRoutes(mux, ws.WSConfig{
		Hub:         sessionHub,
		ChatService: chatService,
		RootCtx:     ctx,
	})
	rest.RegisterRoutes(mux, rest.RESTConfig{
		ChatService: chatService,
		RootCtx:     ctx,
	})

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
}

// Start runs the relay consumer and the HTTP server, then blocks until a
// shutdown signal arrives.
func (a *App) Start() error {
	log := a.logger.WithFields(map[string]interface{}{
		"port": a.cfg.Port,
	})

	if err := a.relay.Start(); err != nil {
		return fmt.Errorf("failed to start relay consumer: %w", err)
	}

	log.Infof("Starting application server")

	go func() {
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithFields(map[string]interface{}{
				"error": err.Error(),
			}).Fatalf("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.WithFields(map[string]interface{}{
		"signal": sig.String(),
	}).Warnf("Received shutdown signal")

	return a.Stop()
}

// Stop gracefully shuts down the server and closes all connections
func (a *App) Stop() error {
	log := a.logger.WithFields(map[string]interface{}{
		"shutdown_timeout": "5s",
	})

	log.Infof("Initiating graceful shutdown")

	a.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Errorf("HTTP server shutdown error")
	}

	log.Infof("Stopping relay consumer")
	a.relay.Stop()

	log.Infof("Closing live sessions")
	a.sessionHub.Close()

	log.Infof("Closing NATS connection")
	a.streamClient.Close()

	log.Infof("Closing Redis connection")
	a.messageStore.Close()

	log.Infof("Shutdown completed successfully")
	return nil
}
