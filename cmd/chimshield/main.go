package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/chimshield/backend/internal/auth"
	"github.com/chimshield/backend/internal/relay"
	"github.com/chimshield/backend/internal/server"
	"github.com/chimshield/backend/internal/store"
	"github.com/chimshield/backend/internal/store/memory"
	"github.com/chimshield/backend/internal/store/mongodb"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

type App struct {
	logger          *zap.Logger
	settings        Settings
	websocketServer *server.WebSocketServer
	restServer      *server.RESTServer
}

func NewApp(ctx context.Context, logger *zap.Logger, settings Settings) (*App, error) {
	recordStore := memory.NewStore()

	var messages store.MessageStore = recordStore
	if settings.MongoURI != "" {
		client, err := mongo.Connect(options.Client().ApplyURI(settings.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("connect to mongodb: %w", err)
		}

		engine := mongodb.NewEngine(client, settings.MongoDatabase)
		err = engine.Setup(ctx)
		if err != nil {
			return nil, fmt.Errorf("setup mongodb engine: %w", err)
		}

		messages = engine
		logger.Info("message log backed by mongodb",
			zap.String("database", settings.MongoDatabase))
	}

	err := seed(ctx, logger, settings, recordStore, recordStore)
	if err != nil {
		return nil, fmt.Errorf("seed store: %w", err)
	}

	authenticator := auth.NewAuthenticator(settings.JWTSecret, recordStore)

	notifier := relay.NewNotifier(logger)
	registry := relay.NewRegistry(logger, notifier)
	snapshotter := relay.NewSnapshotter(registry, recordStore)
	messageRelay := relay.NewMessageRelay(logger, registry, notifier, messages)
	signalRelay := relay.NewSignalRelay(logger, registry, notifier)

	frameRouter := server.NewFrameRouter(logger, registry, messageRelay, signalRelay)

	websocketUpgrader := &websocket.Upgrader{
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		CheckOrigin:       func(r *http.Request) bool { return true },
		EnableCompression: true,
	}

	websocketServer := server.NewWebSocketServer(
		logger,
		websocketUpgrader,
		registry,
		notifier,
		snapshotter,
		frameRouter,
		authenticator,
	)
	restServer := server.NewRESTServer(
		logger,
		authenticator,
		recordStore,
		recordStore,
		recordStore,
		recordStore,
		recordStore,
		messages,
	)

	return &App{
		logger,
		settings,
		websocketServer,
		restServer,
	}, nil
}

func (a *App) run(ctx context.Context) {
	notifyCtx, notifyCtxCancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer notifyCtxCancel()

	address := fmt.Sprintf("0.0.0.0:%d", a.settings.Port)

	router := mux.NewRouter().
		PathPrefix(a.settings.BasePath).
		Subrouter()

	a.websocketServer.Register(router)
	a.restServer.Register(router)

	httpServer := &http.Server{
		Addr:    address,
		Handler: router,
	}

	a.logger.Info("starting http server",
		zap.String("address", address))

	go func() {
		err := httpServer.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("failed to start http server",
				zap.Error(err))
		}
	}()

	<-notifyCtx.Done()

	a.logger.Info("stopping http server")

	shutdownCtx, shutdownCtxCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCtxCancel()

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Fatal("http server shutdown failed",
			zap.Error(err))
	}

	a.logger.Info("http server stopped")
}

func main() {
	ctx := context.Background()

	_ = godotenv.Load()

	var settings Settings
	_, err := env.UnmarshalFromEnviron(&settings)
	if err != nil {
		panic(fmt.Errorf("failed to parse settings from environment: %w", err))
	}

	logger, err := buildZapLogger(settings.LogEncoding)
	if err != nil {
		panic(fmt.Errorf("failed to build logger: %w", err))
	}
	defer logger.Sync()

	app, err := NewApp(ctx, logger, settings)
	if err != nil {
		logger.Fatal("failed to setup", zap.Error(err))
	}

	app.run(ctx)
}
