package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/buzzer-backend/internal/config"
	"github.com/rocketscienceinc/buzzer-backend/internal/pack"
	"github.com/rocketscienceinc/buzzer-backend/internal/publisher"
	"github.com/rocketscienceinc/buzzer-backend/internal/quiz"
	"github.com/rocketscienceinc/buzzer-backend/internal/repository"
	"github.com/rocketscienceinc/buzzer-backend/internal/repository/storage"
	redistransport "github.com/rocketscienceinc/buzzer-backend/internal/transport/redis"
	"github.com/rocketscienceinc/buzzer-backend/internal/usecase"
	"github.com/rocketscienceinc/buzzer-backend/transport/rest"
	"github.com/rocketscienceinc/buzzer-backend/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString, conf.Redis.Password, conf.Redis.DB)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	sqliteStorage, err := storage.NewSQLiteStorage(conf.SQLiteStoragePath)
	if err != nil {
		return fmt.Errorf("could not open sqlite storage: %w", err)
	}

	defer func() {
		if err = sqliteStorage.Close(); err != nil {
			log.Error("could not close sqlite storage", "error", err)
		}
	}()

	if err = sqliteStorage.Init(ctx); err != nil {
		return fmt.Errorf("could not init sqlite storage: %w", err)
	}

	snapshotRepo := repository.NewSnapshotRepository(redisStorage.Connection)
	resultRepo := repository.NewResultRepository(sqliteStorage.Connection)

	// snapshots left by a previous process describe a session that no longer exists
	if err = snapshotRepo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("could not clear stale snapshots: %w", err)
	}

	events := publisher.New(logger, conf.Publisher.BufferSize,
		publisher.SinkFunc(snapshotRepo.Save),
		redistransport.New(redisStorage.Connection, redistransport.DefaultChannel),
		usecase.NewArchiver(logger, resultRepo),
	)

	session := quiz.NewSession(logger, quiz.Settings{
		ArbitrationTimeout: conf.Game.ArbitrationTimeout,
		BuzzSettle:         conf.Game.BuzzSettle,
		MinPlayers:         conf.Game.MinPlayers,
		EliminateNegative:  conf.Game.EliminateNegative,
	}, events)

	packsDir, defaultPack := conf.PackLibrary()
	library := pack.NewLibrary(packsDir)

	sessionManager := usecase.NewSessionManager(logger, session, library.Load, defaultPack)
	if err = sessionManager.LoadDefaultPack(); err != nil {
		log.Warn("default pack not loaded, waiting for loadPack", "dir", packsDir, "pack", defaultPack, "error", err)
	}

	wsServer := websocket.New(logger, sessionManager, events)
	events.AddSink(wsServer)
	events.Publish(publisher.EventGameState, session.Snapshot())

	go events.Run(ctx)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		handlers := rest.NewHandlers(logger, snapshotRepo, resultRepo)
		if httpErr := rest.Start(ctx, conf.HTTPPort, handlers.Routes()); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down", "droppedEvents", events.Dropped())
		return nil
	}
}
