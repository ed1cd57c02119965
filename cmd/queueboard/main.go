package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/beanbrew/queueboard/internal/api/http"
	"github.com/beanbrew/queueboard/internal/api/http/handlers"
	"github.com/beanbrew/queueboard/internal/auth"
	"github.com/beanbrew/queueboard/internal/coffeeapi"
	"github.com/beanbrew/queueboard/internal/config"
	"github.com/beanbrew/queueboard/internal/domain"
	"github.com/beanbrew/queueboard/internal/events"
	"github.com/beanbrew/queueboard/internal/observability"
	"github.com/beanbrew/queueboard/internal/persistence"
	"github.com/beanbrew/queueboard/internal/repository"
	"github.com/beanbrew/queueboard/internal/service"
	"github.com/beanbrew/queueboard/internal/worker"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-operator-key" {
		hashOperatorKey(os.Args[2:])
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openSessionStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open session store", zap.String("store", cfg.Session.Store), zap.Error(err))
	}
	defer store.close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	client := coffeeapi.NewClient(cfg.API.BaseURL, cfg.API.Timeout(), logger, metrics)

	sessions := service.NewSessionManager(client, store.repo, dispatcher, logger)
	engine := service.NewOrderSyncEngine(client, sessions, dispatcher, logger, metrics)
	actions := service.NewActionHandler(client, sessions, engine, dispatcher, logger)
	notifications := service.NewNotificationService(dispatcher, logger, engine.Board)

	worker.StartNotificationWorker(notifications)

	state := sessions.RestoreSession(ctx)
	if state != domain.SessionAuthenticated && cfg.Session.HasAutoLogin() {
		if _, err := sessions.Login(ctx, cfg.Session.Username, cfg.Session.Password); err != nil {
			logger.Warn("startup login failed", zap.String("username", cfg.Session.Username), zap.Error(err))
		}
	}
	stopSync := worker.StartSyncWorker(ctx, dispatcher, engine, cfg.Sync.Interval(), sessions.State() == domain.SessionAuthenticated, logger)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:          handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, sessions, engine, cfg.Session.Store, store.pinger),
		Session:         handlers.NewSessionHandler(sessions),
		Board:           handlers.NewBoardHandler(engine, sessions),
		Orders:          handlers.NewOrdersHandler(actions),
		Metrics:         handlers.NewMetricsHandler(metrics),
		OperatorKeyHash: cfg.Operator.KeyHash,
	})

	go func() {
		logger.Info("dashboard listening", zap.String("addr", cfg.App.Addr()), zap.String("api", cfg.API.BaseURL))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	stopSync()
	_ = app.Shutdown()
}

// sessionStore is the configured session backend plus what the readiness
// probe and shutdown need from it.
type sessionStore struct {
	repo   repository.SessionRepository
	pinger handlers.Pinger
	close  func()
}

func openSessionStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (sessionStore, error) {
	switch cfg.Session.Store {
	case config.StoreRedis:
		rdb := persistence.NewRedis(ctx, cfg.Redis, logger)
		return sessionStore{
			repo:   repository.NewRedisSessionRepository(rdb.Client, cfg.Session.KeyPrefix),
			pinger: rdb,
			close:  rdb.Close,
		}, nil

	case config.StorePostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return sessionStore{}, err
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				pg.Close()
				return sessionStore{}, err
			}
		}
		return sessionStore{
			repo:   repository.NewPostgresSessionRepository(pg.PoolHandle(), cfg.Session.KeyPrefix),
			pinger: pg,
			close:  pg.Close,
		}, nil

	default:
		return sessionStore{
			repo:  repository.NewFileSessionRepository(cfg.Session.FilePath),
			close: func() {},
		}, nil
	}
}

// hashOperatorKey prints the bcrypt hash to put in OPERATOR_KEY_HASH.
func hashOperatorKey(args []string) {
	if len(args) != 1 || args[0] == "" {
		fmt.Fprintln(os.Stderr, "usage: queueboard hash-operator-key <key>")
		os.Exit(2)
	}
	hashed, err := auth.HashOperatorKey(args[0], 0)
	if err != nil {
		log.Fatalf("hash operator key: %v", err)
	}
	fmt.Println(hashed)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
