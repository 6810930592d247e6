package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"group-scheduler/core/cache"
	"group-scheduler/core/config"
	"group-scheduler/core/constants"
	"group-scheduler/core/database"
	"group-scheduler/core/logger"
	"group-scheduler/core/middleware"
	"group-scheduler/core/queue"
	"group-scheduler/core/realtime"
	"group-scheduler/modules/scheduler"
	"group-scheduler/modules/scheduler/worker"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Run loads config, wires infrastructure and serves HTTP until SIGINT or
// SIGTERM.
func Run() error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}

	deps := scheduler.Deps{DB: &db, Store: store}
	hub := realtime.NewHub(cfg.Realtime.Buffer)
	defer hub.Close()
	switch cfg.Realtime.Driver {
	case "postgres":
		listener, err := realtime.NewPGListener(cfg.Database.DSN(), cfg.Realtime.Channel, hub, constants.TableAvailabilitySubmissions)
		if err != nil {
			return err
		}
		go listener.Run(ctx)
		// Writes are announced by the database trigger.
		deps.Subscriber = listener
	default:
		deps.Subscriber = hub
		deps.Publisher = hub
	}

	if cfg.Queue.Enabled {
		client := queue.NewClient(cfg.Redis)
		defer client.Close()
		deps.Enqueuer = worker.NewEnqueuer(client, cfg.Queue.Name, cfg.Queue.MaxRetry)
	}

	e := echo.New()
	e.HideBanner = true
	mw := middleware.NewMiddleware(cfg.Auth.JWTSecret)
	e.Use(echomw.Recover(), mw.RequestID(), mw.RequestLogger())
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	svc := scheduler.Init(e, cfg, deps, mw)

	if cfg.Queue.Enabled {
		srv := queue.NewServer(cfg.Redis, cfg.Queue)
		mux := asynq.NewServeMux()
		worker.NewRecomputeHandler(svc).Register(mux)
		if err := srv.Start(mux); err != nil {
			return fmt.Errorf("start worker: %w", err)
		}
		defer srv.Shutdown()
		logger.Info("Server:Worker:Started", "queue", cfg.Queue.Name, "concurrency", cfg.Queue.Concurrency)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		logger.Info("Server:Listening", "addr", addr)
		if err := e.Start(addr); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			logger.Error("Server:Start", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Server:ShuttingDown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newStore(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	if cfg.Cache.Driver != "redis" {
		return cache.NewMemoryStore(), nil
	}

	store := cache.NewRedisStore(cache.NewRedisClient(cfg.Redis))
	if err := store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return store, nil
}
