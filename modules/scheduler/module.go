package scheduler

import (
	"group-scheduler/core/cache"
	"group-scheduler/core/config"
	"group-scheduler/core/database"
	"group-scheduler/core/middleware"
	"group-scheduler/core/realtime"
	"group-scheduler/modules/scheduler/controller"
	"group-scheduler/modules/scheduler/engine"
	"group-scheduler/modules/scheduler/repository"
	"group-scheduler/modules/scheduler/router"
	"group-scheduler/modules/scheduler/service"

	"github.com/labstack/echo/v4"
)

// Deps are the shared infrastructure the scheduler module runs on. Enqueuer
// may be nil when the queue is disabled; Publisher may be nil when writes
// are announced by the database itself.
type Deps struct {
	DB         database.IDatabase
	Store      cache.Store
	Subscriber realtime.Subscriber
	Publisher  realtime.Publisher
	Enqueuer   service.Enqueuer
}

// Init initializes the scheduler module, registers routes and returns the
// service for background workers.
func Init(e *echo.Echo, cfg *config.Config, deps Deps, mw *middleware.Middleware) *service.SchedulerService {
	repo := repository.NewSchedulerRepository(deps.DB)
	calculator := engine.NewCalculator(engine.OptionsFromConfig(cfg.Scheduler))

	opts := []service.Option{
		service.WithRealtime(deps.Subscriber, deps.Publisher),
		service.WithTimeouts(cfg.Scheduler.FetchTimeout, cfg.Scheduler.PersistTimeout),
	}
	if deps.Enqueuer != nil {
		opts = append(opts, service.WithEnqueuer(deps.Enqueuer))
	}

	svc := service.NewSchedulerService(repo, service.NewSuggestionCache(deps.Store, cfg.Cache.KeyPrefix), calculator, opts...)
	ctrl := controller.NewSchedulerController(svc)
	rtr := router.NewSchedulerRouter(ctrl)

	rtr.Setup(e, mw)
	return svc
}
