package queue

import (
	"context"
	"fmt"

	"group-scheduler/core/config"
	"group-scheduler/core/logger"

	"github.com/hibiken/asynq"
)

func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func NewClient(cfg config.RedisConfig) *asynq.Client {
	return asynq.NewClient(RedisOpt(cfg))
}

// NewServer builds a worker server consuming only the configured queue.
func NewServer(redisCfg config.RedisConfig, queueCfg config.QueueConfig) *asynq.Server {
	return asynq.NewServer(RedisOpt(redisCfg), asynq.Config{
		Concurrency:  queueCfg.Concurrency,
		Queues:       map[string]int{queueCfg.Name: 1},
		Logger:       asynqLogger{},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			logger.Error("Queue:TaskFailed", "type", task.Type(), "error", err)
		}),
	})
}

// asynqLogger routes asynq's own logging through core/logger.
type asynqLogger struct{}

func (asynqLogger) Debug(args ...any) { logger.Debug("Queue", "msg", fmt.Sprint(args...)) }
func (asynqLogger) Info(args ...any)  { logger.Info("Queue", "msg", fmt.Sprint(args...)) }
func (asynqLogger) Warn(args ...any)  { logger.Warn("Queue", "msg", fmt.Sprint(args...)) }
func (asynqLogger) Error(args ...any) { logger.Error("Queue", "msg", fmt.Sprint(args...)) }
func (asynqLogger) Fatal(args ...any) { logger.Error("Queue:Fatal", "msg", fmt.Sprint(args...)) }
