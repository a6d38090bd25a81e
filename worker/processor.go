package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"blackcnote/common/config"
	"blackcnote/common/logger"
	"blackcnote/common/metrics"
	"blackcnote/common/redis"

	"github.com/hibiken/asynq"
	"github.com/spf13/viper"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
)

type TaskProcessor interface {
	Start() error
	Close()
}

type RedisTaskProcessor struct {
	server *asynq.Server
	logger *taskLogger
}

func NewRedisTaskProcessor(redisOpt asynq.RedisClientOpt, concurrency int) TaskProcessor {
	log := newTaskLogger()
	server := asynq.NewServer(redisOpt, asynq.Config{
		Queues: map[string]int{
			QueueCritical: 10,
			QueueDefault:  5,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			metrics.TaskProcessed.WithLabelValues(task.Type(), metrics.ResultError).Inc()
			log.failed(ctx, task, err)
		}),
		Concurrency: concurrency,
		Logger:      log,
	})

	return &RedisTaskProcessor{
		server: server,
		logger: log,
	}
}

// handle 解码任务载荷后交给处理函数，载荷非法时不再重试
func handle[T any](fn func(ctx context.Context, payload *T) error) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload T
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
		}
		if err := fn(withTaskRequestId(ctx), &payload); err != nil {
			return err
		}
		metrics.TaskProcessed.WithLabelValues(task.Type(), metrics.ResultSuccess).Inc()
		return nil
	}
}

func (processor *RedisTaskProcessor) Start() error {
	mux := asynq.NewServeMux()

	mux.HandleFunc(TaskDepositCompleted, handle(HandleDepositCompleted))
	mux.HandleFunc(TaskInvestCreated, handle(HandleInvestCreated))
	mux.HandleFunc(TaskInterestPaid, handle(HandleInterestPaid))
	mux.HandleFunc(TaskWithdrawStatus, handle(HandleWithdrawStatus))

	return processor.server.Start(mux)
}

func (processor *RedisTaskProcessor) Close() {
	processor.server.Shutdown()
}

var processor TaskProcessor

// InitWorker 启用 Redis 时使用 asynq 分发任务，主节点同时启动消费者
func InitWorker() {
	opt := redis.Options()
	if !redis.RedisEnabled || opt == nil {
		logger.SysLog("worker running inline (Redis not enabled)")
		return
	}

	redisOpt := asynq.RedisClientOpt{
		Network:   opt.Network,
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}
	Distributor = NewTaskDistributor(redisOpt)

	if !config.IsMasterNode {
		return
	}
	processor = NewRedisTaskProcessor(redisOpt, viper.GetInt("worker.concurrency"))
	if err := processor.Start(); err != nil {
		logger.FatalLog("failed to start task processor: " + err.Error())
	}
	logger.SysLog("task processor started")
}

func CloseWorker() {
	if processor != nil {
		processor.Close()
	}
}
