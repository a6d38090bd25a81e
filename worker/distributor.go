package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"blackcnote/common/logger"
	"blackcnote/common/metrics"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type TaskDistributor interface {
	DistributeDepositCompleted(ctx context.Context, payload *PayloadDepositCompleted, opts ...asynq.Option) error
	DistributeInvestCreated(ctx context.Context, payload *PayloadInvestCreated, opts ...asynq.Option) error
	DistributeInterestPaid(ctx context.Context, payload *PayloadInterestPaid, opts ...asynq.Option) error
	DistributeWithdrawStatus(ctx context.Context, payload *PayloadWithdrawStatus, opts ...asynq.Option) error
}

// Distributor 全局任务分发器，未启用 Redis 时在进程内执行
var Distributor TaskDistributor = NewInlineTaskDistributor(true)

type RedisTaskDistributor struct {
	logger *taskLogger
	client *asynq.Client
}

func NewTaskDistributor(redisOpt asynq.RedisClientOpt) TaskDistributor {
	client := asynq.NewClient(redisOpt)

	return &RedisTaskDistributor{
		logger: newTaskLogger(),
		client: client,
	}
}

func (rt *RedisTaskDistributor) enqueue(ctx context.Context, taskType string, payload any, taskID string, opts ...asynq.Option) error {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	// 以业务单号作为 TaskID，重复入队会被拒绝
	opts = append(opts, asynq.TaskID(taskType+":"+taskID), asynq.Retention(24*time.Hour))
	task := asynq.NewTask(taskType, jsonPayload, opts...)

	taskInfo, err := rt.client.EnqueueContext(ctx, task)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return err
	}

	rt.logger.enqueued(ctx, taskInfo)
	return nil
}

func (rt *RedisTaskDistributor) DistributeDepositCompleted(ctx context.Context, payload *PayloadDepositCompleted, opts ...asynq.Option) error {
	opts = append(opts, asynq.Queue(QueueCritical))
	return rt.enqueue(ctx, TaskDepositCompleted, payload, fmt.Sprint(payload.DepositId), opts...)
}

func (rt *RedisTaskDistributor) DistributeInvestCreated(ctx context.Context, payload *PayloadInvestCreated, opts ...asynq.Option) error {
	return rt.enqueue(ctx, TaskInvestCreated, payload, fmt.Sprint(payload.InvestId), opts...)
}

func (rt *RedisTaskDistributor) DistributeInterestPaid(ctx context.Context, payload *PayloadInterestPaid, opts ...asynq.Option) error {
	return rt.enqueue(ctx, TaskInterestPaid, payload, payload.Trx, opts...)
}

func (rt *RedisTaskDistributor) DistributeWithdrawStatus(ctx context.Context, payload *PayloadWithdrawStatus, opts ...asynq.Option) error {
	return rt.enqueue(ctx, TaskWithdrawStatus, payload, fmt.Sprintf("%d:%s", payload.WithdrawalId, payload.Status), opts...)
}

// InlineTaskDistributor 无 Redis 时直接调用任务处理函数
type InlineTaskDistributor struct {
	async bool
}

func NewInlineTaskDistributor(async bool) *InlineTaskDistributor {
	return &InlineTaskDistributor{async: async}
}

func (d *InlineTaskDistributor) run(ctx context.Context, taskType string, fn func(ctx context.Context) error) error {
	exec := func(ctx context.Context) error {
		err := fn(ctx)
		result := metrics.ResultSuccess
		if err != nil {
			result = metrics.ResultError
			logger.LogError(ctx, "inline task failed", zap.String("type", taskType), zap.Error(err))
		}
		metrics.TaskProcessed.WithLabelValues(taskType, result).Inc()
		return err
	}
	if !d.async {
		return exec(ctx)
	}
	// 脱离请求上下文，避免请求结束后被取消
	bg := context.WithoutCancel(ctx)
	go func() {
		_ = exec(bg)
	}()
	return nil
}

func (d *InlineTaskDistributor) DistributeDepositCompleted(ctx context.Context, payload *PayloadDepositCompleted, _ ...asynq.Option) error {
	return d.run(ctx, TaskDepositCompleted, func(ctx context.Context) error {
		return HandleDepositCompleted(ctx, payload)
	})
}

func (d *InlineTaskDistributor) DistributeInvestCreated(ctx context.Context, payload *PayloadInvestCreated, _ ...asynq.Option) error {
	return d.run(ctx, TaskInvestCreated, func(ctx context.Context) error {
		return HandleInvestCreated(ctx, payload)
	})
}

func (d *InlineTaskDistributor) DistributeInterestPaid(ctx context.Context, payload *PayloadInterestPaid, _ ...asynq.Option) error {
	return d.run(ctx, TaskInterestPaid, func(ctx context.Context) error {
		return HandleInterestPaid(ctx, payload)
	})
}

func (d *InlineTaskDistributor) DistributeWithdrawStatus(ctx context.Context, payload *PayloadWithdrawStatus, _ ...asynq.Option) error {
	return d.run(ctx, TaskWithdrawStatus, func(ctx context.Context) error {
		return HandleWithdrawStatus(ctx, payload)
	})
}
