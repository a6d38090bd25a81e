package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"blackcnote/common/logger"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// taskLogger 同时作为 asynq 的 Logger，任务日志统一带 scope/component 字段
type taskLogger struct {
	log *zap.Logger
}

var _ asynq.Logger = (*taskLogger)(nil)

func newTaskLogger() *taskLogger {
	return &taskLogger{
		log: logger.Logger.With(zap.String("scope", "worker"), zap.String("component", "asynq")),
	}
}

func (l *taskLogger) Debug(args ...any) { l.log.Debug(fmt.Sprint(args...)) }
func (l *taskLogger) Info(args ...any) { l.log.Info(fmt.Sprint(args...)) }
func (l *taskLogger) Warn(args ...any) { l.log.Warn(fmt.Sprint(args...)) }
func (l *taskLogger) Error(args ...any) { l.log.Error(fmt.Sprint(args...)) }
func (l *taskLogger) Fatal(args ...any) { l.log.Fatal(fmt.Sprint(args...)) }

// enqueued 记录入队的任务，request_id 来自发起入队的请求
func (l *taskLogger) enqueued(ctx context.Context, info *asynq.TaskInfo) {
	l.log.Info("enqueued task",
		zap.String("type", info.Type),
		zap.String("task_id", info.ID),
		zap.String("queue", info.Queue),
		zap.Int("max_retry", info.MaxRetry),
		logger.RequestField(ctx))
}

// failed 记录处理失败的任务，载荷脱敏后输出
func (l *taskLogger) failed(ctx context.Context, task *asynq.Task, err error) {
	fields := []zap.Field{
		zap.String("type", task.Type()),
		zap.Any("payload", maskedTaskPayload(task.Payload())),
		zap.Error(err),
		logger.RequestField(ctx),
	}
	if id, ok := asynq.GetTaskID(ctx); ok {
		fields = append(fields, zap.String("task_id", id))
	}
	if retried, ok := asynq.GetRetryCount(ctx); ok {
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		fields = append(fields, zap.Int("retry", retried), zap.Int("max_retry", maxRetry))
	}
	l.log.Error("failed to process task", fields...)
}

func maskedTaskPayload(payload []byte) any {
	var decoded map[string]any
	if json.Unmarshal(payload, &decoded) == nil {
		return logger.MaskJSON(decoded)
	}
	return string(payload)
}

// withTaskRequestId 任务内的日志以 task:<id> 作为 request_id，便于与入队日志对应
func withTaskRequestId(ctx context.Context) context.Context {
	if id, ok := asynq.GetTaskID(ctx); ok {
		return context.WithValue(ctx, logger.RequestIdKey, "task:"+id)
	}
	return ctx
}
