package cron

import (
	"context"
	"fmt"
	"time"

	"blackcnote/common/config"
	"blackcnote/common/logger"
	"blackcnote/common/metrics"
	"blackcnote/common/redis"
	"blackcnote/common/scheduler"
	"blackcnote/model"
	"blackcnote/worker"

	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const interestLockKey = "blackcnote:lock:interest"

// InitCron 注册收益派发、过期充值关闭与心跳任务，仅主节点运行
func InitCron() {
	if !config.IsMasterNode {
		logger.SysLog("Cron is disabled on slave node")
		return
	}

	_ = scheduler.Manager.AddJob(
		"invest_interest",
		gocron.DurationJob(time.Minute),
		gocron.NewTask(RunInterestPayout),
	)

	_ = scheduler.Manager.AddJob(
		"deposit_expire",
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(RunCloseExpiredDeposits),
	)

	_ = scheduler.Manager.AddJob(
		"heartbeat",
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() {
			logger.SysLog("[cron] heartbeat, jobs: " + fmt.Sprint(scheduler.Manager.Jobs()))
		}),
	)
}

// RunInterestPayout 派发到期收益；启用 Redis 时多个主节点之间互斥
func RunInterestPayout() {
	if redis.RedisEnabled {
		ok, err := redis.RedisSetNX(interestLockKey, "1", 55*time.Second)
		if err != nil {
			logger.SysError("[cron] interest lock failed: " + err.Error())
			return
		}
		if !ok {
			return
		}
		defer func() { _ = redis.RedisDel(interestLockKey) }()
	}

	ctx := context.Background()
	batchSize := viper.GetInt("invest.batch_size")
	for {
		payouts, err := model.PayDueInterest(time.Now(), batchSize)
		if err != nil {
			logger.LogError(ctx, "[cron] interest payout failed", zap.Error(err))
			return
		}
		for _, payout := range payouts {
			metrics.InterestPaid.Inc()
			payload := &worker.PayloadInterestPaid{UserId: payout.UserId, Trx: payout.Trx, Amount: payout.Amount}
			if err := worker.Distributor.DistributeInterestPaid(ctx, payload); err != nil {
				logger.LogError(ctx, "[cron] failed to enqueue interest task", zap.String("trx", payout.Trx), zap.Error(err))
			}
		}
		if len(payouts) > 0 {
			logger.LogInfo(ctx, "[cron] interest paid", zap.Int("count", len(payouts)))
		}
		// 未满一批说明已处理完
		if batchSize <= 0 || len(payouts) < batchSize {
			return
		}
	}
}

func RunCloseExpiredDeposits() {
	closed, err := model.CloseExpiredDeposits(config.DepositExpireHours)
	if err != nil {
		logger.SysError("[cron] close expired deposits failed: " + err.Error())
		return
	}
	if closed > 0 {
		logger.SysLog(fmt.Sprintf("[cron] closed %d expired deposits", closed))
	}
}
