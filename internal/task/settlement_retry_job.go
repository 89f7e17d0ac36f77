package task

import (
	"context"
	"time"

	"github.com/csacanam/fanio-sub001/internal/config"
	"github.com/csacanam/fanio-sub001/internal/logger"
	"github.com/csacanam/fanio-sub001/internal/logic"
	"github.com/go-co-op/gocron/v2"
)

// SettlementRetryJob 结算重试任务
// 重试失败的回款腿和池子腿，结算拆分在达标时已经定格，这里不再计算
type SettlementRetryJob struct {
	settlementLogic *logic.SettlementLogic
	config          *config.Config
}

// NewSettlementRetryJob 创建结算重试任务
func NewSettlementRetryJob(settlementLogic *logic.SettlementLogic, cfg *config.Config) *SettlementRetryJob {
	return &SettlementRetryJob{
		settlementLogic: settlementLogic,
		config:          cfg,
	}
}

// GetName 获取任务名称
func (j *SettlementRetryJob) GetName() string {
	return "settlement_retry"
}

// GetSchedule 获取调度配置
func (j *SettlementRetryJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Scheduler.Interval) * time.Second)
}

// Execute 执行任务
func (j *SettlementRetryJob) Execute() {
	retried, err := j.settlementLogic.RetryFailedSettlements(context.Background())
	if err != nil {
		logger.Error("Settlement retry task failed: %v", err)
		return
	}
	if retried > 0 {
		logger.Info("Settlement retry task completed, retried %d legs", retried)
	}
}
