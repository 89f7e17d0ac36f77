package task

import (
	"context"
	"time"

	"github.com/csacanam/fanio-sub001/internal/config"
	"github.com/csacanam/fanio-sub001/internal/logger"
	"github.com/csacanam/fanio-sub001/internal/logic"
	"github.com/go-co-op/gocron/v2"
)

// RefundRetryJob 退款重试任务
// 补发待处理与失败的退款转账，退款记录本身在活动关闭时就已生成
type RefundRetryJob struct {
	refundLogic *logic.RefundLogic
	config      *config.Config
}

// NewRefundRetryJob 创建退款重试任务
func NewRefundRetryJob(refundLogic *logic.RefundLogic, cfg *config.Config) *RefundRetryJob {
	return &RefundRetryJob{
		refundLogic: refundLogic,
		config:      cfg,
	}
}

// GetName 获取任务名称
func (j *RefundRetryJob) GetName() string {
	return "refund_retry"
}

// GetSchedule 获取调度配置
func (j *RefundRetryJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Scheduler.Interval) * time.Second)
}

// Execute 执行任务
func (j *RefundRetryJob) Execute() {
	retried, err := j.refundLogic.ProcessOutstandingRefunds(context.Background())
	if err != nil {
		logger.Error("Refund retry task failed: %v", err)
		return
	}
	if retried > 0 {
		logger.Info("Refund retry task completed, retried %d records", retried)
	}
}
