package task

import (
	"context"
	"time"

	"github.com/csacanam/fanio-sub001/internal/chain"
	"github.com/csacanam/fanio-sub001/internal/config"
	"github.com/csacanam/fanio-sub001/internal/logger"
	"github.com/csacanam/fanio-sub001/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// TxConfirmJob 交易确认任务
// 已提交成功的退款与结算转账在过了确认区块数之后才标记为已确认
type TxConfirmJob struct {
	db          *gorm.DB
	chainClient *chain.Client
	config      *config.Config
}

// NewTxConfirmJob 创建交易确认任务
func NewTxConfirmJob(db *gorm.DB, chainClient *chain.Client, cfg *config.Config) *TxConfirmJob {
	return &TxConfirmJob{
		db:          db,
		chainClient: chainClient,
		config:      cfg,
	}
}

// GetName 获取任务名称
func (j *TxConfirmJob) GetName() string {
	return "tx_confirm"
}

// GetSchedule 获取调度配置
func (j *TxConfirmJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Scheduler.Interval) * time.Second)
}

// Execute 执行任务
func (j *TxConfirmJob) Execute() {
	ctx := context.Background()
	confirmed := j.confirmRefunds(ctx) + j.confirmSettlements(ctx)
	if confirmed > 0 {
		logger.Info("Tx confirm task completed, confirmed %d transactions", confirmed)
	}
}

func (j *TxConfirmJob) confirmRefunds(ctx context.Context) int {
	var records []model.RefundRecordModel
	err := j.db.Where("status = ? AND confirmed = ? AND tx_hash <> ''",
		model.RefundStatusSuccess, false).Find(&records).Error
	if err != nil {
		logger.Error("Failed to fetch unconfirmed refund records: %v", err)
		return 0
	}

	confirmed := 0
	for i := range records {
		if j.confirm(ctx, records[i].TxHash) {
			j.db.Model(&records[i]).Update("confirmed", true)
			confirmed++
		}
	}
	return confirmed
}

func (j *TxConfirmJob) confirmSettlements(ctx context.Context) int {
	var records []model.SettlementRecordModel
	err := j.db.Where("status = ? AND confirmed = ? AND tx_hash <> ''",
		model.SettlementStatusSuccess, false).Find(&records).Error
	if err != nil {
		logger.Error("Failed to fetch unconfirmed settlement records: %v", err)
		return 0
	}

	confirmed := 0
	for i := range records {
		if j.confirm(ctx, records[i].TxHash) {
			j.db.Model(&records[i]).Update("confirmed", true)
			confirmed++
		}
	}
	return confirmed
}

func (j *TxConfirmJob) confirm(ctx context.Context, txHash string) bool {
	ok, err := j.chainClient.IsTransactionConfirmed(ctx, common.HexToHash(txHash))
	if err != nil {
		logger.Error("Failed to check confirmation for tx %s: %v", txHash, err)
		return false
	}
	return ok
}
