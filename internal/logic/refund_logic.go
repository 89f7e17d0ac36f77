package logic

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/csacanam/fanio-sub001/internal/logger"
	"github.com/csacanam/fanio-sub001/internal/model"
	"github.com/panjf2000/ants/v2"
	"gorm.io/gorm"
)

// RefundLogic 退款业务逻辑
// 过期关闭时全额退回主办方押金与每个支持者的出资
// 每笔退款独立执行，单笔失败只记录该笔，不阻塞其他退款
type RefundLogic struct {
	db      *gorm.DB
	asset   SettlementAsset
	workers int
}

// NewRefundLogic 创建退款业务逻辑
func NewRefundLogic(db *gorm.DB, asset SettlementAsset, workers int) *RefundLogic {
	if workers <= 0 {
		workers = 8
	}
	return &RefundLogic{db: db, asset: asset, workers: workers}
}

// CreateRefundRecords 为过期关闭的活动生成全部退款记录
// 必须在持有活动行锁的事务内调用：押金一条，每个支持者一条
func (r *RefundLogic) CreateRefundRecords(tx *gorm.DB, campaign *model.CampaignModel, contributions []model.ContributionModel) error {
	records := make([]model.RefundRecordModel, 0, len(contributions)+1)

	records = append(records, model.RefundRecordModel{
		CampaignId: campaign.Id,
		Recipient:  campaign.Organizer,
		Amount:     campaign.OrganizerDeposit,
		Kind:       model.RefundKindDeposit,
		Status:     model.RefundStatusPending,
	})

	for _, contribution := range contributions {
		records = append(records, model.RefundRecordModel{
			CampaignId: campaign.Id,
			Recipient:  contribution.Backer,
			Amount:     contribution.Amount,
			Kind:       model.RefundKindContribution,
			Status:     model.RefundStatusPending,
		})
	}

	if err := tx.Create(&records).Error; err != nil {
		return fmt.Errorf("创建退款记录失败: %w", err)
	}
	return nil
}

// ProcessCampaignRefunds 并发执行活动的待处理退款
// 使用协程池逐笔独立转账，返回成功与失败的笔数
func (r *RefundLogic) ProcessCampaignRefunds(ctx context.Context, campaignId int64) (int, int, error) {
	var records []model.RefundRecordModel
	err := r.db.Where("campaign_id = ? AND status = ?", campaignId, model.RefundStatusPending).
		Find(&records).Error
	if err != nil {
		return 0, 0, fmt.Errorf("获取待处理退款记录失败: %w", err)
	}
	if len(records) == 0 {
		return 0, 0, nil
	}

	pool, err := ants.NewPool(r.workers)
	if err != nil {
		return 0, 0, fmt.Errorf("创建协程池失败: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, failed := 0, 0

	for i := range records {
		record := records[i]
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			ok := r.processRefund(ctx, &record)
			mu.Lock()
			if ok {
				succeeded++
			} else {
				failed++
			}
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			logger.Error("Failed to submit refund task for record %d: %v", record.Id, submitErr)
			mu.Lock()
			failed++
			mu.Unlock()
		}
	}

	wg.Wait()
	logger.Info("Campaign %d refunds processed: %d succeeded, %d failed",
		campaignId, succeeded, failed)
	return succeeded, failed, nil
}

// processRefund 执行单笔退款并更新记录状态
func (r *RefundLogic) processRefund(ctx context.Context, record *model.RefundRecordModel) bool {
	txHash, err := r.asset.Transfer(ctx, record.Recipient, big.NewInt(record.Amount))
	if err != nil {
		logger.Error("Refund transfer failed for record %d (recipient %s): %v",
			record.Id, record.Recipient, err)
		r.db.Model(record).Updates(map[string]interface{}{
			"status":      model.RefundStatusFailed,
			"fail_reason": fmt.Sprintf("%v: %v", model.ErrTransferFailed, err),
		})
		return false
	}

	if err := r.db.Model(record).Updates(map[string]interface{}{
		"status":  model.RefundStatusSuccess,
		"tx_hash": txHash,
	}).Error; err != nil {
		logger.Error("Failed to update refund record %d: %v", record.Id, err)
		return false
	}
	return true
}

// ProcessOutstandingRefunds 补发全部未完成的退款，由定时任务调用
// 除失败记录外也扫待处理记录：关闭落库后进程中断时，待处理退款由这里兜底
func (r *RefundLogic) ProcessOutstandingRefunds(ctx context.Context) (int, error) {
	var records []model.RefundRecordModel
	err := r.db.Where("status IN ?",
		[]string{model.RefundStatusPending, model.RefundStatusFailed}).Find(&records).Error
	if err != nil {
		return 0, fmt.Errorf("获取未完成退款记录失败: %w", err)
	}

	retried := 0
	for i := range records {
		if r.processRefund(ctx, &records[i]) {
			retried++
		}
	}
	return retried, nil
}

// GetCampaignRefunds 分页查询活动退款记录
func (r *RefundLogic) GetCampaignRefunds(campaignId int64, page, pageSize int) ([]model.RefundRecordModel, int64, error) {
	var refunds []model.RefundRecordModel
	var total int64

	if err := r.db.Model(&model.RefundRecordModel{}).
		Where("campaign_id = ?", campaignId).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := r.db.Where("campaign_id = ?", campaignId).
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&refunds).Error; err != nil {
		return nil, 0, err
	}

	return refunds, total, nil
}
