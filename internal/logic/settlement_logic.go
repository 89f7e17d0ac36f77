package logic

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/csacanam/fanio-sub001/internal/logger"
	"github.com/csacanam/fanio-sub001/internal/model"
	"github.com/csacanam/fanio-sub001/internal/pool"
	"github.com/csacanam/fanio-sub001/internal/token"
	"gorm.io/gorm"
)

// SplitResult 成功结算的资金拆分结果
type SplitResult struct {
	ProtocolFee     int64 `json:"protocol_fee"`     // 协议费 = 主办方押金全额
	OrganizerPayout int64 `json:"organizer_payout"` // 主办方回款 = 目标金额
	Excess          int64 `json:"excess"`           // 超额部分，留作池子种子资金
}

// ComputeSplit 计算成功结算的资金拆分
// 纯函数，恒有 OrganizerPayout + Excess = raisedAmount，资金不多不少
func ComputeSplit(targetAmount, organizerDeposit, raisedAmount int64) SplitResult {
	return SplitResult{
		ProtocolFee:     organizerDeposit,
		OrganizerPayout: targetAmount,
		Excess:          raisedAmount - targetAmount,
	}
}

// SettlementLogic 成功结算业务逻辑
// 达标时执行一次：收取协议费、回款主办方、用超额资金引导流动性池
type SettlementLogic struct {
	db           *gorm.DB
	asset        SettlementAsset
	issuer       *token.Issuer
	bootstrapper *pool.Bootstrapper
}

// NewSettlementLogic 创建成功结算业务逻辑
func NewSettlementLogic(db *gorm.DB, asset SettlementAsset, issuer *token.Issuer, bootstrapper *pool.Bootstrapper) *SettlementLogic {
	return &SettlementLogic{
		db:           db,
		asset:        asset,
		issuer:       issuer,
		bootstrapper: bootstrapper,
	}
}

// FinalizeSuccess 执行成功结算，必须在持有活动行锁的事务内调用
// 结算腿各自独立执行，单腿失败记录在案等待重试，不阻塞其他腿
func (s *SettlementLogic) FinalizeSuccess(ctx context.Context, tx *gorm.DB, campaign *model.CampaignModel, eventToken *model.EventTokenModel) error {
	if campaign.Status != model.CampaignStatusActive {
		return model.ErrAlreadyFinalized
	}

	var count int64
	if err := tx.Model(&model.SettlementRecordModel{}).
		Where("campaign_id = ?", campaign.Id).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return model.ErrAlreadyFinalized
	}

	split := ComputeSplit(campaign.TargetAmount, campaign.OrganizerDeposit, campaign.RaisedAmount)

	campaign.Status = model.CampaignStatusFunded
	campaign.ProtocolFeesCollected = split.ProtocolFee
	if err := tx.Model(campaign).Updates(map[string]interface{}{
		"status":                  campaign.Status,
		"protocol_fees_collected": campaign.ProtocolFeesCollected,
	}).Error; err != nil {
		return err
	}

	// 协议费从押金中留存于托管账户，无转账腿，直接记成功
	feeRecord := &model.SettlementRecordModel{
		CampaignId: campaign.Id,
		Leg:        model.SettlementLegProtocolFee,
		Recipient:  s.asset.EscrowAddress(),
		Amount:     split.ProtocolFee,
		Status:     model.SettlementStatusSuccess,
		Confirmed:  true,
	}
	if err := tx.Create(feeRecord).Error; err != nil {
		return err
	}

	s.settlePayout(ctx, tx, campaign, split)
	s.settlePoolSeed(ctx, tx, campaign, eventToken, split)

	logger.Info("Campaign %d finalized: fee=%d payout=%d excess=%d",
		campaign.Id, split.ProtocolFee, split.OrganizerPayout, split.Excess)
	return nil
}

// settlePayout 主办方回款腿
func (s *SettlementLogic) settlePayout(ctx context.Context, tx *gorm.DB, campaign *model.CampaignModel, split SplitResult) {
	record := &model.SettlementRecordModel{
		CampaignId: campaign.Id,
		Leg:        model.SettlementLegPayout,
		Recipient:  campaign.Organizer,
		Amount:     split.OrganizerPayout,
		Status:     model.SettlementStatusPending,
	}
	if err := tx.Create(record).Error; err != nil {
		logger.Error("Failed to create payout record for campaign %d: %v", campaign.Id, err)
		return
	}

	txHash, err := s.asset.Transfer(ctx, campaign.Organizer, big.NewInt(split.OrganizerPayout))
	if err != nil {
		logger.Error("Payout transfer failed for campaign %d: %v", campaign.Id, err)
		tx.Model(record).Updates(map[string]interface{}{
			"status":      model.SettlementStatusFailed,
			"fail_reason": fmt.Sprintf("%v: %v", model.ErrTransferFailed, err),
		})
		return
	}

	tx.Model(record).Updates(map[string]interface{}{
		"status":  model.SettlementStatusSuccess,
		"tx_hash": txHash,
	})
}

// settlePoolSeed 池子种子腿：铸造池子份额、锁定上限、建池注资
func (s *SettlementLogic) settlePoolSeed(ctx context.Context, tx *gorm.DB, campaign *model.CampaignModel, eventToken *model.EventTokenModel, split SplitResult) {
	record := &model.SettlementRecordModel{
		CampaignId: campaign.Id,
		Leg:        model.SettlementLegPoolSeed,
		Amount:     split.Excess,
		Status:     model.SettlementStatusPending,
	}
	if err := tx.Create(record).Error; err != nil {
		logger.Error("Failed to create pool seed record for campaign %d: %v", campaign.Id, err)
		return
	}

	// 正好达标没有超额时不建池，锁定上限后直接完成
	if split.Excess == 0 {
		if err := s.issuer.MintPoolAllocation(ctx, tx, eventToken, s.asset.EscrowAddress(), 0, campaign.FundingDecimals); err != nil {
			s.failPoolSeed(tx, record, campaign.Id, err)
			return
		}
		tx.Model(record).Update("status", model.SettlementStatusSuccess)
		return
	}

	seed, err := s.bootstrapper.Compute(split.Excess, campaign.FundingDecimals, eventToken.Decimals)
	if err != nil {
		// 尘埃级超额不足一个代币份额时不建池，与无超额路径一致锁定上限
		if errors.Is(err, pool.ErrSeedTooSmall) {
			if err := s.issuer.MintPoolAllocation(ctx, tx, eventToken, s.asset.EscrowAddress(), 0, campaign.FundingDecimals); err != nil {
				s.failPoolSeed(tx, record, campaign.Id, err)
				return
			}
			tx.Model(record).Update("status", model.SettlementStatusSuccess)
			return
		}
		s.failPoolSeed(tx, record, campaign.Id, err)
		return
	}

	// 池子份额先铸给托管账户，由托管账户注入流动性
	if err := s.issuer.MintPoolAllocation(ctx, tx, eventToken, s.asset.EscrowAddress(), seed.BaseAllocation, campaign.FundingDecimals); err != nil {
		s.failPoolSeed(tx, record, campaign.Id, err)
		return
	}

	poolId, txHash, err := s.bootstrapper.Provision(ctx, eventToken.Address, campaign.FundingToken, seed)
	if err != nil {
		s.failPoolSeed(tx, record, campaign.Id, err)
		return
	}

	campaign.PoolId = poolId
	tx.Model(campaign).Update("pool_id", poolId)
	tx.Model(record).Updates(map[string]interface{}{
		"status":    model.SettlementStatusSuccess,
		"tx_hash":   txHash,
		"recipient": poolId,
	})
}

// failPoolSeed 记录池子腿失败
func (s *SettlementLogic) failPoolSeed(tx *gorm.DB, record *model.SettlementRecordModel, campaignId int64, err error) {
	logger.Error("Pool seed failed for campaign %d: %v", campaignId, err)
	tx.Model(record).Updates(map[string]interface{}{
		"status":      model.SettlementStatusFailed,
		"fail_reason": err.Error(),
	})
}

// RetryFailedSettlements 重试全部失败的结算腿，由定时任务调用
func (s *SettlementLogic) RetryFailedSettlements(ctx context.Context) (int, error) {
	var records []model.SettlementRecordModel
	err := s.db.Where("status = ?", model.SettlementStatusFailed).Find(&records).Error
	if err != nil {
		return 0, fmt.Errorf("获取失败结算记录失败: %w", err)
	}

	retried := 0
	for i := range records {
		record := &records[i]
		var ok bool
		switch record.Leg {
		case model.SettlementLegPayout:
			ok = s.retryPayout(ctx, record)
		case model.SettlementLegPoolSeed:
			ok = s.retryPoolSeed(ctx, record)
		default:
			continue
		}
		if ok {
			retried++
		}
	}
	return retried, nil
}

// retryPayout 重试主办方回款腿
func (s *SettlementLogic) retryPayout(ctx context.Context, record *model.SettlementRecordModel) bool {
	txHash, err := s.asset.Transfer(ctx, record.Recipient, big.NewInt(record.Amount))
	if err != nil {
		logger.Error("Payout retry failed for record %d: %v", record.Id, err)
		s.db.Model(record).Update("fail_reason", fmt.Sprintf("%v: %v", model.ErrTransferFailed, err))
		return false
	}

	s.db.Model(record).Updates(map[string]interface{}{
		"status":  model.SettlementStatusSuccess,
		"tx_hash": txHash,
	})
	return true
}

// retryPoolSeed 重试池子种子腿
// 铸造和建池可能在上次尝试中部分完成，按代币上限与池子ID判断从哪一步续做
func (s *SettlementLogic) retryPoolSeed(ctx context.Context, record *model.SettlementRecordModel) bool {
	var campaign model.CampaignModel
	if err := s.db.First(&campaign, record.CampaignId).Error; err != nil {
		logger.Error("Failed to fetch campaign %d for pool seed retry: %v", record.CampaignId, err)
		return false
	}

	var eventToken model.EventTokenModel
	if err := s.db.Where("campaign_id = ?", campaign.Id).First(&eventToken).Error; err != nil {
		logger.Error("Failed to fetch event token for campaign %d: %v", campaign.Id, err)
		return false
	}

	if record.Amount == 0 {
		if !eventToken.CapLocked {
			if err := s.issuer.MintPoolAllocation(ctx, s.db, &eventToken, s.asset.EscrowAddress(), 0, campaign.FundingDecimals); err != nil {
				logger.Error("Pool seed retry failed for campaign %d: %v", campaign.Id, err)
				return false
			}
		}
		s.db.Model(record).Update("status", model.SettlementStatusSuccess)
		return true
	}

	seed, err := s.bootstrapper.Compute(record.Amount, campaign.FundingDecimals, eventToken.Decimals)
	if err != nil {
		if errors.Is(err, pool.ErrSeedTooSmall) {
			if !eventToken.CapLocked {
				if err := s.issuer.MintPoolAllocation(ctx, s.db, &eventToken, s.asset.EscrowAddress(), 0, campaign.FundingDecimals); err != nil {
					logger.Error("Pool seed retry failed for campaign %d: %v", campaign.Id, err)
					return false
				}
			}
			s.db.Model(record).Update("status", model.SettlementStatusSuccess)
			return true
		}
		logger.Error("Pool seed retry failed for campaign %d: %v", campaign.Id, err)
		return false
	}

	if !eventToken.CapLocked {
		if err := s.issuer.MintPoolAllocation(ctx, s.db, &eventToken, s.asset.EscrowAddress(), seed.BaseAllocation, campaign.FundingDecimals); err != nil {
			logger.Error("Pool seed retry failed for campaign %d: %v", campaign.Id, err)
			return false
		}
	}

	if campaign.PoolId == "" {
		poolId, txHash, err := s.bootstrapper.Provision(ctx, eventToken.Address, campaign.FundingToken, seed)
		if err != nil {
			logger.Error("Pool seed retry failed for campaign %d: %v", campaign.Id, err)
			s.db.Model(record).Update("fail_reason", err.Error())
			return false
		}
		campaign.PoolId = poolId
		s.db.Model(&campaign).Update("pool_id", poolId)
		s.db.Model(record).Updates(map[string]interface{}{
			"status":    model.SettlementStatusSuccess,
			"tx_hash":   txHash,
			"recipient": poolId,
		})
		return true
	}

	s.db.Model(record).Update("status", model.SettlementStatusSuccess)
	return true
}

// GetSettlementRecords 查询活动结算记录
func (s *SettlementLogic) GetSettlementRecords(campaignId int64) ([]model.SettlementRecordModel, error) {
	var records []model.SettlementRecordModel
	if err := s.db.Where("campaign_id = ?", campaignId).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("获取结算记录失败: %w", err)
	}
	return records, nil
}
