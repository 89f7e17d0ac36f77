package logic

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/csacanam/fanio-sub001/internal/config"
	"github.com/csacanam/fanio-sub001/internal/logger"
	"github.com/csacanam/fanio-sub001/internal/model"
	"github.com/csacanam/fanio-sub001/internal/token"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CampaignLogic 活动众筹业务逻辑
// 活动状态机的唯一持有者：全部或全无保证、达标即时结算、过期关闭退款
type CampaignLogic struct {
	db         *gorm.DB
	cfg        *config.Config
	asset      SettlementAsset
	ledger     *LedgerLogic
	issuer     *token.Issuer
	settlement *SettlementLogic
	refunds    *RefundLogic
	now        func() time.Time
}

// NewCampaignLogic 创建活动众筹业务逻辑
func NewCampaignLogic(db *gorm.DB, cfg *config.Config, asset SettlementAsset,
	ledger *LedgerLogic, issuer *token.Issuer, settlement *SettlementLogic, refunds *RefundLogic) *CampaignLogic {
	return &CampaignLogic{
		db:         db,
		cfg:        cfg,
		asset:      asset,
		ledger:     ledger,
		issuer:     issuer,
		settlement: settlement,
		refunds:    refunds,
		now:        time.Now,
	}
}

// lockForUpdate 活动行锁
// sqlite方言不支持FOR UPDATE语法，本地与测试场景降级为普通查询
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// CreateCampaignParams 创建活动参数
type CreateCampaignParams struct {
	Organizer    string `json:"organizer"`
	EventName    string `json:"event_name"`
	TokenSymbol  string `json:"token_symbol"`
	TargetAmount int64  `json:"target_amount"`
	DurationDays int    `json:"duration_days"`
	FundingToken string `json:"funding_token"`
}

// CreateCampaign 创建活动
// 主办方需预先授权押金（目标金额的固定比例），押金随创建划入托管账户
// 同时为活动部署零供应量的限额凭证代币
func (c *CampaignLogic) CreateCampaign(ctx context.Context, params CreateCampaignParams) (*model.CampaignModel, error) {
	if err := c.validateParams(params); err != nil {
		return nil, err
	}

	fundingToken := params.FundingToken
	if fundingToken == "" {
		fundingToken = c.cfg.Chain.FundingToken
	}

	decimals, err := c.asset.Decimals(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取结算资产精度失败: %w", err)
	}

	deposit := params.TargetAmount * c.cfg.Campaign.DepositRatioBps / 10000

	balance, err := c.asset.BalanceOf(ctx, params.Organizer)
	if err != nil {
		return nil, fmt.Errorf("查询主办方余额失败: %w", err)
	}
	if balance.Cmp(big.NewInt(deposit)) < 0 {
		return nil, model.ErrInsufficientDeposit
	}

	depositTxHash, err := c.asset.TransferFrom(ctx, params.Organizer, c.asset.EscrowAddress(), big.NewInt(deposit))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInsufficientDeposit, err)
	}

	campaign := &model.CampaignModel{
		EventName:        params.EventName,
		TokenSymbol:      params.TokenSymbol,
		Organizer:        params.Organizer,
		FundingToken:     fundingToken,
		FundingDecimals:  decimals,
		TargetAmount:     params.TargetAmount,
		OrganizerDeposit: deposit,
		Deadline:         c.now().AddDate(0, 0, params.DurationDays),
		Status:           model.CampaignStatusActive,
		DepositTxHash:    depositTxHash,
	}

	err = c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(campaign).Error; err != nil {
			return err
		}

		eventToken, err := c.issuer.DeployEventToken(ctx, tx, campaign.Id,
			params.EventName, params.TokenSymbol, decimals)
		if err != nil {
			return err
		}

		campaign.EventTokenAddress = eventToken.Address
		return tx.Model(campaign).Update("event_token_address", eventToken.Address).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Created campaign %d (%s): target=%d deposit=%d deadline=%s",
		campaign.Id, campaign.EventName, campaign.TargetAmount,
		campaign.OrganizerDeposit, campaign.Deadline.Format(time.RFC3339))
	return campaign, nil
}

// Contribute 支持者出资
// 划转资金入托管、累加台账、按1:1铸造凭证代币
// 达标的那笔出资在同一事务内触发成功结算，与并发出资串行化
func (c *CampaignLogic) Contribute(ctx context.Context, campaignId int64, backer string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, model.ErrInvalidAmount
	}
	if backer == "" {
		return 0, model.ErrInvalidParameters
	}

	var newRaised int64
	err := c.db.Transaction(func(tx *gorm.DB) error {
		var campaign model.CampaignModel
		if err := lockForUpdate(tx).First(&campaign, campaignId).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return model.ErrCampaignNotFound
			}
			return err
		}

		if campaign.Status != model.CampaignStatusActive || !c.now().Before(campaign.Deadline) {
			return model.ErrCampaignNotActive
		}

		if _, err := c.asset.TransferFrom(ctx, backer, c.asset.EscrowAddress(), big.NewInt(amount)); err != nil {
			return fmt.Errorf("%w: %v", model.ErrInsufficientBalance, err)
		}

		isNew, err := c.ledger.Record(tx, campaignId, backer, amount)
		if err != nil {
			return err
		}

		var eventToken model.EventTokenModel
		if err := tx.Where("campaign_id = ?", campaignId).First(&eventToken).Error; err != nil {
			return fmt.Errorf("获取凭证代币失败: %w", err)
		}

		if err := c.issuer.MintContribution(ctx, tx, &eventToken, backer, amount, campaign.FundingDecimals); err != nil {
			return err
		}

		campaign.RaisedAmount += amount
		if isNew {
			campaign.UniqueBackers++
		}
		if err := tx.Model(&campaign).Updates(map[string]interface{}{
			"raised_amount":  campaign.RaisedAmount,
			"unique_backers": campaign.UniqueBackers,
		}).Error; err != nil {
			return err
		}

		// 达标的瞬间完成结算，越过门槛的出资与结算原子提交
		if campaign.RaisedAmount >= campaign.TargetAmount {
			if err := c.settlement.FinalizeSuccess(ctx, tx, &campaign, &eventToken); err != nil {
				return err
			}
		}

		newRaised = campaign.RaisedAmount
		return nil
	})
	if err != nil {
		return 0, err
	}

	return newRaised, nil
}

// CloseExpiredCampaign 关闭过期活动
// 退回主办方押金与每个支持者的全部出资，清零募集金额并永久禁止出资
// 单笔退款失败不阻塞其他退款
func (c *CampaignLogic) CloseExpiredCampaign(ctx context.Context, campaignId int64) error {
	err := c.db.Transaction(func(tx *gorm.DB) error {
		var campaign model.CampaignModel
		if err := lockForUpdate(tx).First(&campaign, campaignId).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return model.ErrCampaignNotFound
			}
			return err
		}

		if campaign.Status == model.CampaignStatusClosed {
			return model.ErrAlreadyClosed
		}
		if campaign.Status == model.CampaignStatusFunded || c.now().Before(campaign.Deadline) {
			return model.ErrNotExpired
		}

		contributions, err := c.ledger.AllContributors(tx, campaignId)
		if err != nil {
			return err
		}

		if err := c.refunds.CreateRefundRecords(tx, &campaign, contributions); err != nil {
			return err
		}

		return tx.Model(&campaign).Updates(map[string]interface{}{
			"status":        model.CampaignStatusClosed,
			"raised_amount": 0,
		}).Error
	})
	if err != nil {
		return err
	}

	// 退款在状态落库后逐笔独立执行，失败的由定时任务重试
	succeeded, failed, err := c.refunds.ProcessCampaignRefunds(ctx, campaignId)
	if err != nil {
		return err
	}
	logger.Info("Closed campaign %d: %d refunds succeeded, %d failed", campaignId, succeeded, failed)
	return nil
}

// StatusInfo 活动状态信息
type StatusInfo struct {
	IsActive              bool   `json:"is_active"`
	IsExpired             bool   `json:"is_expired"`
	IsFunded              bool   `json:"is_funded"`
	TimeLeft              int64  `json:"time_left_seconds"`
	RaisedAmount          int64  `json:"raised_amount"`
	TargetAmount          int64  `json:"target_amount"`
	OrganizerDeposit      int64  `json:"organizer_deposit"`
	FundingToken          string `json:"funding_token"`
	ProtocolFeesCollected int64  `json:"protocol_fees_collected"`
	UniqueBackers         int64  `json:"unique_backers"`
}

// GetStatus 查询活动状态，纯读操作，绝不触发状态迁移
func (c *CampaignLogic) GetStatus(campaignId int64) (*StatusInfo, error) {
	campaign, err := c.GetCampaign(campaignId)
	if err != nil {
		return nil, err
	}

	now := c.now()
	return &StatusInfo{
		IsActive:              campaign.Status == model.CampaignStatusActive && now.Before(campaign.Deadline),
		IsExpired:             campaign.IsExpired(now),
		IsFunded:              campaign.Status == model.CampaignStatusFunded,
		TimeLeft:              int64(campaign.TimeLeft(now).Seconds()),
		RaisedAmount:          campaign.RaisedAmount,
		TargetAmount:          campaign.TargetAmount,
		OrganizerDeposit:      campaign.OrganizerDeposit,
		FundingToken:          campaign.FundingToken,
		ProtocolFeesCollected: campaign.ProtocolFeesCollected,
		UniqueBackers:         campaign.UniqueBackers,
	}, nil
}

// GetCampaign 获取活动详情
func (c *CampaignLogic) GetCampaign(campaignId int64) (*model.CampaignModel, error) {
	var campaign model.CampaignModel
	if err := c.db.First(&campaign, campaignId).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, model.ErrCampaignNotFound
		}
		return nil, fmt.Errorf("获取活动详情失败: %w", err)
	}
	return &campaign, nil
}

// GetCampaignToken 获取活动凭证代币
func (c *CampaignLogic) GetCampaignToken(campaignId int64) (*model.EventTokenModel, error) {
	var eventToken model.EventTokenModel
	if err := c.db.Where("campaign_id = ?", campaignId).First(&eventToken).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, model.ErrCampaignNotFound
		}
		return nil, fmt.Errorf("获取凭证代币失败: %w", err)
	}
	return &eventToken, nil
}

// GetCampaigns 分页查询活动列表
func (c *CampaignLogic) GetCampaigns(status string, page, pageSize int) ([]model.CampaignModel, int64, error) {
	var campaigns []model.CampaignModel
	var total int64

	query := c.db.Model(&model.CampaignModel{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&campaigns).Error; err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

// GetGlobalStats 获取全局统计信息
func (c *CampaignLogic) GetGlobalStats() (map[string]interface{}, error) {
	var totalCampaigns int64
	if err := c.db.Model(&model.CampaignModel{}).Count(&totalCampaigns).Error; err != nil {
		return nil, fmt.Errorf("获取活动总数失败: %w", err)
	}

	activeCampaigns, err := c.countByStatus(model.CampaignStatusActive)
	if err != nil {
		return nil, err
	}
	fundedCampaigns, err := c.countByStatus(model.CampaignStatusFunded)
	if err != nil {
		return nil, err
	}
	closedCampaigns, err := c.countByStatus(model.CampaignStatusClosed)
	if err != nil {
		return nil, err
	}

	var totalRaised int64
	if err := c.db.Model(&model.CampaignModel{}).
		Select("COALESCE(SUM(raised_amount), 0)").
		Scan(&totalRaised).Error; err != nil {
		return nil, fmt.Errorf("获取募集总额失败: %w", err)
	}

	var totalBackers int64
	if err := c.db.Model(&model.ContributionModel{}).
		Distinct("backer").
		Count(&totalBackers).Error; err != nil {
		return nil, fmt.Errorf("获取支持者总数失败: %w", err)
	}

	return map[string]interface{}{
		"total_campaigns":  totalCampaigns,
		"active_campaigns": activeCampaigns,
		"funded_campaigns": fundedCampaigns,
		"closed_campaigns": closedCampaigns,
		"total_raised":     totalRaised,
		"total_backers":    totalBackers,
	}, nil
}

// countByStatus 按状态统计活动数量
func (c *CampaignLogic) countByStatus(status model.CampaignStatus) (int64, error) {
	var count int64
	if err := c.db.Model(&model.CampaignModel{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("按状态统计活动失败: %w", err)
	}
	return count, nil
}

// validateParams 验证创建参数
func (c *CampaignLogic) validateParams(params CreateCampaignParams) error {
	if params.TargetAmount <= 0 {
		return fmt.Errorf("%w: 目标金额必须大于0", model.ErrInvalidParameters)
	}
	if params.DurationDays <= 0 {
		return fmt.Errorf("%w: 众筹时长必须大于0", model.ErrInvalidParameters)
	}
	if c.cfg.Campaign.MinDurationDays > 0 && params.DurationDays < c.cfg.Campaign.MinDurationDays {
		return fmt.Errorf("%w: 众筹时长不能少于%d天", model.ErrInvalidParameters, c.cfg.Campaign.MinDurationDays)
	}
	if c.cfg.Campaign.MaxDurationDays > 0 && params.DurationDays > c.cfg.Campaign.MaxDurationDays {
		return fmt.Errorf("%w: 众筹时长不能超过%d天", model.ErrInvalidParameters, c.cfg.Campaign.MaxDurationDays)
	}
	if strings.TrimSpace(params.EventName) == "" {
		return fmt.Errorf("%w: 活动名称不能为空", model.ErrInvalidParameters)
	}
	if strings.TrimSpace(params.TokenSymbol) == "" {
		return fmt.Errorf("%w: 代币符号不能为空", model.ErrInvalidParameters)
	}
	if strings.TrimSpace(params.Organizer) == "" {
		return fmt.Errorf("%w: 主办方地址不能为空", model.ErrInvalidParameters)
	}
	return nil
}
