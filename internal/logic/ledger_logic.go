package logic

import (
	"fmt"

	"github.com/csacanam/fanio-sub001/internal/model"
	"gorm.io/gorm"
)

// LedgerLogic 出资台账业务逻辑
// 每个活动每个支持者一条累计记录，是独立支持者计数与退款额度的唯一数据源
type LedgerLogic struct {
	db *gorm.DB
}

// NewLedgerLogic 创建出资台账业务逻辑
func NewLedgerLogic(db *gorm.DB) *LedgerLogic {
	return &LedgerLogic{db: db}
}

// Record 累加支持者出资，返回是否为新支持者
// 必须在活动行锁保护的事务内调用
func (l *LedgerLogic) Record(tx *gorm.DB, campaignId int64, backer string, amount int64) (bool, error) {
	res := tx.Model(&model.ContributionModel{}).
		Where("campaign_id = ? AND backer = ?", campaignId, backer).
		Update("amount", gorm.Expr("amount + ?", amount))
	if res.Error != nil {
		return false, fmt.Errorf("更新出资记录失败: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return false, nil
	}

	contribution := &model.ContributionModel{
		CampaignId: campaignId,
		Backer:     backer,
		Amount:     amount,
	}
	if err := tx.Create(contribution).Error; err != nil {
		return false, fmt.Errorf("创建出资记录失败: %w", err)
	}
	return true, nil
}

// TotalFor 查询支持者在活动中的累计出资
func (l *LedgerLogic) TotalFor(campaignId int64, backer string) (int64, error) {
	var contribution model.ContributionModel
	err := l.db.Where("campaign_id = ? AND backer = ?", campaignId, backer).
		First(&contribution).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, err
	}
	return contribution.Amount, nil
}

// AllContributors 列出活动的全部出资记录，退款时使用，顺序无关紧要
func (l *LedgerLogic) AllContributors(tx *gorm.DB, campaignId int64) ([]model.ContributionModel, error) {
	var contributions []model.ContributionModel
	if err := tx.Where("campaign_id = ?", campaignId).Find(&contributions).Error; err != nil {
		return nil, fmt.Errorf("获取出资记录失败: %w", err)
	}
	return contributions, nil
}

// GetContributions 分页查询活动出资记录
func (l *LedgerLogic) GetContributions(campaignId int64, page, pageSize int) ([]model.ContributionModel, int64, error) {
	var contributions []model.ContributionModel
	var total int64

	if err := l.db.Model(&model.ContributionModel{}).
		Where("campaign_id = ?", campaignId).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := l.db.Where("campaign_id = ?", campaignId).
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&contributions).Error; err != nil {
		return nil, 0, err
	}

	return contributions, total, nil
}

// GetContributionStats 获取活动出资统计信息
func (l *LedgerLogic) GetContributionStats(campaignId int64) (map[string]interface{}, error) {
	var stats struct {
		UniqueBackers int64 `json:"unique_backers"`
		TotalAmount   int64 `json:"total_amount"`
	}

	if err := l.db.Model(&model.ContributionModel{}).
		Where("campaign_id = ?", campaignId).
		Count(&stats.UniqueBackers).Error; err != nil {
		return nil, fmt.Errorf("获取支持者数量失败: %w", err)
	}

	if err := l.db.Model(&model.ContributionModel{}).
		Where("campaign_id = ?", campaignId).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&stats.TotalAmount).Error; err != nil {
		return nil, fmt.Errorf("获取出资总额失败: %w", err)
	}

	averageAmount := int64(0)
	if stats.UniqueBackers > 0 {
		averageAmount = stats.TotalAmount / stats.UniqueBackers
	}

	return map[string]interface{}{
		"unique_backers": stats.UniqueBackers,
		"total_amount":   stats.TotalAmount,
		"average_amount": averageAmount,
	}, nil
}
