package model

import (
	"time"
)

// CampaignModel 活动众筹模型
type CampaignModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 基本信息
	EventName   string `json:"event_name" gorm:"not null" binding:"required"`
	TokenSymbol string `json:"token_symbol" gorm:"not null" binding:"required"`

	// 主办方信息
	Organizer string `json:"organizer" gorm:"not null;index"`

	// 众筹信息（金额单位为结算资产的最小单位）
	FundingToken     string `json:"funding_token" gorm:"not null"`
	FundingDecimals  uint8  `json:"funding_decimals"`
	TargetAmount     int64  `json:"target_amount" gorm:"not null" binding:"required,min=1"`
	OrganizerDeposit int64  `json:"organizer_deposit" gorm:"not null"`
	RaisedAmount     int64  `json:"raised_amount" gorm:"default:0"`
	UniqueBackers    int64  `json:"unique_backers" gorm:"default:0"`

	// 时间信息
	Deadline time.Time `json:"deadline" gorm:"not null"`

	// 状态
	Status CampaignStatus `json:"status" gorm:"default:'active'"`

	// 协议费用（成功结算时收取，等于主办方押金）
	ProtocolFeesCollected int64 `json:"protocol_fees_collected" gorm:"default:0"`

	// 链上信息
	EventTokenAddress string `json:"event_token_address"`
	PoolId            string `json:"pool_id"`
	DepositTxHash     string `json:"deposit_tx_hash"`
}

// CampaignStatus 活动状态
type CampaignStatus string

const (
	CampaignStatusActive CampaignStatus = "active" // 进行中
	CampaignStatusFunded CampaignStatus = "funded" // 达标成功
	CampaignStatusClosed CampaignStatus = "closed" // 过期已关闭
)

// TableName 自定义表名
func (CampaignModel) TableName() string {
	return "campaign"
}

// IsExpired 活动是否已过期（到期且未达标）
func (c *CampaignModel) IsExpired(now time.Time) bool {
	return c.Status == CampaignStatusActive && !now.Before(c.Deadline)
}

// TimeLeft 活动剩余时间
func (c *CampaignModel) TimeLeft(now time.Time) time.Duration {
	if now.After(c.Deadline) {
		return 0
	}
	return c.Deadline.Sub(now)
}
