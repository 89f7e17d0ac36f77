package model

import (
	"time"
)

// SettlementRecordModel 成功结算记录
// 达标结算时按腿生成：主办方回款、协议费、池子种子资金，各腿独立执行互不阻塞
type SettlementRecordModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CampaignId int64  `json:"campaign_id" gorm:"not null;uniqueIndex:uni_settlement_campaign_leg"`
	Leg        string `json:"leg" gorm:"not null;uniqueIndex:uni_settlement_campaign_leg"`
	Recipient  string `json:"recipient"`
	Amount     int64  `json:"amount" gorm:"not null"`
	TxHash     string `json:"tx_hash"`
	Status     string `json:"status" gorm:"default:'pending'"` // pending, success, failed
	Confirmed  bool   `json:"confirmed"`                       // 链上交易是否已过确认区块数
	FailReason string `json:"fail_reason" gorm:"type:text"`
}

// TableName 自定义表名
func (SettlementRecordModel) TableName() string {
	return "settlement_record"
}

// SettlementLeg 结算腿类型
const (
	SettlementLegPayout      = "payout"       // 主办方回款（目标金额）
	SettlementLegProtocolFee = "protocol_fee" // 协议费（主办方押金）
	SettlementLegPoolSeed    = "pool_seed"    // 池子种子资金（超额部分）
)

// SettlementStatus 结算状态
const (
	SettlementStatusPending = "pending" // 待处理
	SettlementStatusSuccess = "success" // 成功
	SettlementStatusFailed  = "failed"  // 失败
)
