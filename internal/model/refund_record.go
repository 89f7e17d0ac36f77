package model

import (
	"time"
)

// RefundRecordModel 退款记录
// 过期关闭时逐个支持者生成，单笔失败不影响其他退款，失败记录可重试
type RefundRecordModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CampaignId int64  `json:"campaign_id" gorm:"not null;index"`
	Recipient  string `json:"recipient" gorm:"not null"`
	Amount     int64  `json:"amount" gorm:"not null"`
	Kind       string `json:"kind" gorm:"not null"` // contribution, deposit
	TxHash     string `json:"tx_hash"`
	Status     string `json:"status" gorm:"default:'pending'"` // pending, success, failed
	Confirmed  bool   `json:"confirmed"`                       // 转账交易是否已过确认区块数
	FailReason string `json:"fail_reason" gorm:"type:text"`
}

// TableName 自定义表名
func (RefundRecordModel) TableName() string {
	return "refund_record"
}

// RefundKind 退款类型
const (
	RefundKindContribution = "contribution" // 支持者出资退款
	RefundKindDeposit      = "deposit"      // 主办方押金退款
)

// RefundStatus 退款状态
const (
	RefundStatusPending = "pending" // 待处理
	RefundStatusSuccess = "success" // 成功
	RefundStatusFailed  = "failed"  // 失败
)
