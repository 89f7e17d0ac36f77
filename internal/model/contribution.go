package model

import (
	"time"
)

// ContributionModel 支持者累计出资记录
// 每个活动每个支持者一条记录，重复出资时累加金额，退款依赖该记录，活动关闭前不删除
type ContributionModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CampaignId int64  `json:"campaign_id" gorm:"not null;uniqueIndex:uni_contribution_campaign_backer"`
	Backer     string `json:"backer" gorm:"not null;uniqueIndex:uni_contribution_campaign_backer"`
	Amount     int64  `json:"amount" gorm:"not null"`
}

// TableName 自定义表名
func (ContributionModel) TableName() string {
	return "contribution"
}
