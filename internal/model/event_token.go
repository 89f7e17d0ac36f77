package model

import (
	"time"
)

// EventTokenModel 活动凭证代币
// 供应量与上限以结算资产最小单位记账，链上金额由发行器按精度换算
type EventTokenModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CampaignId int64  `json:"campaign_id" gorm:"not null;uniqueIndex"`
	Address    string `json:"address" gorm:"not null"`
	Name       string `json:"name" gorm:"not null"`
	Symbol     string `json:"symbol" gorm:"not null"`
	Decimals   uint8  `json:"decimals" gorm:"not null"`

	MintedSupply int64 `json:"minted_supply" gorm:"default:0"`
	Cap          int64 `json:"cap" gorm:"default:0"`
	CapLocked    bool  `json:"cap_locked" gorm:"default:false"`
}

// TableName 自定义表名
func (EventTokenModel) TableName() string {
	return "event_token"
}
