package handler

import (
	"time"

	"github.com/csacanam/fanio-sub001/internal/model"
)

// 活动相关响应模型

// CampaignResponse 活动响应模型
type CampaignResponse struct {
	ID                    int64     `json:"id"`
	EventName             string    `json:"eventName"`
	TokenSymbol           string    `json:"tokenSymbol"`
	Organizer             string    `json:"organizer"`
	FundingToken          string    `json:"fundingToken"`
	TargetAmount          int64     `json:"targetAmount"`
	OrganizerDeposit      int64     `json:"organizerDeposit"`
	RaisedAmount          int64     `json:"raisedAmount"`
	UniqueBackers         int64     `json:"uniqueBackers"`
	Deadline              time.Time `json:"deadline"`
	Status                string    `json:"status"`
	ProtocolFeesCollected int64     `json:"protocolFeesCollected"`
	EventTokenAddress     string    `json:"eventTokenAddress"`
	PoolId                string    `json:"poolId"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// GetCampaignsResponse 获取活动列表响应
type GetCampaignsResponse struct {
	Campaigns  []CampaignResponse `json:"campaigns"`
	Pagination Pagination         `json:"pagination"`
}

// ContributeRequest 出资请求
type ContributeRequest struct {
	Backer string `json:"backer" binding:"required"`
	Amount int64  `json:"amount" binding:"required"`
}

// ContributeResponse 出资响应
type ContributeResponse struct {
	CampaignId   int64 `json:"campaignId"`
	RaisedAmount int64 `json:"raisedAmount"`
}

// EventTokenResponse 凭证代币响应模型
type EventTokenResponse struct {
	CampaignId   int64  `json:"campaignId"`
	Address      string `json:"address"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	Decimals     uint8  `json:"decimals"`
	MintedSupply int64  `json:"mintedSupply"`
	Cap          int64  `json:"cap"`
	CapLocked    bool   `json:"capLocked"`
}

// ContributionResponse 出资记录响应模型
type ContributionResponse struct {
	ID         int64     `json:"id"`
	CampaignId int64     `json:"campaignId"`
	Backer     string    `json:"backer"`
	Amount     int64     `json:"amount"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// GetContributionsResponse 获取出资记录响应
type GetContributionsResponse struct {
	Contributions []ContributionResponse `json:"contributions"`
	Pagination    Pagination             `json:"pagination"`
}

// 转换函数

// ToCampaignResponse 将数据库模型转换为响应模型
func ToCampaignResponse(campaign *model.CampaignModel) CampaignResponse {
	return CampaignResponse{
		ID:                    campaign.Id,
		EventName:             campaign.EventName,
		TokenSymbol:           campaign.TokenSymbol,
		Organizer:             campaign.Organizer,
		FundingToken:          campaign.FundingToken,
		TargetAmount:          campaign.TargetAmount,
		OrganizerDeposit:      campaign.OrganizerDeposit,
		RaisedAmount:          campaign.RaisedAmount,
		UniqueBackers:         campaign.UniqueBackers,
		Deadline:              campaign.Deadline,
		Status:                string(campaign.Status),
		ProtocolFeesCollected: campaign.ProtocolFeesCollected,
		EventTokenAddress:     campaign.EventTokenAddress,
		PoolId:                campaign.PoolId,
		CreatedAt:             campaign.CreatedAt,
		UpdatedAt:             campaign.UpdatedAt,
	}
}

// ToCampaignResponseList 将数据库模型列表转换为响应模型列表
func ToCampaignResponseList(campaigns []model.CampaignModel) []CampaignResponse {
	result := make([]CampaignResponse, len(campaigns))
	for i := range campaigns {
		result[i] = ToCampaignResponse(&campaigns[i])
	}
	return result
}

// ToEventTokenResponse 将凭证代币模型转换为响应模型
func ToEventTokenResponse(eventToken *model.EventTokenModel) EventTokenResponse {
	return EventTokenResponse{
		CampaignId:   eventToken.CampaignId,
		Address:      eventToken.Address,
		Name:         eventToken.Name,
		Symbol:       eventToken.Symbol,
		Decimals:     eventToken.Decimals,
		MintedSupply: eventToken.MintedSupply,
		Cap:          eventToken.Cap,
		CapLocked:    eventToken.CapLocked,
	}
}

// ToContributionResponseList 将出资记录列表转换为响应模型列表
func ToContributionResponseList(contributions []model.ContributionModel) []ContributionResponse {
	result := make([]ContributionResponse, len(contributions))
	for i, contribution := range contributions {
		result[i] = ContributionResponse{
			ID:         contribution.Id,
			CampaignId: contribution.CampaignId,
			Backer:     contribution.Backer,
			Amount:     contribution.Amount,
			CreatedAt:  contribution.CreatedAt,
			UpdatedAt:  contribution.UpdatedAt,
		}
	}
	return result
}
