package token

import (
	"context"
	"fmt"
	"math/big"

	"github.com/csacanam/fanio-sub001/internal/logger"
	"github.com/csacanam/fanio-sub001/internal/model"
	"gorm.io/gorm"
)

// Engine 限额代币引擎接口，由链适配层实现
type Engine interface {
	// Deploy 部署限额代币，初始供应量为0，上限未设置
	Deploy(ctx context.Context, name, symbol string, decimals uint8) (tokenAddr string, txHash string, err error)
	// Mint 铸造代币，超过已设置的上限时报错
	Mint(ctx context.Context, tokenAddr, to string, amount *big.Int) (txHash string, err error)
	// SetCap 设置代币上限，只能调用一次
	SetCap(ctx context.Context, tokenAddr string, cap *big.Int) (txHash string, err error)
}

// Issuer 活动凭证代币发行器
// 出资按1:1铸造凭证代币，结算时铸造池子份额后永久锁定上限
type Issuer struct {
	db     *gorm.DB
	engine Engine
}

// NewIssuer 创建代币发行器
func NewIssuer(db *gorm.DB, engine Engine) *Issuer {
	return &Issuer{db: db, engine: engine}
}

// DeployEventToken 为活动部署凭证代币
// 精度与结算资产保持一致，保证1:1铸造规则成立
func (i *Issuer) DeployEventToken(ctx context.Context, tx *gorm.DB, campaignId int64, name, symbol string, decimals uint8) (*model.EventTokenModel, error) {
	addr, txHash, err := i.engine.Deploy(ctx, name, symbol, decimals)
	if err != nil {
		return nil, fmt.Errorf("部署凭证代币失败: %w", err)
	}

	eventToken := &model.EventTokenModel{
		CampaignId: campaignId,
		Address:    addr,
		Name:       name,
		Symbol:     symbol,
		Decimals:   decimals,
	}
	if err := tx.Create(eventToken).Error; err != nil {
		return nil, err
	}

	logger.Info("Deployed event token %s for campaign %d, tx: %s", addr, campaignId, txHash)
	return eventToken, nil
}

// MintContribution 按出资1:1铸造凭证代币给支持者
// 金额为结算资产最小单位，按精度差换算为代币链上数量
func (i *Issuer) MintContribution(ctx context.Context, tx *gorm.DB, eventToken *model.EventTokenModel, backer string, amount int64, fundingDecimals uint8) error {
	// 上限锁定后不允许再铸造，出现该错误说明上限计算有误
	if eventToken.CapLocked && eventToken.MintedSupply+amount > eventToken.Cap {
		return fmt.Errorf("%w: minted=%d amount=%d cap=%d", model.ErrCapExceeded,
			eventToken.MintedSupply, amount, eventToken.Cap)
	}

	chainAmount := ScaleAmount(amount, fundingDecimals, eventToken.Decimals)
	if _, err := i.engine.Mint(ctx, eventToken.Address, backer, chainAmount); err != nil {
		return fmt.Errorf("铸造凭证代币失败: %w", err)
	}

	eventToken.MintedSupply += amount
	return tx.Model(eventToken).Update("minted_supply", eventToken.MintedSupply).Error
}

// MintPoolAllocation 铸造池子份额并永久锁定代币上限
// 只在达标结算时调用一次，锁定后该活动的代币不再增发
func (i *Issuer) MintPoolAllocation(ctx context.Context, tx *gorm.DB, eventToken *model.EventTokenModel, poolAddr string, amount int64, fundingDecimals uint8) error {
	if eventToken.CapLocked {
		return model.ErrAlreadyFinalized
	}

	chainAmount := ScaleAmount(amount, fundingDecimals, eventToken.Decimals)
	if _, err := i.engine.Mint(ctx, eventToken.Address, poolAddr, chainAmount); err != nil {
		return fmt.Errorf("铸造池子份额失败: %w", err)
	}

	supply := eventToken.MintedSupply + amount
	chainCap := ScaleAmount(supply, fundingDecimals, eventToken.Decimals)
	if _, err := i.engine.SetCap(ctx, eventToken.Address, chainCap); err != nil {
		return fmt.Errorf("锁定代币上限失败: %w", err)
	}

	eventToken.MintedSupply = supply
	eventToken.Cap = supply
	eventToken.CapLocked = true
	return tx.Model(eventToken).Updates(map[string]interface{}{
		"minted_supply": eventToken.MintedSupply,
		"cap":           eventToken.Cap,
		"cap_locked":    true,
	}).Error
}

// ScaleAmount 结算资产最小单位换算为代币链上数量
// 精度不一致时按10的幂次缩放，精度一致时原样返回
func ScaleAmount(amount int64, fundingDecimals, tokenDecimals uint8) *big.Int {
	result := big.NewInt(amount)
	switch {
	case tokenDecimals > fundingDecimals:
		factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(tokenDecimals-fundingDecimals)), nil)
		result.Mul(result, factor)
	case tokenDecimals < fundingDecimals:
		factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(fundingDecimals-tokenDecimals)), nil)
		result.Div(result, factor)
	}
	return result
}
