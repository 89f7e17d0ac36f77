package logic

import (
	"context"
	"math/big"
)

// SettlementAsset 结算资产接口，由链适配层实现
// 金额单位为资产最小单位，业务层记账与之保持一致
type SettlementAsset interface {
	// Decimals 读取资产精度，每个活动创建时读取一次并固定使用
	Decimals(ctx context.Context) (uint8, error)
	// BalanceOf 查询余额
	BalanceOf(ctx context.Context, owner string) (*big.Int, error)
	// TransferFrom 从授权账户划转资金到托管账户，需要调用方预先授权
	TransferFrom(ctx context.Context, owner, recipient string, amount *big.Int) (txHash string, err error)
	// Transfer 从托管账户转出资金
	Transfer(ctx context.Context, recipient string, amount *big.Int) (txHash string, err error)
	// EscrowAddress 托管账户地址
	EscrowAddress() string
}
