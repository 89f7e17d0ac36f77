package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// 结算资产ABI定义（ERC20子集）
const settlementAssetABI = `[
	{
		"constant": true,
		"inputs": [],
		"name": "decimals",
		"outputs": [{"name": "", "type": "uint8"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "owner", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"name": "transfer",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "from", "type": "address"},
			{"name": "to", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"name": "transferFrom",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	}
]`

// SettlementAsset 结算资产适配器，实现业务层的结算资产接口
type SettlementAsset struct {
	client   *Client
	contract *bind.BoundContract
	address  common.Address
}

// NewSettlementAsset 创建结算资产适配器
func NewSettlementAsset(client *Client, address string) (*SettlementAsset, error) {
	parsedABI, err := abi.JSON(strings.NewReader(settlementAssetABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse settlement asset ABI: %w", err)
	}

	addr := common.HexToAddress(address)
	contract := bind.NewBoundContract(addr, parsedABI, client.Raw(), client.Raw(), client.Raw())

	return &SettlementAsset{
		client:   client,
		contract: contract,
		address:  addr,
	}, nil
}

// Decimals 读取资产精度
func (a *SettlementAsset) Decimals(ctx context.Context) (uint8, error) {
	var out []interface{}
	if err := a.contract.Call(&bind.CallOpts{Context: ctx}, &out, "decimals"); err != nil {
		return 0, fmt.Errorf("failed to read decimals: %w", err)
	}
	return *abi.ConvertType(out[0], new(uint8)).(*uint8), nil
}

// BalanceOf 查询余额
func (a *SettlementAsset) BalanceOf(ctx context.Context, owner string) (*big.Int, error) {
	var out []interface{}
	err := a.contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", common.HexToAddress(owner))
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// TransferFrom 从授权账户划转资金
func (a *SettlementAsset) TransferFrom(ctx context.Context, owner, recipient string, amount *big.Int) (string, error) {
	auth, err := a.client.GetAuth()
	if err != nil {
		return "", err
	}
	auth.Context = ctx

	tx, err := a.contract.Transact(auth, "transferFrom",
		common.HexToAddress(owner), common.HexToAddress(recipient), amount)
	if err != nil {
		return "", fmt.Errorf("transferFrom failed: %w", err)
	}
	return tx.Hash().Hex(), nil
}

// Transfer 从托管账户转出资金
func (a *SettlementAsset) Transfer(ctx context.Context, recipient string, amount *big.Int) (string, error) {
	auth, err := a.client.GetAuth()
	if err != nil {
		return "", err
	}
	auth.Context = ctx

	tx, err := a.contract.Transact(auth, "transfer", common.HexToAddress(recipient), amount)
	if err != nil {
		return "", fmt.Errorf("transfer failed: %w", err)
	}
	return tx.Hash().Hex(), nil
}

// EscrowAddress 托管账户地址
func (a *SettlementAsset) EscrowAddress() string {
	return a.client.EscrowAddress().Hex()
}
