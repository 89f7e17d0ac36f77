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

// 限额代币工厂ABI定义
const tokenFactoryABI = `[
	{
		"inputs": [
			{"name": "name", "type": "string"},
			{"name": "symbol", "type": "string"},
			{"name": "decimals", "type": "uint8"}
		],
		"name": "createToken",
		"outputs": [{"name": "", "type": "address"}],
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "token", "type": "address"},
			{"indexed": false, "name": "symbol", "type": "string"}
		],
		"name": "TokenCreated",
		"type": "event"
	}
]`

// 限额代币ABI定义
const cappedTokenABI = `[
	{
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"name": "mint",
		"outputs": [],
		"type": "function"
	},
	{
		"inputs": [{"name": "cap", "type": "uint256"}],
		"name": "setCap",
		"outputs": [],
		"type": "function"
	}
]`

// TokenEngine 限额代币引擎适配器，实现发行器的引擎接口
type TokenEngine struct {
	client         *Client
	factory        *bind.BoundContract
	tokenABI       abi.ABI
	tokenCreatedID common.Hash
}

// NewTokenEngine 创建限额代币引擎适配器
func NewTokenEngine(client *Client, factoryAddress string) (*TokenEngine, error) {
	factoryABI, err := abi.JSON(strings.NewReader(tokenFactoryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token factory ABI: %w", err)
	}

	tokenABI, err := abi.JSON(strings.NewReader(cappedTokenABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse capped token ABI: %w", err)
	}

	addr := common.HexToAddress(factoryAddress)
	factory := bind.NewBoundContract(addr, factoryABI, client.Raw(), client.Raw(), client.Raw())

	return &TokenEngine{
		client:         client,
		factory:        factory,
		tokenABI:       tokenABI,
		tokenCreatedID: factoryABI.Events["TokenCreated"].ID,
	}, nil
}

// Deploy 通过工厂部署限额代币，从回执事件中解析代币地址
func (e *TokenEngine) Deploy(ctx context.Context, name, symbol string, decimals uint8) (string, string, error) {
	auth, err := e.client.GetAuth()
	if err != nil {
		return "", "", err
	}
	auth.Context = ctx

	tx, err := e.factory.Transact(auth, "createToken", name, symbol, decimals)
	if err != nil {
		return "", "", fmt.Errorf("createToken failed: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, e.client.Raw(), tx)
	if err != nil {
		return "", "", fmt.Errorf("failed to wait for token deployment: %w", err)
	}

	// 从TokenCreated事件中解析代币地址
	for _, log := range receipt.Logs {
		if len(log.Topics) >= 2 && log.Topics[0] == e.tokenCreatedID {
			tokenAddr := common.BytesToAddress(log.Topics[1].Bytes())
			return tokenAddr.Hex(), tx.Hash().Hex(), nil
		}
	}

	return "", "", fmt.Errorf("TokenCreated event not found in receipt %s", tx.Hash().Hex())
}

// Mint 铸造代币
func (e *TokenEngine) Mint(ctx context.Context, tokenAddr, to string, amount *big.Int) (string, error) {
	auth, err := e.client.GetAuth()
	if err != nil {
		return "", err
	}
	auth.Context = ctx

	tokenContract := e.boundToken(tokenAddr)
	tx, err := tokenContract.Transact(auth, "mint", common.HexToAddress(to), amount)
	if err != nil {
		return "", fmt.Errorf("mint failed: %w", err)
	}
	return tx.Hash().Hex(), nil
}

// SetCap 设置代币上限，合约层面只允许调用一次
func (e *TokenEngine) SetCap(ctx context.Context, tokenAddr string, cap *big.Int) (string, error) {
	auth, err := e.client.GetAuth()
	if err != nil {
		return "", err
	}
	auth.Context = ctx

	tokenContract := e.boundToken(tokenAddr)
	tx, err := tokenContract.Transact(auth, "setCap", cap)
	if err != nil {
		return "", fmt.Errorf("setCap failed: %w", err)
	}
	return tx.Hash().Hex(), nil
}

// boundToken 绑定代币合约
func (e *TokenEngine) boundToken(tokenAddr string) *bind.BoundContract {
	return bind.NewBoundContract(common.HexToAddress(tokenAddr), e.tokenABI,
		e.client.Raw(), e.client.Raw(), e.client.Raw())
}
