package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/csacanam/fanio-sub001/internal/logger"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// 交易池管理合约ABI定义
const poolManagerABI = `[
	{
		"inputs": [
			{"name": "baseToken", "type": "address"},
			{"name": "quoteToken", "type": "address"},
			{"name": "initialTick", "type": "int24"}
		],
		"name": "createPool",
		"outputs": [{"name": "", "type": "bytes32"}],
		"type": "function"
	},
	{
		"inputs": [
			{"name": "poolId", "type": "bytes32"},
			{"name": "baseAmount", "type": "uint256"},
			{"name": "quoteAmount", "type": "uint256"}
		],
		"name": "addFullRangeLiquidity",
		"outputs": [],
		"type": "function"
	},
	{
		"inputs": [
			{"name": "poolId", "type": "bytes32"},
			{"name": "adjustmentBps", "type": "int32"}
		],
		"name": "setFeeAdjustment",
		"outputs": [],
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "poolId", "type": "bytes32"},
			{"indexed": false, "name": "initialTick", "type": "int24"}
		],
		"name": "PoolCreated",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "poolId", "type": "bytes32"},
			{"indexed": true, "name": "trader", "type": "address"},
			{"indexed": false, "name": "baseDelta", "type": "int256"},
			{"indexed": false, "name": "quoteDelta", "type": "int256"}
		],
		"name": "TradeExecuted",
		"type": "event"
	}
]`

// FeeHook 交易完成回调：输入交易者视角的带符号余额变化，返回费率偏移（万分比）
type FeeHook func(baseDelta, quoteDelta *big.Int) int32

// PoolEngine 交易池引擎适配器，实现流动性引导器的引擎接口
type PoolEngine struct {
	client        *Client
	manager       *bind.BoundContract
	managerAddr   common.Address
	managerABI    abi.ABI
	poolCreatedID common.Hash
	tradeID       common.Hash
}

// NewPoolEngine 创建交易池引擎适配器
func NewPoolEngine(client *Client, managerAddress string) (*PoolEngine, error) {
	parsedABI, err := abi.JSON(strings.NewReader(poolManagerABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool manager ABI: %w", err)
	}

	addr := common.HexToAddress(managerAddress)
	manager := bind.NewBoundContract(addr, parsedABI, client.Raw(), client.Raw(), client.Raw())

	return &PoolEngine{
		client:        client,
		manager:       manager,
		managerAddr:   addr,
		managerABI:    parsedABI,
		poolCreatedID: parsedABI.Events["PoolCreated"].ID,
		tradeID:       parsedABI.Events["TradeExecuted"].ID,
	}, nil
}

// CreatePool 创建交易池，从回执事件中解析池子ID
func (e *PoolEngine) CreatePool(ctx context.Context, baseToken, quoteToken string, initialTick int32) (string, error) {
	auth, err := e.client.GetAuth()
	if err != nil {
		return "", err
	}
	auth.Context = ctx

	tx, err := e.manager.Transact(auth, "createPool",
		common.HexToAddress(baseToken), common.HexToAddress(quoteToken), big.NewInt(int64(initialTick)))
	if err != nil {
		return "", fmt.Errorf("createPool failed: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, e.client.Raw(), tx)
	if err != nil {
		return "", fmt.Errorf("failed to wait for pool creation: %w", err)
	}

	for _, log := range receipt.Logs {
		if len(log.Topics) >= 2 && log.Topics[0] == e.poolCreatedID {
			return log.Topics[1].Hex(), nil
		}
	}

	return "", fmt.Errorf("PoolCreated event not found in receipt %s", tx.Hash().Hex())
}

// AddFullRangeLiquidity 全价格区间注入流动性
func (e *PoolEngine) AddFullRangeLiquidity(ctx context.Context, poolId string, baseAmount, quoteAmount *big.Int) (string, error) {
	auth, err := e.client.GetAuth()
	if err != nil {
		return "", err
	}
	auth.Context = ctx

	tx, err := e.manager.Transact(auth, "addFullRangeLiquidity",
		common.HexToHash(poolId), baseAmount, quoteAmount)
	if err != nil {
		return "", fmt.Errorf("addFullRangeLiquidity failed: %w", err)
	}
	return tx.Hash().Hex(), nil
}

// WatchTrades 轮询池子的成交事件并回调费率钩子
// 钩子返回的费率偏移提交给池子合约，买卖不对称费率由此生效
func (e *PoolEngine) WatchTrades(ctx context.Context, interval time.Duration, hook FeeHook) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastBlock := uint64(0)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Trade watcher stopped")
			return
		case <-ticker.C:
			currentBlock, err := e.client.GetLatestBlock(ctx)
			if err != nil {
				logger.Error("Failed to fetch latest block: %v", err)
				continue
			}
			if lastBlock == 0 {
				lastBlock = currentBlock
				continue
			}
			if currentBlock <= lastBlock {
				continue
			}

			if err := e.processTradeLogs(ctx, lastBlock+1, currentBlock, hook); err != nil {
				logger.Error("Failed to process trade logs: %v", err)
				continue
			}
			lastBlock = currentBlock
		}
	}
}

// processTradeLogs 解析区块范围内的成交事件并提交费率偏移
func (e *PoolEngine) processTradeLogs(ctx context.Context, fromBlock, toBlock uint64, hook FeeHook) error {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{e.managerAddr},
		Topics:    [][]common.Hash{{e.tradeID}},
	}

	logs, err := e.client.Raw().FilterLogs(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to filter trade logs: %w", err)
	}

	for _, log := range logs {
		poolId, baseDelta, quoteDelta, err := e.parseTradeLog(log)
		if err != nil {
			logger.Warn("Failed to parse trade log %s: %v", log.TxHash.Hex(), err)
			continue
		}

		adjustment := hook(baseDelta, quoteDelta)
		if err := e.submitFeeAdjustment(ctx, poolId, adjustment); err != nil {
			logger.Error("Failed to submit fee adjustment for pool %s: %v", poolId.Hex(), err)
		}
	}

	return nil
}

// parseTradeLog 解析成交事件中的带符号余额变化
func (e *PoolEngine) parseTradeLog(log types.Log) (common.Hash, *big.Int, *big.Int, error) {
	if len(log.Topics) < 3 {
		return common.Hash{}, nil, nil, fmt.Errorf("invalid TradeExecuted event: insufficient topics")
	}

	poolId := log.Topics[1]

	values, err := e.managerABI.Unpack("TradeExecuted", log.Data)
	if err != nil {
		return common.Hash{}, nil, nil, fmt.Errorf("failed to unpack trade event: %w", err)
	}
	if len(values) < 2 {
		return common.Hash{}, nil, nil, fmt.Errorf("invalid TradeExecuted event: insufficient data")
	}

	baseDelta := values[0].(*big.Int)
	quoteDelta := values[1].(*big.Int)
	return poolId, baseDelta, quoteDelta, nil
}

// submitFeeAdjustment 提交费率偏移
func (e *PoolEngine) submitFeeAdjustment(ctx context.Context, poolId common.Hash, adjustmentBps int32) error {
	auth, err := e.client.GetAuth()
	if err != nil {
		return err
	}
	auth.Context = ctx

	_, err = e.manager.Transact(auth, "setFeeAdjustment", poolId, adjustmentBps)
	return err
}
