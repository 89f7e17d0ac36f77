package pool

import (
	"math/big"

	"github.com/csacanam/fanio-sub001/internal/config"
)

// Direction 交易方向
type Direction int

const (
	DirectionBuy  Direction = iota // 买入：代币净流入交易者
	DirectionSell                  // 卖出：代币净流出交易者
)

// String 方向描述
func (d Direction) String() string {
	if d == DirectionBuy {
		return "buy"
	}
	return "sell"
}

// Classify 根据交易者视角的带符号余额变化判定交易方向
// baseDelta 为凭证代币变化量，quoteDelta 为报价资产变化量
// 代币净流入为买入，其余情况（包括双腿皆为付出）一律判定为卖出
func Classify(baseDelta, quoteDelta *big.Int) Direction {
	if baseDelta.Sign() > 0 {
		return DirectionBuy
	}
	return DirectionSell
}

// FeeEngine 动态费率引擎
// 无状态的逐笔费率策略：买入减费、卖出加费，偏移为固定常数
type FeeEngine struct {
	buyOffsetBps  int32
	sellOffsetBps int32
}

// NewFeeEngine 创建动态费率引擎
func NewFeeEngine(cfg config.PoolConfig) *FeeEngine {
	return &FeeEngine{
		buyOffsetBps:  cfg.BuyFeeOffsetBps,
		sellOffsetBps: cfg.SellFeeOffsetBps,
	}
}

// AdjustmentBps 返回指定方向的费率偏移（万分比）
// 买入返回负值（减费），卖出返回正值（加费）
func (e *FeeEngine) AdjustmentBps(dir Direction) int32 {
	if dir == DirectionBuy {
		return -e.buyOffsetBps
	}
	return e.sellOffsetBps
}

// OnTrade 池子引擎交易完成回调：判定方向并返回费率偏移
func (e *FeeEngine) OnTrade(baseDelta, quoteDelta *big.Int) int32 {
	return e.AdjustmentBps(Classify(baseDelta, quoteDelta))
}
