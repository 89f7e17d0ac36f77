package pool

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/csacanam/fanio-sub001/internal/config"
	"github.com/csacanam/fanio-sub001/internal/logger"
	"github.com/shopspring/decimal"
)

// ErrSeedTooSmall 超额资金不足一个代币份额，无法建池
var ErrSeedTooSmall = errors.New("excess too small to seed one token")

// Engine 交易池引擎接口，由链适配层实现
type Engine interface {
	// CreatePool 按初始价格tick创建交易池
	CreatePool(ctx context.Context, baseToken, quoteToken string, initialTick int32) (poolId string, err error)
	// AddFullRangeLiquidity 全价格区间注入流动性
	AddFullRangeLiquidity(ctx context.Context, poolId string, baseAmount, quoteAmount *big.Int) (txHash string, err error)
}

// SeedResult 池子种子计算结果
type SeedResult struct {
	BaseAllocation int64    // 凭证代币池子份额（结算资产最小单位计价，发行器据此铸造）
	BaseAmount     *big.Int // 凭证代币数量（链上单位）
	QuoteAmount    *big.Int // 报价资产数量（结算资产最小单位）
	InitialTick    int32    // 初始价格tick
}

// Bootstrapper 流动性引导器
// 把超额募集资金换算成池子的报价侧与代币侧数量，并完成建池注资
type Bootstrapper struct {
	engine      Engine
	priceRatio  decimal.Decimal
	tickSpacing int32
}

// NewBootstrapper 创建流动性引导器
func NewBootstrapper(engine Engine, cfg config.PoolConfig) (*Bootstrapper, error) {
	ratio, err := decimal.NewFromString(cfg.SeedPriceRatio)
	if err != nil {
		return nil, fmt.Errorf("invalid seed price ratio %q: %w", cfg.SeedPriceRatio, err)
	}
	if !ratio.IsPositive() {
		return nil, errors.New("seed price ratio must be positive")
	}
	if cfg.TickSpacing <= 0 {
		return nil, errors.New("tick spacing must be positive")
	}

	return &Bootstrapper{
		engine:      engine,
		priceRatio:  ratio,
		tickSpacing: int32(cfg.TickSpacing),
	}, nil
}

// Compute 计算池子种子数量与初始价格tick
func (b *Bootstrapper) Compute(excess int64, quoteDecimals, baseDecimals uint8) (SeedResult, error) {
	return ComputeSeed(excess, b.priceRatio, quoteDecimals, baseDecimals, b.tickSpacing)
}

// Provision 按计算好的种子数量建池并注入全区间流动性
func (b *Bootstrapper) Provision(ctx context.Context, baseToken, quoteToken string, seed SeedResult) (string, string, error) {
	poolId, err := b.engine.CreatePool(ctx, baseToken, quoteToken, seed.InitialTick)
	if err != nil {
		return "", "", fmt.Errorf("创建交易池失败: %w", err)
	}

	txHash, err := b.engine.AddFullRangeLiquidity(ctx, poolId, seed.BaseAmount, seed.QuoteAmount)
	if err != nil {
		return poolId, "", fmt.Errorf("注入流动性失败: %w", err)
	}

	logger.Info("Seeded pool %s with base=%s quote=%s tick=%d, tx: %s",
		poolId, seed.BaseAmount, seed.QuoteAmount, seed.InitialTick, txHash)
	return poolId, txHash, nil
}

// ComputeSeed 计算池子种子数量与初始价格tick
// 纯函数：报价侧为超额资金全额，代币侧按配置价格比例折算，结果可复现
func ComputeSeed(excess int64, priceRatio decimal.Decimal, quoteDecimals, baseDecimals uint8, tickSpacing int32) (SeedResult, error) {
	if excess <= 0 {
		return SeedResult{}, errors.New("excess must be positive")
	}
	if !priceRatio.IsPositive() {
		return SeedResult{}, errors.New("price ratio must be positive")
	}
	if tickSpacing <= 0 {
		return SeedResult{}, errors.New("tick spacing must be positive")
	}

	// 报价侧：超额资金全额入池
	quoteAmount := big.NewInt(excess)

	// 代币侧：按1:1计价口径先算出份额，再换算到代币精度
	baseAllocation := decimal.NewFromInt(excess).Div(priceRatio).Floor().IntPart()
	if baseAllocation == 0 {
		return SeedResult{}, ErrSeedTooSmall
	}
	baseAmount := decimal.NewFromInt(baseAllocation).
		Shift(int32(baseDecimals) - int32(quoteDecimals)).
		Floor().
		BigInt()

	tick, err := priceTick(priceRatio, quoteDecimals, baseDecimals, tickSpacing)
	if err != nil {
		return SeedResult{}, err
	}

	return SeedResult{
		BaseAllocation: baseAllocation,
		BaseAmount:     baseAmount,
		QuoteAmount:    quoteAmount,
		InitialTick:    tick,
	}, nil
}

// priceTick 把价格比例换算成池子引擎使用的tick坐标
// 原始价格 = 比例 × 10^(报价精度-代币精度)，tick = log_1.0001(原始价格)，向下对齐到tick间距
// 对数全程用定点小数计算，任何平台上结果逐位一致
func priceTick(priceRatio decimal.Decimal, quoteDecimals, baseDecimals uint8, tickSpacing int32) (int32, error) {
	const lnPrecision = 40

	lnRatio, err := priceRatio.Ln(lnPrecision)
	if err != nil {
		return 0, fmt.Errorf("failed to compute ln of price ratio: %w", err)
	}
	lnTen, err := decimal.NewFromInt(10).Ln(lnPrecision)
	if err != nil {
		return 0, fmt.Errorf("failed to compute ln(10): %w", err)
	}
	lnTickBase, err := decimal.RequireFromString("1.0001").Ln(lnPrecision)
	if err != nil {
		return 0, fmt.Errorf("failed to compute ln(1.0001): %w", err)
	}

	decimalShift := decimal.NewFromInt(int64(quoteDecimals) - int64(baseDecimals))
	logPrice := lnRatio.Add(decimalShift.Mul(lnTen))
	tick := int32(logPrice.DivRound(lnTickBase, 20).Floor().IntPart())

	// 向负无穷方向对齐
	aligned := tick / tickSpacing * tickSpacing
	if tick < 0 && tick%tickSpacing != 0 {
		aligned -= tickSpacing
	}
	return aligned, nil
}
