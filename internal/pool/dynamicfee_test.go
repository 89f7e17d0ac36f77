package pool

import (
	"math/big"
	"testing"

	"github.com/csacanam/fanio-sub001/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		baseDelta  int64
		quoteDelta int64
		want       Direction
	}{
		{"付出报价资产换得代币为买入", 100, -120, DirectionBuy},
		{"付出代币换得报价资产为卖出", -100, 120, DirectionSell},
		{"双腿皆为付出判定为卖出", -100, -120, DirectionSell},
		{"双腿皆为收入判定为买入", 100, 120, DirectionBuy},
		{"代币无变化判定为卖出", 0, 120, DirectionSell},
		{"零交易判定为卖出", 0, 0, DirectionSell},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(big.NewInt(tt.baseDelta), big.NewInt(tt.quoteDelta))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFeeEngineAdjustmentBps(t *testing.T) {
	engine := NewFeeEngine(config.PoolConfig{BuyFeeOffsetBps: 1, SellFeeOffsetBps: 10})

	assert.Equal(t, int32(-1), engine.AdjustmentBps(DirectionBuy))
	assert.Equal(t, int32(10), engine.AdjustmentBps(DirectionSell))
}

func TestFeeEngineOnTrade(t *testing.T) {
	engine := NewFeeEngine(config.PoolConfig{BuyFeeOffsetBps: 1, SellFeeOffsetBps: 10})

	assert.Equal(t, int32(-1), engine.OnTrade(big.NewInt(500), big.NewInt(-600)))
	assert.Equal(t, int32(10), engine.OnTrade(big.NewInt(-500), big.NewInt(600)))
}

func TestDirectionString(t *testing.T) {
	assert.Equal(t, "buy", DirectionBuy.String())
	assert.Equal(t, "sell", DirectionSell.String())
}
