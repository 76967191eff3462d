package strategy

import (
	"fmt"

	"hkquant/internal/indicator"
)

// MACD 金叉死叉策略：DIF 上穿 DEA 当根买入、下穿当根卖出，
// 其余时间输出 0（边沿触发，不做持续持仓表达）。
type MACD struct {
	fast   int
	slow   int
	signal int
}

func NewMACD(fast, slow, signal int) (*MACD, error) {
	if fast <= 0 || slow <= 0 || signal <= 0 {
		return nil, fmt.Errorf("MACD 周期必须为正数 (fast=%d slow=%d signal=%d)", fast, slow, signal)
	}
	if fast >= slow {
		return nil, fmt.Errorf("MACD 快线周期(%d)必须小于慢线周期(%d)", fast, slow)
	}
	return &MACD{fast: fast, slow: slow, signal: signal}, nil
}

func (s *MACD) Name() string { return IDMACD }

func (s *MACD) GenerateSignals(f indicator.Frame) []int {
	signals := zeroSignals(f.Len())
	if f.Empty() {
		return signals
	}
	closes := f.Closes()
	emaFast := indicator.EMA(closes, s.fast)
	emaSlow := indicator.EMA(closes, s.slow)
	macd := make([]float64, len(closes))
	for i := range closes {
		macd[i] = emaFast[i] - emaSlow[i] // NaN 自动传播
	}
	dea := indicator.EMA(macd, s.signal)

	for i := 1; i < len(closes); i++ {
		if !indicator.Defined(macd[i]) || !indicator.Defined(dea[i]) ||
			!indicator.Defined(macd[i-1]) || !indicator.Defined(dea[i-1]) {
			continue
		}
		crossedUp := macd[i-1] <= dea[i-1] && macd[i] > dea[i]
		crossedDown := macd[i-1] >= dea[i-1] && macd[i] < dea[i]
		switch {
		case crossedUp:
			signals[i] = SignalBuy
		case crossedDown:
			signals[i] = SignalSell
		}
	}
	return signals
}
