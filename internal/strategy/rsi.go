package strategy

import (
	"fmt"

	"hkquant/internal/indicator"
)

// RSI 超买超卖策略：RSI 跌破超卖线买入、突破超买线卖出。
type RSI struct {
	period     int
	overbought float64
	oversold   float64
}

func NewRSI(period int, overbought, oversold float64) (*RSI, error) {
	if period <= 0 {
		return nil, fmt.Errorf("RSI 周期必须为正数，当前 %d", period)
	}
	if overbought <= oversold {
		return nil, fmt.Errorf("RSI 超买阈值(%v)必须大于超卖阈值(%v)", overbought, oversold)
	}
	return &RSI{period: period, overbought: overbought, oversold: oversold}, nil
}

func (s *RSI) Name() string { return IDRSI }

func (s *RSI) GenerateSignals(f indicator.Frame) []int {
	signals := zeroSignals(f.Len())
	if f.Empty() {
		return signals
	}
	rsi := indicator.RSI(f.Closes(), s.period)
	for i, v := range rsi {
		if !indicator.Defined(v) {
			continue
		}
		switch {
		case v <= s.oversold:
			signals[i] = SignalBuy
		case v >= s.overbought:
			signals[i] = SignalSell
		}
	}
	return signals
}
