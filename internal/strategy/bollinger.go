package strategy

import (
	"fmt"

	"hkquant/internal/indicator"
)

// Bollinger 布林带策略：收盘价触及下轨买入、上轨卖出。
// 带宽按自身周期/倍数现算，不依赖帧内固定 20/2σ 列。
type Bollinger struct {
	period int
	numStd float64
}

func NewBollinger(period int, numStd float64) (*Bollinger, error) {
	if period <= 0 {
		return nil, fmt.Errorf("布林带周期必须为正数，当前 %d", period)
	}
	if numStd <= 0 {
		return nil, fmt.Errorf("布林带标准差倍数必须为正数，当前 %v", numStd)
	}
	return &Bollinger{period: period, numStd: numStd}, nil
}

func (s *Bollinger) Name() string { return IDBollinger }

func (s *Bollinger) GenerateSignals(f indicator.Frame) []int {
	signals := zeroSignals(f.Len())
	if f.Empty() {
		return signals
	}
	closes := f.Closes()
	ma := indicator.RollingMean(closes, s.period)
	std := indicator.RollingStd(closes, s.period)
	for i := range closes {
		if !indicator.Defined(ma[i]) || !indicator.Defined(std[i]) {
			continue // 窗口未满：强制 0
		}
		upper := ma[i] + s.numStd*std[i]
		lower := ma[i] - s.numStd*std[i]
		switch {
		case closes[i] <= lower:
			signals[i] = SignalBuy
		case closes[i] >= upper:
			signals[i] = SignalSell
		}
	}
	return signals
}
