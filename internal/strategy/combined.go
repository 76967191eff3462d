package strategy

import (
	"hkquant/internal/config"
	"hkquant/internal/indicator"
)

// Combined 组合策略：布林带 / RSI / MACD 三票多数决，
// 票和 >= 2 买入、<= -2 卖出，其余观望。
type Combined struct {
	members []Strategy
}

func NewCombined(cfg config.StrategyConfig) (*Combined, error) {
	boll, err := NewBollinger(cfg.BBPeriod, cfg.BBStd)
	if err != nil {
		return nil, err
	}
	rsi, err := NewRSI(cfg.RSIPeriod, cfg.RSIOverbought, cfg.RSIOversold)
	if err != nil {
		return nil, err
	}
	macd, err := NewMACD(cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
	if err != nil {
		return nil, err
	}
	return &Combined{members: []Strategy{boll, rsi, macd}}, nil
}

func (s *Combined) Name() string { return IDCombined }

func (s *Combined) GenerateSignals(f indicator.Frame) []int {
	signals := zeroSignals(f.Len())
	if f.Empty() {
		return signals
	}
	votes := make([]int, f.Len())
	for _, member := range s.members {
		for i, v := range member.GenerateSignals(f) {
			votes[i] += v
		}
	}
	for i, v := range votes {
		switch {
		case v >= 2:
			signals[i] = SignalBuy
		case v <= -2:
			signals[i] = SignalSell
		}
	}
	return signals
}
