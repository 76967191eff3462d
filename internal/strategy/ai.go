package strategy

import (
	"hkquant/internal/indicator"
	"hkquant/internal/market"
)

// AIEnhanced 在组合策略之上叠加模型提示：某个交易日存在提示时，
// 该日信号以提示为准，否则回落到技术面信号。提示缺失或模型
// 调用失败时整条曲线与组合策略完全一致。
type AIEnhanced struct {
	base  Strategy
	hints map[string]int // 日期("2006-01-02") -> 信号
}

func NewAIEnhanced(base Strategy, hints map[string]int) *AIEnhanced {
	return &AIEnhanced{base: base, hints: hints}
}

func (s *AIEnhanced) Name() string { return IDAI }

// SetHints 替换提示表，调度器在每轮模型分析后调用。
func (s *AIEnhanced) SetHints(hints map[string]int) {
	s.hints = hints
}

func (s *AIEnhanced) GenerateSignals(f indicator.Frame) []int {
	signals := s.base.GenerateSignals(f)
	if len(s.hints) == 0 {
		return signals
	}
	for i, bar := range f.Series.Bars {
		if v, ok := s.hints[bar.Date.Format(market.DateLayout)]; ok {
			signals[i] = clampSignal(v)
		}
	}
	return signals
}

func clampSignal(v int) int {
	switch {
	case v > 0:
		return SignalBuy
	case v < 0:
		return SignalSell
	default:
		return SignalHold
	}
}
