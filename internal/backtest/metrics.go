package backtest

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// tradingDaysPerYear 为年化口径，对齐港股日线惯例。
const tradingDaysPerYear = 252

func nan() float64         { return math.NaN() }
func isNaN(v float64) bool { return math.IsNaN(v) }

// strategyReturns 计算移仓后的逐日策略收益：
// 第 t 日的敞口由第 t-1 日的信号决定，首日无收益记 0。
func strategyReturns(closes []float64, signals []int) []float64 {
	sr := make([]float64, len(closes))
	for t := 1; t < len(closes); t++ {
		if closes[t-1] == 0 {
			continue
		}
		r := closes[t]/closes[t-1] - 1
		sr[t] = r * float64(signals[t-1])
	}
	return sr
}

// equityFromReturns 生成资金曲线，E_0 为初始资金。
func equityFromReturns(capital float64, sr []float64) []float64 {
	equity := make([]float64, len(sr))
	prev := capital
	for t, r := range sr {
		if t == 0 {
			equity[0] = capital
			continue
		}
		prev = prev * (1 + r)
		equity[t] = prev
	}
	if len(equity) > 0 {
		equity[0] = capital
	}
	return equity
}

// computeMetrics 汇总绩效指标。零方差收益使夏普为 NaN，按原样保留。
func computeMetrics(equity, sr []float64, signals []int, capital float64) Metrics {
	m := Metrics{Sharpe: nan()}
	n := len(equity)
	if n == 0 || capital == 0 {
		return m
	}
	m.TotalReturn = equity[n-1]/capital - 1
	m.AnnualizedReturn = math.Pow(1+m.TotalReturn, tradingDaysPerYear/float64(n)) - 1
	m.MaxDrawdown = maxDrawdown(equity)

	mean := stat.Mean(sr, nil)
	std := stat.StdDev(sr, nil)
	if std > 0 {
		m.Sharpe = math.Sqrt(tradingDaysPerYear) * mean / std
	}

	wins := 0
	for t := 1; t < len(signals); t++ {
		if signals[t] != signals[t-1] {
			m.NumTrades++
			if sr[t] > 0 {
				wins++
			}
		}
	}
	if m.NumTrades > 0 {
		m.WinRate = float64(wins) / float64(m.NumTrades)
	}
	return m
}

// maxDrawdown 返回峰值到谷底的最大回撤比例，落在 [0,1]。
func maxDrawdown(equity []float64) float64 {
	peak := math.Inf(-1)
	worst := 0.0
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		if peak > 0 {
			dd := (peak - e) / peak
			if dd > worst {
				worst = dd
			}
		}
	}
	return worst
}
