package datasource

import (
	"math"
	"strings"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"hkquant/internal/market"
)

// 指数兜底行情的基准价与日波动率。
type syntheticProfile struct {
	basePrice  float64
	volatility float64
}

func indexProfile(symbol string) syntheticProfile {
	// 恒生科技类指数基准约 8000 点，其余按恒生指数 20000 点
	if symContains(symbol, "HST50", "HSTECH") {
		return syntheticProfile{basePrice: 8000, volatility: 0.015}
	}
	return syntheticProfile{basePrice: 20000, volatility: 0.012}
}

func symContains(symbol string, keys ...string) bool {
	upper := strings.ToUpper(symbol)
	for _, k := range keys {
		if strings.Contains(upper, k) {
			return true
		}
	}
	return false
}

// SyntheticIndexSeries 生成指数的随机游走兜底行情：
// 仅覆盖 [start, end] 内的工作日，Close 为带微小漂移的随机游走，
// Open/High/Low 由 Close 乘性抖动派生，Volume 正态采样并截断为正。
// 种子由 symbol 与区间决定，同一请求可复现。
func SyntheticIndexSeries(symbol string, start, end time.Time) market.Series {
	days := businessDays(start, end)
	if len(days) == 0 {
		return market.Series{Symbol: symbol, Synthetic: true}
	}
	prof := indexProfile(symbol)
	src := rand.NewSource(symbolSeed(symbol) ^ uint64(start.Unix()) ^ uint64(end.Unix())<<1)
	normal := func(mu, sigma float64) float64 {
		return distuv.Normal{Mu: mu, Sigma: sigma, Src: src}.Rand()
	}

	closes := make([]float64, len(days))
	closes[0] = prof.basePrice
	for i := 1; i < len(days); i++ {
		change := closes[i-1] * normal(0.0002, prof.volatility)
		closes[i] = closes[i-1] + change
	}

	const baseVolume = 1_000_000.0
	series := market.Series{Symbol: symbol, Synthetic: true}
	for i, day := range days {
		c := closes[i]
		o := c * normal(1.0, 0.005)
		h := math.Max(o, c) * normal(1.01, 0.005)
		l := math.Min(o, c) * normal(0.99, 0.005)
		v := normal(baseVolume, baseVolume*0.2)
		if v < baseVolume*0.5 {
			v = baseVolume * 0.5
		}
		series.Bars = append(series.Bars, market.Bar{
			Date: day, Open: o, High: h, Low: l, Close: c, Volume: math.Trunc(v),
		})
	}
	return series
}

func businessDays(start, end time.Time) []time.Time {
	var out []time.Time
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	for !day.After(last) {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out = append(out, day)
		}
		day = day.AddDate(0, 0, 1)
	}
	return out
}
