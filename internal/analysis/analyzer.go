package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	talib "github.com/markcheno/go-talib"

	"hkquant/internal/market"
)

// Settings 描述快评所用的指标参数。
type Settings struct {
	EMAFast       int
	EMASlow       int
	RSIPeriod     int
	RSIOversold   float64
	RSIOverbought float64
}

func (s *Settings) applyDefaults() {
	if s.EMAFast <= 0 {
		s.EMAFast = 21
	}
	if s.EMASlow <= 0 {
		s.EMASlow = 50
	}
	if s.RSIPeriod <= 0 {
		s.RSIPeriod = 14
	}
	if s.RSIOverbought == 0 {
		s.RSIOverbought = 70
	}
	if s.RSIOversold == 0 {
		s.RSIOversold = 30
	}
}

// Report 是单个股票的技术面快评，交给 AI 点评与池内排名使用。
type Report struct {
	Symbol     string  `json:"symbol"`
	LastClose  float64 `json:"last_close"`
	TrendState string  `json:"trend_state"` // above_both / mixed / below_both
	RSI        float64 `json:"rsi"`
	RSIZone    string  `json:"rsi_zone"` // oversold / neutral / overbought
	MACDState  string  `json:"macd_state"`
	VolumeBias string  `json:"volume_bias"` // rising / falling / flat
	Score      float64 `json:"score"`
}

// Analyze 用 talib 对序列做趋势/动量/量能快评。
func Analyze(series market.Series, cfg Settings) (Report, error) {
	cfg.applyDefaults()
	rep := Report{Symbol: series.Symbol}
	closes := series.Closes()
	if len(closes) <= cfg.EMASlow {
		return rep, fmt.Errorf("数据不足以计算 EMA%d: %s (%d 根)", cfg.EMASlow, series.Symbol, len(closes))
	}
	rep.LastClose = closes[len(closes)-1]

	emaFast := lastValid(talib.Ema(closes, cfg.EMAFast))
	emaSlow := lastValid(talib.Ema(closes, cfg.EMASlow))
	switch {
	case rep.LastClose > emaFast && rep.LastClose > emaSlow:
		rep.TrendState = "above_both"
		rep.Score += 2
	case rep.LastClose < emaFast && rep.LastClose < emaSlow:
		rep.TrendState = "below_both"
		rep.Score -= 2
	default:
		rep.TrendState = "mixed"
	}

	rep.RSI = lastValid(talib.Rsi(closes, cfg.RSIPeriod))
	switch {
	case rep.RSI <= cfg.RSIOversold:
		rep.RSIZone = "oversold"
		rep.Score += 1
	case rep.RSI >= cfg.RSIOverbought:
		rep.RSIZone = "overbought"
		rep.Score -= 1
	default:
		rep.RSIZone = "neutral"
	}

	_, _, hist := talib.Macd(closes, 12, 26, 9)
	histVal := lastValid(hist)
	switch {
	case histVal > 0:
		rep.MACDState = "bullish"
		rep.Score += 1
	case histVal < 0:
		rep.MACDState = "bearish"
		rep.Score -= 1
	default:
		rep.MACDState = "flat"
	}

	rep.VolumeBias = volumeBias(series)
	if rep.VolumeBias == "rising" && rep.TrendState == "above_both" {
		rep.Score += 1
	}
	return rep, nil
}

// Summary 生成交给 AI 点评的中文技术面摘要。
func (r Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "最新收盘价: %.2f\n", r.LastClose)
	fmt.Fprintf(&b, "均线趋势: %s (收盘价相对 EMA 快/慢线)\n", r.TrendState)
	fmt.Fprintf(&b, "RSI: %.1f (%s)\n", r.RSI, r.RSIZone)
	fmt.Fprintf(&b, "MACD: %s\n", r.MACDState)
	fmt.Fprintf(&b, "量能: %s\n", r.VolumeBias)
	fmt.Fprintf(&b, "综合评分: %.0f", r.Score)
	return b.String()
}

// RankPool 对一批序列做快评并按评分降序返回，数据不足的标的跳过。
func RankPool(seriesBySymbol map[string]market.Series, cfg Settings) []Report {
	out := make([]Report, 0, len(seriesBySymbol))
	for _, series := range seriesBySymbol {
		rep, err := Analyze(series, cfg)
		if err != nil {
			continue
		}
		out = append(out, rep)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// volumeBias 对比近 5 日与此前 20 日的平均成交量。
func volumeBias(series market.Series) string {
	n := series.Len()
	if n < 25 {
		return "flat"
	}
	recent, base := 0.0, 0.0
	for _, bar := range series.Bars[n-5:] {
		recent += bar.Volume
	}
	recent /= 5
	for _, bar := range series.Bars[n-25 : n-5] {
		base += bar.Volume
	}
	base /= 20
	switch {
	case base <= 0:
		return "flat"
	case recent > base*1.2:
		return "rising"
	case recent < base*0.8:
		return "falling"
	default:
		return "flat"
	}
}

func lastValid(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) && !math.IsInf(series[i], 0) && series[i] != 0 {
			return series[i]
		}
	}
	return 0
}
