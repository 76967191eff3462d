package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hkquant/internal/market"
)

func seriesWith(symbol string, closes, volumes []float64) market.Series {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := market.Series{Symbol: symbol}
	for i, c := range closes {
		v := 1000.0
		if volumes != nil {
			v = volumes[i]
		}
		s.Bars = append(s.Bars, market.Bar{
			Date: base.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: v,
		})
	}
	return s
}

func risingCloses(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i)
	}
	return out
}

func fallingCloses(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 200 - float64(i)
	}
	return out
}

func TestAnalyzeInsufficientData(t *testing.T) {
	s := seriesWith("0700.HK", risingCloses(30), nil)
	_, err := Analyze(s, Settings{})
	assert.Error(t, err, "长度不足 EMA 慢线周期时必须报错")
}

func TestAnalyzeUptrend(t *testing.T) {
	s := seriesWith("0700.HK", risingCloses(80), nil)
	rep, err := Analyze(s, Settings{})
	require.NoError(t, err)
	assert.Equal(t, "above_both", rep.TrendState, "单调上涨收盘价应在快慢均线上方")
	assert.Equal(t, "overbought", rep.RSIZone, "持续上涨 RSI 必然超买")
	assert.Equal(t, "bullish", rep.MACDState)
	assert.Equal(t, 179.0, rep.LastClose)
}

func TestAnalyzeDowntrend(t *testing.T) {
	s := seriesWith("0700.HK", fallingCloses(80), nil)
	rep, err := Analyze(s, Settings{})
	require.NoError(t, err)
	assert.Equal(t, "below_both", rep.TrendState)
	assert.Equal(t, "oversold", rep.RSIZone)
	assert.Equal(t, "bearish", rep.MACDState)
	assert.Less(t, rep.Score, 0.0)
}

func TestVolumeBias(t *testing.T) {
	n := 40
	vols := make([]float64, n)
	for i := range vols {
		vols[i] = 1000
	}
	for i := n - 5; i < n; i++ {
		vols[i] = 2000 // 近 5 日放量
	}
	s := seriesWith("0700.HK", risingCloses(n), vols)
	assert.Equal(t, "rising", volumeBias(s))

	for i := n - 5; i < n; i++ {
		s.Bars[i].Volume = 500 // 近 5 日缩量
	}
	assert.Equal(t, "falling", volumeBias(s))

	for i := n - 5; i < n; i++ {
		s.Bars[i].Volume = 1000
	}
	assert.Equal(t, "flat", volumeBias(s))

	short := seriesWith("0700.HK", risingCloses(10), nil)
	assert.Equal(t, "flat", volumeBias(short), "样本不足时不下结论")
}

func TestRankPoolOrderAndSkip(t *testing.T) {
	pool := map[string]market.Series{
		"UP.HK":    seriesWith("UP.HK", risingCloses(80), nil),
		"DOWN.HK":  seriesWith("DOWN.HK", fallingCloses(80), nil),
		"SHORT.HK": seriesWith("SHORT.HK", risingCloses(10), nil),
	}
	ranked := RankPool(pool, Settings{})
	require.Len(t, ranked, 2, "数据不足的标的应被跳过")
	assert.Equal(t, "UP.HK", ranked[0].Symbol)
	assert.Equal(t, "DOWN.HK", ranked[1].Symbol)
	assert.Greater(t, ranked[0].Score, ranked[1].Score)
}

func TestSummaryContainsKeyFields(t *testing.T) {
	rep := Report{
		Symbol: "0700.HK", LastClose: 321.4, TrendState: "above_both",
		RSI: 66.7, RSIZone: "neutral", MACDState: "bullish", VolumeBias: "rising", Score: 3,
	}
	text := rep.Summary()
	assert.Contains(t, text, "321.40")
	assert.Contains(t, text, "above_both")
	assert.Contains(t, text, "66.7")
	assert.Contains(t, text, "bullish")
	assert.Contains(t, text, "综合评分: 3")
}
