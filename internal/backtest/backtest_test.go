package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hkquant/internal/config"
	"hkquant/internal/indicator"
	"hkquant/internal/market"
)

type stubProvider struct {
	series map[string]market.Series
	calls  int
}

func (p *stubProvider) GetSeries(ctx context.Context, symbol string, start, end time.Time, useCache bool) (market.Series, error) {
	p.calls++
	s, ok := p.series[symbol]
	if !ok {
		return market.Series{}, fmt.Errorf("行情不可用: %s", symbol)
	}
	return s, nil
}

type fixedStrategy struct {
	name    string
	signals []int
}

func (s fixedStrategy) Name() string { return s.name }
func (s fixedStrategy) GenerateSignals(f indicator.Frame) []int {
	if s.signals != nil {
		return s.signals
	}
	return make([]int, f.Len())
}

func makeSeries(symbol string, closes []float64) market.Series {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := market.Series{Symbol: symbol}
	for i, c := range closes {
		s.Bars = append(s.Bars, market.Bar{
			Date: base.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1,
		})
	}
	return s
}

func testRange() (time.Time, time.Time) {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
}

func TestEquityCurveStartsAtCapital(t *testing.T) {
	provider := &stubProvider{series: map[string]market.Series{
		"0700.HK": makeSeries("0700.HK", []float64{100, 110, 105, 120}),
	}}
	engine := NewEngine(provider)
	start, end := testRange()
	res, err := engine.Run(context.Background(), fixedStrategy{name: "test", signals: []int{1, 1, 1, 1}}, "0700.HK", start, end, 1000000)
	require.NoError(t, err)
	require.Len(t, res.EquityCurve, 4)
	assert.Equal(t, 1000000.0, res.EquityCurve[0].Value)
	for _, p := range res.EquityCurve {
		assert.GreaterOrEqual(t, p.Value, 0.0)
	}
}

func TestNoLookAhead(t *testing.T) {
	// 信号只在最后一天为 1：它决定的是下一天的敞口，
	// 而序列已经结束，因此整条曲线必须保持平坦。
	provider := &stubProvider{series: map[string]market.Series{
		"0700.HK": makeSeries("0700.HK", []float64{100, 100, 100, 200}),
	}}
	engine := NewEngine(provider)
	start, end := testRange()
	res, err := engine.Run(context.Background(), fixedStrategy{name: "test", signals: []int{0, 0, 0, 1}}, "0700.HK", start, end, 1000)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, res.TotalReturn, 1e-12)

	// 信号提前一天出现时，第 4 天的涨幅才会被捕获
	res2, err := engine.Run(context.Background(), fixedStrategy{name: "test", signals: []int{0, 0, 1, 0}}, "0700.HK", start, end, 1000)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res2.TotalReturn, 1e-12)
}

func TestConstantZeroSignalsDegenerate(t *testing.T) {
	provider := &stubProvider{series: map[string]market.Series{
		"0700.HK": makeSeries("0700.HK", []float64{100, 105, 95, 110, 90}),
	}}
	engine := NewEngine(provider)
	start, end := testRange()
	res, err := engine.Run(context.Background(), fixedStrategy{name: "flat"}, "0700.HK", start, end, 1000000)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, res.TotalReturn, 1e-12)
	assert.Equal(t, 0, res.NumTrades)
	assert.Equal(t, 0.0, res.WinRate)
	assert.True(t, math.IsNaN(res.Sharpe), "零方差收益的夏普必须保持 NaN")
	assert.Equal(t, 0.0, res.MaxDrawdown)
}

func TestTradeCounting(t *testing.T) {
	sr := []float64{0, 0.1, -0.05, 0.2}
	signals := []int{0, 1, 1, -1}
	equity := equityFromReturns(1000, sr)
	m := computeMetrics(equity, sr, signals, 1000)
	// 变化点: 0->1 (t=1, sr>0 赢), 1->-1 (t=3, sr>0 赢)
	assert.Equal(t, 2, m.NumTrades)
	assert.InDelta(t, 1.0, m.WinRate, 1e-12)
}

func TestMaxDrawdownBounds(t *testing.T) {
	equity := []float64{100, 120, 60, 90, 150}
	dd := maxDrawdown(equity)
	assert.InDelta(t, 0.5, dd, 1e-12)
	assert.GreaterOrEqual(t, dd, 0.0)
	assert.LessOrEqual(t, dd, 1.0)
}

func TestResultJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	res := Result{
		Strategy:       "combined",
		Symbol:         "9988.HK",
		StartDate:      "2024-01-01",
		EndDate:        "2024-01-03",
		InitialCapital: 1000000,
		EquityCurve: EquityCurve{
			{Date: base, Value: 1000000},
			{Date: base.AddDate(0, 0, 1), Value: 1012345.6789},
			{Date: base.AddDate(0, 0, 2), Value: 998877.665544},
		},
		Metrics: Metrics{
			TotalReturn:      -0.001122334456,
			AnnualizedReturn: -0.09,
			MaxDrawdown:      0.0133,
			Sharpe:           math.NaN(),
			NumTrades:        2,
			WinRate:          0.5,
		},
	}
	path, err := SaveResult(dir, res)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))

	got, err := LoadResult(path)
	require.NoError(t, err)
	assert.InDelta(t, res.TotalReturn, got.TotalReturn, 1e-9)
	assert.InDelta(t, res.MaxDrawdown, got.MaxDrawdown, 1e-9)
	assert.True(t, math.IsNaN(got.Sharpe), "NaN 夏普经 JSON 往返后必须仍可识别")
	require.Len(t, got.EquityCurve, 3)
	for i := range res.EquityCurve {
		assert.Equal(t, res.EquityCurve[i].Date, got.EquityCurve[i].Date)
		assert.InDelta(t, res.EquityCurve[i].Value, got.EquityCurve[i].Value, 1e-9)
	}
}

func TestRunPoolSiblingFailureIsolated(t *testing.T) {
	provider := &stubProvider{series: map[string]market.Series{
		"0700.HK": makeSeries("0700.HK", []float64{100, 101, 102, 103}),
		"9988.HK": makeSeries("9988.HK", []float64{80, 82, 81, 85}),
		// 1024.HK 缺失，拉取必然失败
	}}
	engine := NewEngine(provider)
	runner := NewRunner(engine, config.StrategyConfig{
		RSIPeriod: 14, RSIOversold: 30, RSIOverbought: 70,
		MACDFast: 12, MACDSlow: 26, MACDSignal: 9,
		BBPeriod: 20, BBStd: 2.0,
	}, 2)
	start, end := testRange()
	report, err := runner.RunPool(context.Background(), "bollinger", []string{"0700.HK", "1024.HK", "9988.HK"}, start, end, 1000000)
	require.NoError(t, err)
	assert.Len(t, report.Results, 2)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "1024.HK", report.Failures[0].Symbol)
	assert.Equal(t, 2, report.Summary.Symbols)
}

func TestSummarizeBestWorst(t *testing.T) {
	results := []Result{
		{Symbol: "A.HK", Metrics: Metrics{TotalReturn: 0.10, Sharpe: 1.0}},
		{Symbol: "B.HK", Metrics: Metrics{TotalReturn: -0.05, Sharpe: math.NaN()}},
		{Symbol: "C.HK", Metrics: Metrics{TotalReturn: 0.25, Sharpe: 2.0}},
	}
	s := Summarize("combined", results)
	assert.Equal(t, "C.HK", s.BestSymbol)
	assert.Equal(t, "B.HK", s.WorstSymbol)
	assert.InDelta(t, 0.1, s.MeanTotalReturn, 1e-12)
	assert.InDelta(t, 1.5, s.MeanSharpe, 1e-12, "NaN 样本不参与夏普均值")
}

func TestRankResultsOrder(t *testing.T) {
	rows := []Result{
		{Strategy: "a", Metrics: Metrics{TotalReturn: 0.1, Sharpe: math.NaN()}},
		{Strategy: "b", Metrics: Metrics{TotalReturn: 0.3, Sharpe: 1.2}},
		{Strategy: "c", Metrics: Metrics{TotalReturn: 0.1, Sharpe: 0.8}},
	}
	RankResults(rows)
	assert.Equal(t, "b", rows[0].Strategy)
	assert.Equal(t, "c", rows[1].Strategy, "同收益时有效夏普优先于 NaN")
	assert.Equal(t, "a", rows[2].Strategy)
}

func TestResultStoreRoundTrip(t *testing.T) {
	store, err := NewResultStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	run := NewRun("0700.HK", "macd", "2024-01-01", "2024-06-30", 1000000)
	require.NoError(t, store.InsertRun(ctx, run))

	res := Result{
		Strategy: "macd", Symbol: "0700.HK",
		Metrics: Metrics{TotalReturn: 0.08, MaxDrawdown: 0.12, Sharpe: math.NaN(), NumTrades: 6, WinRate: 0.5},
	}
	require.NoError(t, store.CompleteRun(ctx, run.ID, res, "/tmp/r.json"))

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusDone, got.Status)
	assert.InDelta(t, 0.08, got.TotalReturn, 1e-12)
	assert.True(t, math.IsNaN(got.Sharpe))
	assert.Equal(t, "/tmp/r.json", got.ResultPath)

	list, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, run.ID, list[0].ID)

	// 零方差 run 的 NaN 夏普不得让列表序列化失败
	data, err := json.Marshal(map[string]any{"runs": list})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sharpe_ratio":null`)
}

func TestRunJSONRoundTripNaNSharpe(t *testing.T) {
	run := NewRun("0700.HK", "combined", "2024-01-01", "2024-06-30", 1000000)
	run.Status = RunStatusDone
	run.Sharpe = math.NaN()
	run.TotalReturn = 0.0

	data, err := json.Marshal(run)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sharpe_ratio":null`)

	var back Run
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, math.IsNaN(back.Sharpe))
	assert.Equal(t, run.ID, back.ID)

	run.Sharpe = 1.25
	data, err = json.Marshal(run)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sharpe_ratio":1.25`)
}
