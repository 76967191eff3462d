package backtest

import (
	"context"
	"fmt"
	"time"

	"hkquant/internal/indicator"
	"hkquant/internal/logger"
	"hkquant/internal/market"
	"hkquant/internal/strategy"
)

// SeriesProvider 是引擎对行情获取层的最小依赖。
type SeriesProvider interface {
	GetSeries(ctx context.Context, symbol string, start, end time.Time, useCache bool) (market.Series, error)
}

// Engine 把信号序列与价格序列合成为资金曲线与绩效指标。
// 引擎本身无共享可变状态，可被多个 goroutine 并发调用。
type Engine struct {
	provider SeriesProvider
	useCache bool
}

func NewEngine(provider SeriesProvider) *Engine {
	return &Engine{provider: provider, useCache: true}
}

// WithCache 控制是否走行情缓存，默认开启。
func (e *Engine) WithCache(useCache bool) *Engine {
	e.useCache = useCache
	return e
}

// Run 对单个 (策略, 品种) 组合执行一次回测。
// 行情不可用时返回错误（可用 errors.Is 判定 datasource.ErrDataUnavailable），
// 不会在空数据上继续模拟。
func (e *Engine) Run(ctx context.Context, strat strategy.Strategy, symbol string, start, end time.Time, capital float64) (Result, error) {
	if capital <= 0 {
		return Result{}, fmt.Errorf("初始资金必须为正数，当前 %v", capital)
	}
	series, err := e.provider.GetSeries(ctx, symbol, start, end, e.useCache)
	if err != nil {
		return Result{}, fmt.Errorf("回测 %s/%s 获取行情失败: %w", symbol, strat.Name(), err)
	}

	frame := indicator.Compute(series)
	signals := strat.GenerateSignals(frame)
	closes := series.Closes()
	sr := strategyReturns(closes, signals)
	equity := equityFromReturns(capital, sr)

	curve := make(EquityCurve, len(equity))
	for i, bar := range series.Bars {
		curve[i] = EquityPoint{Date: bar.Date, Value: equity[i]}
	}

	result := Result{
		Strategy:       strat.Name(),
		Symbol:         symbol,
		StartDate:      start.Format(market.DateLayout),
		EndDate:        end.Format(market.DateLayout),
		InitialCapital: capital,
		Synthetic:      series.Synthetic,
		EquityCurve:    curve,
		Metrics:        computeMetrics(equity, sr, signals, capital),
	}
	logger.Infof("回测完成: %s/%s 总收益 %.2f%% 最大回撤 %.2f%% 交易 %d 次",
		symbol, strat.Name(), result.TotalReturn*100, result.MaxDrawdown*100, result.NumTrades)
	return result, nil
}
