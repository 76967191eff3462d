package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hkquant/internal/backtest"
	"hkquant/internal/config"
	"hkquant/internal/datasource"
	"hkquant/internal/market"
)

// captureSource 记录最近一次拉取的区间并返回简单行情。
type captureSource struct {
	fetches    int
	start, end time.Time
}

func (s *captureSource) Name() string { return "yahoo" }

func (s *captureSource) Fetch(ctx context.Context, symbol string, start, end time.Time) (market.Series, error) {
	s.fetches++
	s.start, s.end = start, end
	series := market.Series{Symbol: symbol}
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		series.Bars = append(series.Bars, market.Bar{
			Date: day, Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000,
		})
	}
	return series, nil
}

func newTestScheduler(t *testing.T, src datasource.Source, cfg config.ScheduleConfig) *Scheduler {
	t.Helper()
	cache, err := datasource.NewCache(t.TempDir())
	require.NoError(t, err)
	pool := config.StockPool{Stocks: map[string]string{"0700.HK": "腾讯控股"}}
	loader, err := datasource.NewLoader(datasource.LoaderConfig{
		Cache:           cache,
		Sources:         []datasource.Source{src},
		Pool:            pool,
		MaxRetries:      1,
		RetryDelay:      time.Millisecond,
		RequestTimeout:  time.Second,
		RateLimitPerMin: 6000,
	})
	require.NoError(t, err)
	engine := backtest.NewEngine(loader)
	runner := backtest.NewRunner(engine, config.StrategyConfig{
		RSIPeriod: 14, RSIOversold: 30, RSIOverbought: 70,
		MACDFast: 12, MACDSlow: 26, MACDSignal: 9,
		BBPeriod: 20, BBStd: 2.0, KDJPeriod: 9, KDJSmoothK: 3, KDJSmoothD: 3,
	}, 2)
	return New(context.Background(), loader, runner, pool, cfg, config.BacktestConfig{InitialCapital: 1000000})
}

func TestRegisterAll(t *testing.T) {
	sched := newTestScheduler(t, &captureSource{}, config.ScheduleConfig{
		DataUpdate:  "30 9 * * 1-5",
		StrategyRun: "45 9 * * 1-5",
	})
	require.NoError(t, sched.RegisterAll())
}

func TestRegisterAllRejectsBadExpression(t *testing.T) {
	sched := newTestScheduler(t, &captureSource{}, config.ScheduleConfig{
		DataUpdate:  "每天早上",
		StrategyRun: "45 9 * * 1-5",
	})
	assert.Error(t, sched.RegisterAll())
}

func TestRunDataUpdateNow(t *testing.T) {
	src := &captureSource{}
	sched := newTestScheduler(t, src, config.ScheduleConfig{
		DataUpdate:  "30 9 * * 1-5",
		StrategyRun: "45 9 * * 1-5",
	})

	sched.RunDataUpdateNow()
	require.Equal(t, 1, src.fetches, "池内每个标的强制拉取一次")

	wantEnd := datasource.LatestTradingDay(time.Now())
	assert.Equal(t, wantEnd, src.end)
	assert.Equal(t, datasource.PreviousTradingDay(wantEnd, refreshWindowDays), src.start)
}
