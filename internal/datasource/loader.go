package datasource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"hkquant/internal/config"
	"hkquant/internal/logger"
	"hkquant/internal/market"
)

// LoaderConfig 配置行情获取层。
type LoaderConfig struct {
	Cache           *Cache
	Sources         []Source
	Pool            config.StockPool
	MaxRetries      int
	RetryDelay      time.Duration
	RequestTimeout  time.Duration
	RateLimitPerMin int
}

// Loader 负责协调数据源链、重试、缓存与兜底数据，
// 对下游暴露统一的 OHLCV 序列契约。
type Loader struct {
	cache      *Cache
	sources    []Source
	pool       config.StockPool
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
	limiter    *rate.Limiter

	// 测试注入点：默认 time.Sleep（可感知 ctx 取消）
	sleep func(ctx context.Context, d time.Duration) error
}

func NewLoader(cfg LoaderConfig) (*Loader, error) {
	if cfg.Cache == nil {
		return nil, fmt.Errorf("cache 不能为空")
	}
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("至少需要一个数据源")
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	perMin := cfg.RateLimitPerMin
	if perMin <= 0 {
		perMin = 60
	}
	return &Loader{
		cache:      cfg.Cache,
		sources:    cfg.Sources,
		pool:       cfg.Pool,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		timeout:    timeout,
		limiter:    rate.NewLimiter(rate.Limit(float64(perMin)/60.0), perMin),
		sleep:      sleepCtx,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// GetSeries 获取指定区间的日线序列。
// 顺序：精确 key 缓存 → 数据源链（源内重试暂时性故障，结构性故障立即换源）
// → 指数随机游走兜底 → ErrDataUnavailable。
func (l *Loader) GetSeries(ctx context.Context, symbol string, start, end time.Time, useCache bool) (market.Series, error) {
	if symbol == "" {
		return market.Series{}, fmt.Errorf("symbol 不能为空")
	}
	if end.Before(start) {
		return market.Series{}, fmt.Errorf("日期区间非法: %s > %s", start.Format(market.DateLayout), end.Format(market.DateLayout))
	}
	if useCache {
		if series, ok := l.cache.LoadSeries(symbol, start, end); ok {
			logger.Infof("从缓存加载数据: %s [%s, %s]", symbol, start.Format(market.DateLayout), end.Format(market.DateLayout))
			return series, nil
		}
	}

	series, err := l.fetchFromChain(ctx, symbol, start, end)
	if err == nil && !series.Empty() {
		if saveErr := l.cache.SaveSeries(symbol, start, end, series); saveErr != nil {
			logger.Warnf("保存缓存失败: %s: %v", symbol, saveErr)
		}
		return series, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return market.Series{}, ctxErr
	}

	if l.pool.IsIndex(symbol) {
		logger.Warnf("所有数据源失败，使用模拟指数数据: %s", symbol)
		synth := SyntheticIndexSeries(symbol, start, end)
		if !synth.Empty() {
			return synth, nil
		}
	}
	return market.Series{}, fmt.Errorf("%w: %s", ErrDataUnavailable, symbol)
}

// fetchFromChain 按固定优先级依次尝试各数据源。
func (l *Loader) fetchFromChain(ctx context.Context, symbol string, start, end time.Time) (market.Series, error) {
	var lastErr error
	for _, src := range l.sources {
		series, err := l.fetchWithRetry(ctx, src, symbol, start, end)
		if err == nil && !series.Empty() {
			return series, nil
		}
		if err != nil {
			lastErr = err
			logger.Warnf("数据源 %s 失败，切换下一个: %v", src.Name(), err)
		}
		if ctx.Err() != nil {
			return market.Series{}, ctx.Err()
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("数据源链为空")
	}
	return market.Series{}, lastErr
}

// fetchWithRetry 在单个数据源内对暂时性故障重试，固定间隔。
func (l *Loader) fetchWithRetry(ctx context.Context, src Source, symbol string, start, end time.Time) (market.Series, error) {
	var lastErr error
	for attempt := 1; attempt <= l.maxRetries; attempt++ {
		if err := l.limiter.Wait(ctx); err != nil {
			return market.Series{}, err
		}
		attemptCtx, cancel := context.WithTimeout(ctx, l.timeout)
		series, err := src.Fetch(attemptCtx, symbol, start, end)
		cancel()
		if err == nil {
			return series, nil
		}
		lastErr = err
		if !IsTransient(err) {
			// 结构性故障：同源重试无意义
			return market.Series{}, err
		}
		logger.Warnf("%s 请求超时或连接错误 (尝试 %d/%d): %v", src.Name(), attempt, l.maxRetries, err)
		if attempt < l.maxRetries {
			if err := l.sleep(ctx, l.retryDelay); err != nil {
				return market.Series{}, err
			}
		}
	}
	return market.Series{}, lastErr
}

// GetMultiple 批量拉取多个标的；失败的标的跳过不中断整体。
func (l *Loader) GetMultiple(ctx context.Context, symbols []string, start, end time.Time, useCache bool) map[string]market.Series {
	out := make(map[string]market.Series, len(symbols))
	for _, code := range symbols {
		series, err := l.GetSeries(ctx, code, start, end, useCache)
		if err != nil {
			logger.Errorf("获取股票数据失败: %s: %v", code, err)
			continue
		}
		out[code] = series
	}
	return out
}

// GetFundamentals 获取基本面数据：缓存 → 支持基本面的源链（带重试）→ 模拟兜底。
// 兜底总是可用，因此该方法只在 ctx 取消时返回错误。
func (l *Loader) GetFundamentals(ctx context.Context, symbol string, useCache bool) (FundamentalRecord, error) {
	if useCache {
		if rec, ok := l.cache.LoadFundamentals(symbol); ok {
			logger.Infof("从缓存加载基本面数据: %s", symbol)
			return rec, nil
		}
	}
	for _, src := range l.sources {
		fs, ok := src.(FundamentalsSource)
		if !ok {
			continue
		}
		rec, err := l.fundamentalsWithRetry(ctx, src.Name(), fs, symbol)
		if err == nil {
			if saveErr := l.cache.SaveFundamentals(symbol, rec); saveErr != nil {
				logger.Warnf("保存基本面缓存失败: %s: %v", symbol, saveErr)
			}
			return rec, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if ctx.Err() != nil {
				return FundamentalRecord{}, ctx.Err()
			}
		}
	}
	// 模拟数据不落缓存，避免伪装成真实数据并阻断后续重试
	logger.Warnf("无法获取真实基本面数据，使用模拟数据: %s", symbol)
	return MockFundamentals(symbol), nil
}

func (l *Loader) fundamentalsWithRetry(ctx context.Context, name string, src FundamentalsSource, symbol string) (FundamentalRecord, error) {
	var lastErr error
	for attempt := 1; attempt <= l.maxRetries; attempt++ {
		if err := l.limiter.Wait(ctx); err != nil {
			return FundamentalRecord{}, err
		}
		attemptCtx, cancel := context.WithTimeout(ctx, l.timeout)
		rec, err := src.FetchFundamentals(attemptCtx, symbol)
		cancel()
		if err == nil {
			return rec, nil
		}
		lastErr = err
		if !IsTransient(err) {
			return FundamentalRecord{}, err
		}
		logger.Warnf("%s 基本面请求超时 (尝试 %d/%d): %v", name, attempt, l.maxRetries, err)
		if attempt < l.maxRetries {
			if err := l.sleep(ctx, l.retryDelay); err != nil {
				return FundamentalRecord{}, err
			}
		}
	}
	return FundamentalRecord{}, lastErr
}

// LatestTradingDay 返回最近一个交易日（周末回退到周五）。
func LatestTradingDay(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch day.Weekday() {
	case time.Saturday:
		return day.AddDate(0, 0, -1)
	case time.Sunday:
		return day.AddDate(0, 0, -2)
	default:
		return day
	}
}

// PreviousTradingDay 简化实现：直接往前推 N 个自然日。
func PreviousTradingDay(date time.Time, days int) time.Time {
	return date.AddDate(0, 0, -days)
}
