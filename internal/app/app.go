package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"hkquant/internal/ai"
	"hkquant/internal/analysis"
	"hkquant/internal/backtest"
	"hkquant/internal/config"
	"hkquant/internal/datasource"
	"hkquant/internal/logger"
	"hkquant/internal/market"
	"hkquant/internal/scheduler"
	"hkquant/internal/strategy"
	httpapi "hkquant/internal/transport/http"
)

// App 负责应用级编排：配置→数据链路→回测引擎→对外服务。
type App struct {
	cfg     *config.Config
	pool    config.StockPool
	loader  *datasource.Loader
	engine  *backtest.Engine
	runner  *backtest.Runner
	results *backtest.ResultStore
	aiCli   *ai.Client
}

// NewApp 按配置手工装配全部依赖（不启动任何服务）。
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	pool, err := config.LoadStockPool(cfg.Pool.File)
	if err != nil {
		return nil, err
	}
	cache, err := datasource.NewCache(cfg.Data.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("初始化行情缓存失败: %w", err)
	}
	sources, err := buildSources(cfg.Data)
	if err != nil {
		return nil, err
	}
	loader, err := datasource.NewLoader(datasource.LoaderConfig{
		Cache:           cache,
		Sources:         sources,
		Pool:            pool,
		MaxRetries:      cfg.Data.MaxRetries,
		RetryDelay:      time.Duration(cfg.Data.RetryDelaySeconds) * time.Second,
		RequestTimeout:  time.Duration(cfg.Data.TimeoutSeconds) * time.Second,
		RateLimitPerMin: cfg.Data.RateLimitPerMin,
	})
	if err != nil {
		return nil, err
	}

	engine := backtest.NewEngine(loader)
	runner := backtest.NewRunner(engine, cfg.Strategy, cfg.Backtest.MaxConcurrent)

	var results *backtest.ResultStore
	if cfg.Backtest.ResultsDir != "" {
		results, err = backtest.NewResultStore(cfg.Backtest.ResultsDir)
		if err != nil {
			return nil, fmt.Errorf("初始化结果索引失败: %w", err)
		}
	}

	var aiCli *ai.Client
	if cfg.AI.Enabled {
		aiCli = ai.NewClient(cfg.AI)
		if !aiCli.Enabled() {
			logger.Warnf("AI 已启用但未配置 API Key，点评功能不可用")
		}
	}

	return &App{
		cfg:     cfg,
		pool:    pool,
		loader:  loader,
		engine:  engine,
		runner:  runner,
		results: results,
		aiCli:   aiCli,
	}, nil
}

func buildSources(cfg config.DataConfig) ([]datasource.Source, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	out := make([]datasource.Source, 0, len(cfg.Sources))
	for _, name := range cfg.Sources {
		switch name {
		case "yahoo":
			out = append(out, datasource.NewYahooSource("", timeout))
		case "eastmoney":
			out = append(out, datasource.NewEastmoneySource("", timeout))
		case "sina":
			out = append(out, datasource.NewSinaSource("", timeout))
		default:
			return nil, fmt.Errorf("未知数据源: %s", name)
		}
	}
	return out, nil
}

// Close 释放持久化资源。
func (a *App) Close() error {
	if a.results != nil {
		return a.results.Close()
	}
	return nil
}

// Loader 暴露行情获取层（供回放与排查工具使用）。
func (a *App) Loader() *datasource.Loader { return a.loader }

// RunComparison 执行一次多策略对比并落盘文本与 HTML 报告。
func (a *App) RunComparison(ctx context.Context, symbol string, strategyIDs []string) error {
	start, end, err := a.window()
	if err != nil {
		return err
	}
	if len(strategyIDs) == 0 {
		strategyIDs = strategy.Available()
	}
	cmp, err := a.runner.CompareStrategies(ctx, symbol, strategyIDs, start, end, a.cfg.Backtest.InitialCapital)
	if err != nil {
		return err
	}
	fmt.Print(backtest.ComparisonText(cmp))
	if dir := a.cfg.Backtest.ReportsDir; dir != "" {
		if path, err := backtest.SaveComparisonText(dir, cmp); err == nil {
			logger.Infof("文本报告已保存: %s", path)
		} else {
			logger.Warnf("保存文本报告失败: %v", err)
		}
		if path, err := backtest.RenderComparisonHTML(dir, cmp); err == nil {
			logger.Infof("图表报告已保存: %s", path)
		} else {
			logger.Warnf("保存图表报告失败: %v", err)
		}
	}
	if dir := a.cfg.Backtest.ResultsDir; dir != "" {
		for _, r := range cmp.Rows {
			if _, err := backtest.SaveResult(dir, r); err != nil {
				logger.Warnf("保存回测结果失败: %s/%s: %v", r.Symbol, r.Strategy, err)
			}
		}
	}
	return nil
}

// RunPortfolio 对股票池执行单策略组合回测并打印汇总。
func (a *App) RunPortfolio(ctx context.Context, strategyID string) error {
	start, end, err := a.window()
	if err != nil {
		return err
	}
	report, err := a.runner.RunPool(ctx, strategyID, a.pool.Symbols(), start, end, a.cfg.Backtest.InitialCapital)
	if err != nil {
		return err
	}
	s := report.Summary
	logger.Infof("组合回测完成: 策略 %s, %d 个标的", s.Strategy, s.Symbols)
	logger.Infof("平均收益 %.2f%%, 平均回撤 %.2f%%, 最佳 %s (%.2f%%), 最差 %s (%.2f%%)",
		s.MeanTotalReturn*100, s.MeanMaxDrawdown*100,
		s.BestSymbol, s.BestReturn*100, s.WorstSymbol, s.WorstReturn*100)
	for _, f := range report.Failures {
		logger.Warnf("失败: %s: %s", f.Symbol, f.Message)
	}
	return nil
}

// Serve 启动 HTTP 服务，阻塞直到 ctx 取消。
func (a *App) Serve(ctx context.Context) error {
	server, err := httpapi.NewServer(httpapi.Config{
		Addr:    a.cfg.App.HTTPAddr,
		Engine:  a.engine,
		Results: a.results,
		AppCfg:  *a.cfg,
		Pool:    a.pool,
	})
	if err != nil {
		return err
	}
	logger.Infof("HTTP 服务启动: %s", a.cfg.App.HTTPAddr)
	return server.Start(ctx)
}

// RunDataUpdate 立即刷新一次股票池行情缓存（-update 模式）。
func (a *App) RunDataUpdate(ctx context.Context) error {
	sched := scheduler.New(ctx, a.loader, a.runner, a.pool, a.cfg.Schedule, a.cfg.Backtest)
	sched.RunDataUpdateNow()
	return ctx.Err()
}

// Schedule 启动定时任务（可与 HTTP 服务并行）。
func (a *App) Schedule(ctx context.Context, withHTTP bool) error {
	sched := scheduler.New(ctx, a.loader, a.runner, a.pool, a.cfg.Schedule, a.cfg.Backtest)
	if err := sched.RegisterAll(); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if !withHTTP {
		<-ctx.Done()
		return nil
	}
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error { return a.Serve(gctx) })
	group.Go(func() error {
		<-gctx.Done()
		return nil
	})
	return group.Wait()
}

func (a *App) window() (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(market.DateLayout, a.cfg.Backtest.StartDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date 非法: %w", err)
	}
	end := datasource.LatestTradingDay(time.Now())
	if a.cfg.Backtest.EndDate != "" {
		end, err = time.ParseInLocation(market.DateLayout, a.cfg.Backtest.EndDate, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("end_date 非法: %w", err)
		}
	}
	return start, end, nil
}

func analyzeAndRank(seriesBySymbol map[string]market.Series, cfg config.StrategyConfig) []analysis.Report {
	return analysis.RankPool(seriesBySymbol, analysis.Settings{
		RSIPeriod:     cfg.RSIPeriod,
		RSIOversold:   cfg.RSIOversold,
		RSIOverbought: cfg.RSIOverbought,
	})
}

// AnalyzePool 生成池内快评，AI 可用时附加模型点评。
func (a *App) AnalyzePool(ctx context.Context) error {
	start, end, err := a.window()
	if err != nil {
		return err
	}
	seriesBySymbol := a.loader.GetMultiple(ctx, a.pool.Symbols(), start, end, true)
	reports := analyzeAndRank(seriesBySymbol, a.cfg.Strategy)
	for _, rep := range reports {
		fmt.Printf("%s (%s) 评分 %.0f | 趋势 %s | RSI %.1f (%s) | MACD %s\n",
			rep.Symbol, a.pool.Name(rep.Symbol), rep.Score, rep.TrendState, rep.RSI, rep.RSIZone, rep.MACDState)
		if a.aiCli.Enabled() {
			comment, err := a.aiCli.Analyze(ctx, rep.Symbol, rep.Summary())
			if err != nil {
				logger.Warnf("AI 点评失败，仅保留技术面: %s: %v", rep.Symbol, err)
				continue
			}
			fmt.Printf("  AI 点评: %s\n", comment)
		}
	}
	return nil
}
