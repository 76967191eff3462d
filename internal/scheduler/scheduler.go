package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"hkquant/internal/backtest"
	"hkquant/internal/config"
	"hkquant/internal/datasource"
	"hkquant/internal/logger"
	"hkquant/internal/strategy"
)

// refreshWindowDays 是每日刷新回看的自然日跨度，覆盖 60 日均线的暖机需求。
const refreshWindowDays = 120

// Scheduler 驱动每日的数据更新与策略执行两类定时任务。
type Scheduler struct {
	cron   *cron.Cron
	loader *datasource.Loader
	runner *backtest.Runner
	pool   config.StockPool
	cfg    config.ScheduleConfig
	bt     config.BacktestConfig
	ctx    context.Context
}

func New(ctx context.Context, loader *datasource.Loader, runner *backtest.Runner, pool config.StockPool, cfg config.ScheduleConfig, bt config.BacktestConfig) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		loader: loader,
		runner: runner,
		pool:   pool,
		cfg:    cfg,
		bt:     bt,
		ctx:    ctx,
	}
}

// RegisterAll 注册数据更新与策略执行任务。
func (s *Scheduler) RegisterAll() error {
	if _, err := s.cron.AddFunc(s.cfg.DataUpdate, s.dataUpdateTask); err != nil {
		return fmt.Errorf("注册数据更新任务失败: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.StrategyRun, s.strategyRunTask); err != nil {
		return fmt.Errorf("注册策略执行任务失败: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Infof("定时任务已启动: 数据更新 %q, 策略执行 %q", s.cfg.DataUpdate, s.cfg.StrategyRun)
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	logger.Infof("定时任务已停止")
}

// RunDataUpdateNow 立即执行一次数据更新（手动触发用）。
func (s *Scheduler) RunDataUpdateNow() {
	s.dataUpdateTask()
}

// dataUpdateTask 刷新股票池近一段时间的行情缓存，绕过旧缓存强制拉取。
func (s *Scheduler) dataUpdateTask() {
	logger.Infof("开始每日数据更新")
	end := datasource.LatestTradingDay(time.Now())
	start := datasource.PreviousTradingDay(end, refreshWindowDays)
	got := s.loader.GetMultiple(s.ctx, s.pool.Symbols(), start, end, false)
	logger.Infof("数据更新完成: %d/%d 个标的", len(got), len(s.pool.Symbols()))
}

// strategyRunTask 在股票池上跑一轮组合策略并记录汇总表现。
func (s *Scheduler) strategyRunTask() {
	logger.Infof("开始每日策略执行")
	end := datasource.LatestTradingDay(time.Now())
	start := datasource.PreviousTradingDay(end, refreshWindowDays)
	report, err := s.runner.RunPool(s.ctx, strategy.IDCombined, s.pool.Symbols(), start, end, s.bt.InitialCapital)
	if err != nil {
		logger.Errorf("策略执行失败: %v", err)
		return
	}
	for _, f := range report.Failures {
		logger.Warnf("策略执行跳过 %s: %s", f.Symbol, f.Message)
	}
	logger.Infof("策略执行完成: %d 个标的, 平均收益 %.2f%%, 最佳 %s (%.2f%%)",
		report.Summary.Symbols, report.Summary.MeanTotalReturn*100,
		report.Summary.BestSymbol, report.Summary.BestReturn*100)
}
