package backtest

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"hkquant/internal/config"
	"hkquant/internal/logger"
	"hkquant/internal/strategy"
)

// PairError 记录单个 (品种, 策略) 组合的失败，不影响兄弟组合。
type PairError struct {
	Symbol   string `json:"symbol"`
	Strategy string `json:"strategy"`
	Err      error  `json:"-"`
	Message  string `json:"error"`
}

// PortfolioSummary 汇总同一策略跨品种的表现。
type PortfolioSummary struct {
	Strategy             string  `json:"strategy"`
	Symbols              int     `json:"symbols"`
	MeanTotalReturn      float64 `json:"mean_total_return"`
	MeanAnnualizedReturn float64 `json:"mean_annualized_return"`
	MeanMaxDrawdown      float64 `json:"mean_max_drawdown"`
	MeanSharpe           float64 `json:"mean_sharpe"`
	MeanWinRate          float64 `json:"mean_win_rate"`
	TotalTrades          int     `json:"total_trades"`
	BestSymbol           string  `json:"best_symbol"`
	BestReturn           float64 `json:"best_return"`
	WorstSymbol          string  `json:"worst_symbol"`
	WorstReturn          float64 `json:"worst_return"`
}

// PoolReport 是一次组合回测的完整输出。
type PoolReport struct {
	Results  []Result         `json:"results"`
	Failures []PairError      `json:"failures,omitempty"`
	Summary  PortfolioSummary `json:"summary"`
}

// Comparison 是同一品种上多策略的排名表。
type Comparison struct {
	Symbol   string      `json:"symbol"`
	Rows     []Result    `json:"rows"`
	Failures []PairError `json:"failures,omitempty"`
}

// Runner 把引擎与进程配置绑定，承载多品种、多策略的并行编排。
type Runner struct {
	engine        *Engine
	strategyCfg   config.StrategyConfig
	maxConcurrent int
}

func NewRunner(engine *Engine, strategyCfg config.StrategyConfig, maxConcurrent int) *Runner {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Runner{engine: engine, strategyCfg: strategyCfg, maxConcurrent: maxConcurrent}
}

// RunPool 对一批品种并行执行同一策略的回测。
// 单个品种失败被捕获进 Failures，其余照常完成。
func (r *Runner) RunPool(ctx context.Context, strategyID string, symbols []string, start, end time.Time, capital float64) (PoolReport, error) {
	report := PoolReport{}
	var mu sync.Mutex

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(r.maxConcurrent)
	for _, symbol := range symbols {
		symbol := symbol
		group.Go(func() error {
			strat, err := strategy.New(strategyID, r.strategyCfg)
			if err != nil {
				return err
			}
			res, err := r.engine.Run(gctx, strat, symbol, start, end, capital)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Errorf("组合回测失败: %s/%s: %v", symbol, strategyID, err)
				report.Failures = append(report.Failures, PairError{Symbol: symbol, Strategy: strategyID, Err: err, Message: err.Error()})
				return nil
			}
			report.Results = append(report.Results, res)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return PoolReport{}, err
	}
	sort.Slice(report.Results, func(i, j int) bool {
		return report.Results[i].Symbol < report.Results[j].Symbol
	})
	report.Summary = Summarize(strategyID, report.Results)
	return report, nil
}

// CompareStrategies 在同一品种上并行跑多套策略并按表现排名。
func (r *Runner) CompareStrategies(ctx context.Context, symbol string, strategyIDs []string, start, end time.Time, capital float64) (Comparison, error) {
	cmp := Comparison{Symbol: symbol}
	var mu sync.Mutex

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(r.maxConcurrent)
	for _, id := range strategyIDs {
		id := id
		group.Go(func() error {
			strat, err := strategy.New(id, r.strategyCfg)
			if err != nil {
				return err
			}
			res, err := r.engine.Run(gctx, strat, symbol, start, end, capital)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Errorf("策略对比失败: %s/%s: %v", symbol, id, err)
				cmp.Failures = append(cmp.Failures, PairError{Symbol: symbol, Strategy: id, Err: err, Message: err.Error()})
				return nil
			}
			cmp.Rows = append(cmp.Rows, res)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return Comparison{}, err
	}
	RankResults(cmp.Rows)
	return cmp, nil
}

// RankResults 按总收益降序排名，收益相同时看夏普、再看回撤。
// NaN 夏普排在有效值之后。
func RankResults(rows []Result) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.TotalReturn != b.TotalReturn {
			return a.TotalReturn > b.TotalReturn
		}
		switch {
		case !isNaN(a.Sharpe) && isNaN(b.Sharpe):
			return true
		case isNaN(a.Sharpe) && !isNaN(b.Sharpe):
			return false
		case !isNaN(a.Sharpe) && a.Sharpe != b.Sharpe:
			return a.Sharpe > b.Sharpe
		}
		return a.MaxDrawdown < b.MaxDrawdown
	})
}

// Summarize 计算同一策略跨品种的指标均值与最好/最差品种。
// 夏普均值只对有效（非 NaN）的样本求均，全部退化时为 NaN。
func Summarize(strategyID string, results []Result) PortfolioSummary {
	s := PortfolioSummary{Strategy: strategyID, Symbols: len(results), MeanSharpe: nan()}
	if len(results) == 0 {
		return s
	}
	s.BestReturn = math.Inf(-1)
	s.WorstReturn = math.Inf(1)
	sharpeSum, sharpeN := 0.0, 0
	for _, r := range results {
		s.MeanTotalReturn += r.TotalReturn
		s.MeanAnnualizedReturn += r.AnnualizedReturn
		s.MeanMaxDrawdown += r.MaxDrawdown
		s.MeanWinRate += r.WinRate
		s.TotalTrades += r.NumTrades
		if !isNaN(r.Sharpe) {
			sharpeSum += r.Sharpe
			sharpeN++
		}
		if r.TotalReturn > s.BestReturn {
			s.BestReturn = r.TotalReturn
			s.BestSymbol = r.Symbol
		}
		if r.TotalReturn < s.WorstReturn {
			s.WorstReturn = r.TotalReturn
			s.WorstSymbol = r.Symbol
		}
	}
	n := float64(len(results))
	s.MeanTotalReturn /= n
	s.MeanAnnualizedReturn /= n
	s.MeanMaxDrawdown /= n
	s.MeanWinRate /= n
	if sharpeN > 0 {
		s.MeanSharpe = sharpeSum / float64(sharpeN)
	}
	return s
}
