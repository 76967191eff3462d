package strategy

import (
	"fmt"
	"sort"

	"hkquant/internal/config"
	"hkquant/internal/indicator"
)

// 信号取值：+1 买入 / -1 卖出 / 0 持有。
const (
	SignalBuy  = 1
	SignalHold = 0
	SignalSell = -1
)

// Strategy 为信号生成器的统一契约：对帧中每个日期产出一个信号，
// 指标尚未定义的早期行固定输出 0。
type Strategy interface {
	Name() string
	GenerateSignals(f indicator.Frame) []int
}

// 策略 id 常量，供工厂与结果持久化使用。
const (
	IDBollinger = "bollinger"
	IDRSI       = "rsi"
	IDMACD      = "macd"
	IDCombined  = "combined"
	IDAI        = "ai_enhanced"
)

// New 按 id 构建策略，参数来自进程级技术参数配置。
// 非法参数在此处立即失败，不会拖到信号生成阶段。
func New(id string, cfg config.StrategyConfig) (Strategy, error) {
	switch id {
	case IDBollinger:
		return NewBollinger(cfg.BBPeriod, cfg.BBStd)
	case IDRSI:
		return NewRSI(cfg.RSIPeriod, cfg.RSIOverbought, cfg.RSIOversold)
	case IDMACD:
		return NewMACD(cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
	case IDCombined:
		return NewCombined(cfg)
	case IDAI:
		combined, err := NewCombined(cfg)
		if err != nil {
			return nil, err
		}
		return NewAIEnhanced(combined, nil), nil
	default:
		return nil, fmt.Errorf("不支持的策略类型: %s", id)
	}
}

// Available 返回工厂支持的策略 id 列表。
func Available() []string {
	ids := []string{IDBollinger, IDRSI, IDMACD, IDCombined, IDAI}
	sort.Strings(ids)
	return ids
}

func zeroSignals(n int) []int {
	return make([]int, n)
}
