package config

import (
	"fmt"
	"time"
)

// validate 对配置进行基础校验，参数错误直接启动失败。
func validate(c *Config) error {
	if err := c.Strategy.Validate(); err != nil {
		return err
	}
	if err := c.Backtest.validate(); err != nil {
		return err
	}
	if err := c.Data.validate(); err != nil {
		return err
	}
	return nil
}

// Validate 校验策略技术参数；策略构造时也会复用。
func (s StrategyConfig) Validate() error {
	if s.RSIPeriod <= 0 {
		return fmt.Errorf("strategy.rsi_period 必须为正数，当前 %d", s.RSIPeriod)
	}
	if s.RSIOverbought <= s.RSIOversold {
		return fmt.Errorf("strategy.rsi_overbought(%v) 必须大于 rsi_oversold(%v)", s.RSIOverbought, s.RSIOversold)
	}
	if s.MACDFast <= 0 || s.MACDSlow <= 0 || s.MACDSignal <= 0 {
		return fmt.Errorf("strategy.macd_* 周期必须为正数")
	}
	if s.MACDFast >= s.MACDSlow {
		return fmt.Errorf("strategy.macd_fast(%d) 必须小于 macd_slow(%d)", s.MACDFast, s.MACDSlow)
	}
	if s.BBPeriod <= 0 {
		return fmt.Errorf("strategy.bb_period 必须为正数，当前 %d", s.BBPeriod)
	}
	if s.BBStd <= 0 {
		return fmt.Errorf("strategy.bb_std 必须为正数，当前 %v", s.BBStd)
	}
	if s.KDJPeriod <= 0 || s.KDJSmoothK <= 0 || s.KDJSmoothD <= 0 {
		return fmt.Errorf("strategy.kdj_* 周期必须为正数")
	}
	return nil
}

func (b *BacktestConfig) validate() error {
	if _, err := time.Parse("2006-01-02", b.StartDate); err != nil {
		return fmt.Errorf("backtest.start_date 格式应为 YYYY-MM-DD: %w", err)
	}
	if b.EndDate != "" {
		if _, err := time.Parse("2006-01-02", b.EndDate); err != nil {
			return fmt.Errorf("backtest.end_date 格式应为 YYYY-MM-DD: %w", err)
		}
	}
	if b.InitialCapital <= 0 {
		return fmt.Errorf("backtest.initial_capital 必须为正数")
	}
	return nil
}

func (d *DataConfig) validate() error {
	known := map[string]bool{"yahoo": true, "eastmoney": true, "sina": true}
	for _, s := range d.Sources {
		if !known[s] {
			return fmt.Errorf("data.sources 含未知数据源: %s", s)
		}
	}
	return nil
}
