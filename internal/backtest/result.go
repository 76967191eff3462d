package backtest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"hkquant/internal/market"
)

// EquityPoint 是资金曲线上的一个点。
type EquityPoint struct {
	Date  time.Time
	Value float64
}

// EquityCurve 按日期升序保存资金曲线。
// JSON 形式为保持日期顺序的 {"2024-01-02": 1000000, ...} 对象。
type EquityCurve []EquityPoint

func (c EquityCurve) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(p.Date.Format(market.DateLayout)))
		buf.WriteByte(':')
		v, err := json.Marshal(p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c *EquityCurve) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("equity_curve 必须是 JSON 对象")
	}
	out := EquityCurve{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		date, err := time.ParseInLocation(market.DateLayout, key, time.UTC)
		if err != nil {
			return fmt.Errorf("equity_curve 日期非法: %q", key)
		}
		var value float64
		if err := dec.Decode(&value); err != nil {
			return err
		}
		out = append(out, EquityPoint{Date: date, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = out
	return nil
}

// Metrics 为一次回测的绩效指标。夏普比率在收益零方差时为 NaN，
// 序列化为 null，消费方据此识别退化场景而不是误读为 0。
type Metrics struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	Sharpe           float64 `json:"sharpe_ratio"`
	NumTrades        int     `json:"num_trades"`
	WinRate          float64 `json:"win_rate"`
}

// Result 是一次回测的完整产物，构建后不再修改。
type Result struct {
	Strategy       string      `json:"strategy"`
	Symbol         string      `json:"symbol"`
	StartDate      string      `json:"start_date"`
	EndDate        string      `json:"end_date"`
	InitialCapital float64     `json:"initial_capital"`
	Synthetic      bool        `json:"synthetic_data,omitempty"`
	EquityCurve    EquityCurve `json:"equity_curve"`
	Metrics
}

// resultJSON 包装 Result，把 NaN 夏普写成 null（encoding/json 拒绝 NaN）。
type resultJSON struct {
	Strategy       string      `json:"strategy"`
	Symbol         string      `json:"symbol"`
	StartDate      string      `json:"start_date"`
	EndDate        string      `json:"end_date"`
	InitialCapital float64     `json:"initial_capital"`
	Synthetic      bool        `json:"synthetic_data,omitempty"`
	EquityCurve    EquityCurve `json:"equity_curve"`

	TotalReturn      float64  `json:"total_return"`
	AnnualizedReturn float64  `json:"annualized_return"`
	MaxDrawdown      float64  `json:"max_drawdown"`
	Sharpe           *float64 `json:"sharpe_ratio"`
	NumTrades        int      `json:"num_trades"`
	WinRate          float64  `json:"win_rate"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		Strategy:         r.Strategy,
		Symbol:           r.Symbol,
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		InitialCapital:   r.InitialCapital,
		Synthetic:        r.Synthetic,
		EquityCurve:      r.EquityCurve,
		TotalReturn:      r.TotalReturn,
		AnnualizedReturn: r.AnnualizedReturn,
		MaxDrawdown:      r.MaxDrawdown,
		NumTrades:        r.NumTrades,
		WinRate:          r.WinRate,
	}
	if !isNaN(r.Sharpe) {
		v := r.Sharpe
		out.Sharpe = &v
	}
	return json.Marshal(out)
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var in resultJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	r.Strategy = in.Strategy
	r.Symbol = in.Symbol
	r.StartDate = in.StartDate
	r.EndDate = in.EndDate
	r.InitialCapital = in.InitialCapital
	r.Synthetic = in.Synthetic
	r.EquityCurve = in.EquityCurve
	r.TotalReturn = in.TotalReturn
	r.AnnualizedReturn = in.AnnualizedReturn
	r.MaxDrawdown = in.MaxDrawdown
	r.NumTrades = in.NumTrades
	r.WinRate = in.WinRate
	if in.Sharpe != nil {
		r.Sharpe = *in.Sharpe
	} else {
		r.Sharpe = nan()
	}
	return nil
}

// FinalEquity 返回曲线末值，空曲线返回初始资金。
func (r Result) FinalEquity() float64 {
	if len(r.EquityCurve) == 0 {
		return r.InitialCapital
	}
	return r.EquityCurve[len(r.EquityCurve)-1].Value
}

// SaveResult 把结果写到 dir 下，文件名携带品种、策略与时间戳避免覆盖。
func SaveResult(dir string, r Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%s_%s.json", sanitizeSymbol(r.Symbol), r.Strategy, time.Now().Format("20060102_150405"))
	path := filepath.Join(dir, name)
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// LoadResult 读回 SaveResult 写出的文件。
func LoadResult(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return Result{}, fmt.Errorf("解析回测结果 %s 失败: %w", path, err)
	}
	return r, nil
}

func sanitizeSymbol(symbol string) string {
	out := []byte(symbol)
	for i, c := range out {
		if c == '.' || c == '/' {
			out[i] = '_'
		}
	}
	return string(out)
}
