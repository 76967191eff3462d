package datasource

import (
	"strconv"
	"strings"
	"time"

	"hkquant/internal/market"
)

// Table 是上游返回的原始表格视图：一行列头 + 若干行字符串单元格。
// 各适配器把各自的响应整理成 Table 后交给 NormalizeTable 统一清洗。
type Table struct {
	Headers []string
	Rows    [][]string
}

// 列名按大小写不敏感的子串匹配归入标准字段，兼容中英文列头。
var headerAliases = []struct {
	canon string
	hints []string
}{
	{"date", []string{"日期", "date", "time"}},
	{"open", []string{"开", "open"}},
	{"close", []string{"收", "close"}},
	{"high", []string{"高", "high"}},
	{"low", []string{"低", "low"}},
	{"volume", []string{"量", "volume"}},
}

func canonicalColumn(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	for _, alias := range headerAliases {
		for _, hint := range alias.hints {
			if strings.Contains(h, hint) {
				return alias.canon
			}
		}
	}
	return ""
}

// NormalizeTable 把原始表格清洗成标准 OHLCV 序列：
//   - 列头按子串映射（任何含 "开"/"open" 的列 → open，依此类推）；
//   - 缺失列补齐：volume → 0，open/high/low → close（close 也缺时为 0）；
//   - 日期不可解析的行直接丢弃；
//   - 结果过滤到 [start, end]（含端点）并排序去重。
//
// 找不到任何日期列视为结构性故障。
func NormalizeTable(source, symbol string, t Table, start, end time.Time) (market.Series, error) {
	cols := make(map[string]int)
	for i, h := range t.Headers {
		canon := canonicalColumn(h)
		if canon == "" {
			continue
		}
		if _, exists := cols[canon]; !exists {
			cols[canon] = i
		}
	}
	dateIdx, ok := cols["date"]
	if !ok {
		// 退而使用第一列作为日期列
		if len(t.Headers) == 0 {
			return market.Series{}, &StructuralError{Source: source, Reason: "响应中没有可用的日期列"}
		}
		dateIdx = 0
	}

	series := market.Series{Symbol: symbol}
	for _, row := range t.Rows {
		if dateIdx >= len(row) {
			continue
		}
		date, err := ParseDate(row[dateIdx])
		if err != nil {
			continue
		}
		bar := market.Bar{Date: date}
		bar.Close = cellFloat(row, cols, "close", 0)
		bar.Open = cellFloat(row, cols, "open", bar.Close)
		bar.High = cellFloat(row, cols, "high", bar.Close)
		bar.Low = cellFloat(row, cols, "low", bar.Close)
		bar.Volume = cellFloat(row, cols, "volume", 0)
		series.Bars = append(series.Bars, bar)
	}
	if series.Empty() {
		return market.Series{}, &StructuralError{Source: source, Reason: "清洗后无任何有效行"}
	}
	return series.Normalize().Clip(start, end), nil
}

func cellFloat(row []string, cols map[string]int, name string, fallback float64) float64 {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return fallback
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
	if err != nil {
		return fallback
	}
	return v
}

var dateLayouts = []string{
	market.DateLayout,
	"2006/01/02",
	"20060102",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate 解析常见的日期字符串格式，统一到 UTC 零点。
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
