package market

import (
	"sort"
	"time"
)

// DateLayout 是系统内统一的日线日期格式。
const DateLayout = "2006-01-02"

// Bar 表示一根日线 K 线。
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Series 为按日期严格递增、日期唯一的日线序列。
// Synthetic 标记该序列是否来自随机游走兜底数据。
type Series struct {
	Symbol    string `json:"symbol"`
	Bars      []Bar  `json:"bars"`
	Synthetic bool   `json:"synthetic,omitempty"`
}

// Empty 判断序列是否为空。
func (s Series) Empty() bool { return len(s.Bars) == 0 }

// Len 返回序列长度。
func (s Series) Len() int { return len(s.Bars) }

// Closes 返回收盘价切片。
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Highs 返回最高价切片。
func (s Series) Highs() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.High
	}
	return out
}

// Lows 返回最低价切片。
func (s Series) Lows() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Low
	}
	return out
}

// Dates 返回日期切片。
func (s Series) Dates() []time.Time {
	out := make([]time.Time, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Date
	}
	return out
}

// Clip 返回 [start, end]（含端点）内的子序列。
func (s Series) Clip(start, end time.Time) Series {
	out := Series{Symbol: s.Symbol, Synthetic: s.Synthetic}
	for _, b := range s.Bars {
		if b.Date.Before(start) || b.Date.After(end) {
			continue
		}
		out.Bars = append(out.Bars, b)
	}
	return out
}

// Normalize 排序并按日期去重（保留后写入的记录），保证序列不变量。
func (s Series) Normalize() Series {
	if len(s.Bars) == 0 {
		return s
	}
	bars := make([]Bar, len(s.Bars))
	copy(bars, s.Bars)
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	dedup := bars[:0]
	for _, b := range bars {
		if len(dedup) > 0 && sameDay(dedup[len(dedup)-1].Date, b.Date) {
			dedup[len(dedup)-1] = b
			continue
		}
		dedup = append(dedup, b)
	}
	s.Bars = dedup
	return s
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
