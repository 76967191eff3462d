package indicator

import (
	"hkquant/internal/market"
)

// 各指标的固定窗口，对齐日线技术分析的常用口径。
const (
	WindowMA5  = 5
	WindowMA10 = 10
	WindowMA20 = 20
	WindowMA60 = 60

	WindowEMAFast   = 12
	WindowEMASlow   = 26
	WindowMACDSig   = 9
	WindowRSI       = 14
	WindowBollinger = 20
	BollingerStd    = 2.0
	WindowKDJ       = 9
	WindowKDJSmooth = 3
)

// Frame 是在 OHLCV 序列上派生的技术指标帧。
// 所有派生列与原序列逐行对齐；窗口未满处为 NaN。
// 每个值只依赖所在行及其之前的记录，不存在未来函数。
type Frame struct {
	Series market.Series

	MA5  []float64
	MA10 []float64
	MA20 []float64
	MA60 []float64

	EMA12     []float64
	EMA26     []float64
	MACD      []float64
	Signal    []float64
	Histogram []float64

	RSI []float64

	SMA20     []float64
	Stdev     []float64
	UpperBand []float64
	LowerBand []float64

	RSV []float64
	K   []float64
	D   []float64
	J   []float64
}

// Len 返回帧的行数。
func (f Frame) Len() int { return f.Series.Len() }

// Empty 判断帧是否为空。
func (f Frame) Empty() bool { return f.Series.Empty() }

// Compute 对序列做纯函数式的指标派生，输入为空时返回空帧。
func Compute(series market.Series) Frame {
	if series.Empty() {
		return Frame{}
	}
	closes := series.Closes()
	highs := series.Highs()
	lows := series.Lows()

	f := Frame{Series: series}
	f.MA5 = RollingMean(closes, WindowMA5)
	f.MA10 = RollingMean(closes, WindowMA10)
	f.MA20 = RollingMean(closes, WindowMA20)
	f.MA60 = RollingMean(closes, WindowMA60)

	f.EMA12 = EMA(closes, WindowEMAFast)
	f.EMA26 = EMA(closes, WindowEMASlow)
	f.MACD = sub(f.EMA12, f.EMA26)
	f.Signal = EMA(f.MACD, WindowMACDSig)
	f.Histogram = sub(f.MACD, f.Signal)

	f.RSI = RSI(closes, WindowRSI)

	f.SMA20 = RollingMean(closes, WindowBollinger)
	f.Stdev = RollingStd(closes, WindowBollinger)
	f.UpperBand = nanSlice(len(closes))
	f.LowerBand = nanSlice(len(closes))
	for i := range closes {
		if Defined(f.SMA20[i]) && Defined(f.Stdev[i]) {
			f.UpperBand[i] = f.SMA20[i] + BollingerStd*f.Stdev[i]
			f.LowerBand[i] = f.SMA20[i] - BollingerStd*f.Stdev[i]
		}
	}

	lowMin := RollingMin(lows, WindowKDJ)
	highMax := RollingMax(highs, WindowKDJ)
	f.RSV = nanSlice(len(closes))
	for i := range closes {
		if !Defined(lowMin[i]) || !Defined(highMax[i]) {
			continue
		}
		span := highMax[i] - lowMin[i]
		if span == 0 {
			continue // 区间无波动，RSV 不可定义
		}
		f.RSV[i] = (closes[i] - lowMin[i]) / span * 100
	}
	f.K = RollingMean(f.RSV, WindowKDJSmooth)
	f.D = RollingMean(f.K, WindowKDJSmooth)
	f.J = nanSlice(len(closes))
	for i := range closes {
		if Defined(f.K[i]) && Defined(f.D[i]) {
			f.J[i] = 3*f.K[i] - 2*f.D[i]
		}
	}
	return f
}

// Closes 返回底层收盘价，便于策略直接读取。
func (f Frame) Closes() []float64 { return f.Series.Closes() }
