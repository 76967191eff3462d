package indicator

import "math"

// 未定义值统一用 NaN 表示：窗口未满的前 window-1 行不做任何外推。

// RollingMean 计算滚动算术平均，窗口未满处为 NaN；窗口内含 NaN 则结果为 NaN。
func RollingMean(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window <= 0 || window > len(values) {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		sum := 0.0
		valid := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				valid = false
				break
			}
			sum += values[j]
		}
		if valid {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// RollingStd 计算滚动样本标准差（分母 n-1，对齐 pandas 默认 ddof=1）。
func RollingStd(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window <= 1 || window > len(values) {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		sum := 0.0
		valid := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				valid = false
				break
			}
			sum += values[j]
		}
		if !valid {
			continue
		}
		mean := sum / float64(window)
		ss := 0.0
		for j := i - window + 1; j <= i; j++ {
			d := values[j] - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(window-1))
	}
	return out
}

// RollingMin 计算滚动最小值。
func RollingMin(values []float64, window int) []float64 {
	return rollingExtreme(values, window, func(a, b float64) bool { return b < a })
}

// RollingMax 计算滚动最大值。
func RollingMax(values []float64, window int) []float64 {
	return rollingExtreme(values, window, func(a, b float64) bool { return b > a })
}

func rollingExtreme(values []float64, window int, better func(cur, cand float64) bool) []float64 {
	out := nanSlice(len(values))
	if window <= 0 || window > len(values) {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		best := values[i-window+1]
		valid := !math.IsNaN(best)
		for j := i - window + 2; j <= i && valid; j++ {
			if math.IsNaN(values[j]) {
				valid = false
				break
			}
			if better(best, values[j]) {
				best = values[j]
			}
		}
		if valid {
			out[i] = best
		}
	}
	return out
}

// EMA 计算指数移动平均：以首个连续 window 个有效值的算术平均做种，
// 之后按 alpha = 2/(window+1) 递推；种子之前为 NaN。
// 输入开头允许存在 NaN 段（如 MACD 序列），会自动跳过。
func EMA(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window <= 0 {
		return out
	}
	first := 0
	for first < len(values) && math.IsNaN(values[first]) {
		first++
	}
	seedEnd := first + window - 1
	if seedEnd >= len(values) {
		return out
	}
	sum := 0.0
	for j := first; j <= seedEnd; j++ {
		if math.IsNaN(values[j]) {
			return out
		}
		sum += values[j]
	}
	alpha := 2.0 / (float64(window) + 1.0)
	out[seedEnd] = sum / float64(window)
	for i := seedEnd + 1; i < len(values); i++ {
		if math.IsNaN(values[i]) {
			return out
		}
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RSI 按简单滚动均值口径计算：RS = avg_gain/avg_loss（window 根涨跌幅），
// avg_loss 为 0 时 RSI 定义为 100。首个可计算位置为 index == window。
func RSI(closes []float64, window int) []float64 {
	out := nanSlice(len(closes))
	if window <= 0 || len(closes) <= window {
		return out
	}
	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}
	for i := window; i < len(closes); i++ {
		var gainSum, lossSum float64
		for j := i - window + 1; j <= i; j++ {
			gainSum += gains[j]
			lossSum += losses[j]
		}
		avgGain := gainSum / float64(window)
		avgLoss := lossSum / float64(window)
		if avgLoss == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// Defined 判断某行的指标值是否可用。
func Defined(v float64) bool { return !math.IsNaN(v) }

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func sub(a, b []float64) []float64 {
	out := nanSlice(len(a))
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		out[i] = a[i] - b[i]
	}
	return out
}
