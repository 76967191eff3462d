package backtest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"hkquant/internal/market"
)

const (
	reportChartWidth  = "1400px"
	reportChartHeight = "520px"
)

// ComparisonText 生成策略对比的文本报告，格式沿用逐行对齐的表格。
func ComparisonText(cmp Comparison) string {
	var b strings.Builder
	fmt.Fprintf(&b, "策略对比报告: %s\n", cmp.Symbol)
	fmt.Fprintf(&b, "生成时间: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	b.WriteString(strings.Repeat("=", 92) + "\n")
	fmt.Fprintf(&b, "%-14s %12s %12s %12s %10s %8s %8s\n",
		"策略", "总收益", "年化收益", "最大回撤", "夏普", "交易数", "胜率")
	b.WriteString(strings.Repeat("-", 92) + "\n")
	for _, r := range cmp.Rows {
		sharpe := "N/A"
		if !isNaN(r.Sharpe) {
			sharpe = fmt.Sprintf("%.2f", r.Sharpe)
		}
		fmt.Fprintf(&b, "%-14s %11.2f%% %11.2f%% %11.2f%% %10s %8d %7.1f%%\n",
			r.Strategy, r.TotalReturn*100, r.AnnualizedReturn*100, r.MaxDrawdown*100,
			sharpe, r.NumTrades, r.WinRate*100)
	}
	for _, f := range cmp.Failures {
		fmt.Fprintf(&b, "%-14s 失败: %s\n", f.Strategy, f.Message)
	}
	b.WriteString(strings.Repeat("=", 92) + "\n")
	return b.String()
}

// SaveComparisonText 把文本报告写到 dir 下。
func SaveComparisonText(dir string, cmp Comparison) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_comparison_%s.txt", sanitizeSymbol(cmp.Symbol), time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, []byte(ComparisonText(cmp)), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// RenderComparisonHTML 生成资金曲线与回撤曲线的 HTML 报告。
func RenderComparisonHTML(dir string, cmp Comparison) (string, error) {
	if len(cmp.Rows) == 0 {
		return "", fmt.Errorf("没有可渲染的回测结果: %s", cmp.Symbol)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(buildEquityChart(cmp), buildDrawdownChart(cmp))

	path := filepath.Join(dir, fmt.Sprintf("%s_comparison_%s.html", sanitizeSymbol(cmp.Symbol), time.Now().Format("20060102_150405")))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		return "", err
	}
	return path, nil
}

func buildEquityChart(cmp Comparison) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  types.ThemeWesteros,
			Width:  reportChartWidth,
			Height: reportChartHeight,
		}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("%s 资金曲线", cmp.Symbol), Left: "left"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
	)
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	line.SetXAxis(curveDates(cmp.Rows[0].EquityCurve))
	for _, r := range cmp.Rows {
		data := make([]opts.LineData, len(r.EquityCurve))
		for i, p := range r.EquityCurve {
			data[i] = opts.LineData{Value: p.Value}
		}
		line.AddSeries(r.Strategy, data)
	}
	return line
}

func buildDrawdownChart(cmp Comparison) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  types.ThemeWesteros,
			Width:  reportChartWidth,
			Height: reportChartHeight,
		}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("%s 回撤曲线", cmp.Symbol), Left: "left"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	line.SetXAxis(curveDates(cmp.Rows[0].EquityCurve))
	for _, r := range cmp.Rows {
		data := make([]opts.LineData, len(r.EquityCurve))
		peak := 0.0
		for i, p := range r.EquityCurve {
			if p.Value > peak {
				peak = p.Value
			}
			dd := 0.0
			if peak > 0 {
				dd = (peak - p.Value) / peak * 100
			}
			data[i] = opts.LineData{Value: dd}
		}
		line.AddSeries(r.Strategy, data)
	}
	return line
}

func curveDates(curve EquityCurve) []string {
	x := make([]string, len(curve))
	for i, p := range curve {
		x[i] = p.Date.Format(market.DateLayout)
	}
	return x
}
