package datasource

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"hkquant/internal/market"
)

// YahooSource 基于 Yahoo Finance v8 chart 接口，港股代码可直接使用（0700.HK）。
type YahooSource struct {
	baseURL string
	client  *http.Client
}

func NewYahooSource(base string, timeout time.Duration) *YahooSource {
	if base == "" {
		base = "https://query1.finance.yahoo.com"
	}
	return &YahooSource{baseURL: base, client: newHTTPClient(timeout)}
}

func (y *YahooSource) Name() string { return "yahoo" }

func (y *YahooSource) Fetch(ctx context.Context, symbol string, start, end time.Time) (market.Series, error) {
	if symbol == "" {
		return market.Series{}, &StructuralError{Source: y.Name(), Reason: "symbol 不能为空"}
	}
	// period2 取 end 次日零点，保证 end 当天的 K 线被包含
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&period1=%d&period2=%d",
		y.baseURL, url.PathEscape(symbol), start.Unix(), end.AddDate(0, 0, 1).Unix())
	body, err := httpGetJSON(ctx, y.client, y.Name(), u)
	if err != nil {
		return market.Series{}, err
	}
	root := gjson.ParseBytes(body)
	if apiErr := root.Get("chart.error.description"); apiErr.Exists() && apiErr.String() != "" {
		return market.Series{}, &StructuralError{Source: y.Name(), Reason: apiErr.String()}
	}
	result := root.Get("chart.result.0")
	timestamps := result.Get("timestamp").Array()
	if len(timestamps) == 0 {
		return market.Series{}, &StructuralError{Source: y.Name(), Reason: "响应中没有任何 K 线"}
	}
	quote := result.Get("indicators.quote.0")
	opens := quote.Get("open").Array()
	highs := quote.Get("high").Array()
	lows := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	volumes := quote.Get("volume").Array()

	series := market.Series{Symbol: symbol}
	for i, ts := range timestamps {
		c := arrFloat(closes, i)
		if c == 0 && arrFloat(opens, i) == 0 && arrFloat(highs, i) == 0 && arrFloat(lows, i) == 0 {
			continue // 停牌/假日的空洞
		}
		day := time.Unix(ts.Int(), 0).UTC()
		series.Bars = append(series.Bars, market.Bar{
			Date:   time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
			Open:   pickOr(arrFloat(opens, i), c),
			High:   pickOr(arrFloat(highs, i), c),
			Low:    pickOr(arrFloat(lows, i), c),
			Close:  c,
			Volume: arrFloat(volumes, i),
		})
	}
	if series.Empty() {
		return market.Series{}, &StructuralError{Source: y.Name(), Reason: "清洗后无任何有效行"}
	}
	return series.Normalize().Clip(start, end), nil
}

// FetchFundamentals 通过 quoteSummary 接口拉取估值与成长性指标。
func (y *YahooSource) FetchFundamentals(ctx context.Context, symbol string) (FundamentalRecord, error) {
	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=summaryDetail,defaultKeyStatistics,financialData",
		y.baseURL, url.PathEscape(symbol))
	body, err := httpGetJSON(ctx, y.client, y.Name(), u)
	if err != nil {
		return FundamentalRecord{}, err
	}
	root := gjson.ParseBytes(body).Get("quoteSummary.result.0")
	if !root.Exists() {
		return FundamentalRecord{}, &StructuralError{Source: y.Name(), Reason: "quoteSummary 无结果"}
	}
	rec := FundamentalRecord{
		PERatio:       root.Get("summaryDetail.trailingPE.raw").Float(),
		PBRatio:       root.Get("defaultKeyStatistics.priceToBook.raw").Float(),
		DividendYield: root.Get("summaryDetail.dividendYield.raw").Float(),
		MarketCap:     root.Get("summaryDetail.marketCap.raw").Float(),
		RevenueGrowth: root.Get("financialData.revenueGrowth.raw").Float(),
		ProfitGrowth:  root.Get("financialData.earningsGrowth.raw").Float(),
		Source:        ProvenanceAPI,
	}
	if rec.PERatio == 0 && rec.PBRatio == 0 && rec.MarketCap == 0 {
		return FundamentalRecord{}, &StructuralError{Source: y.Name(), Reason: "quoteSummary 关键字段缺失"}
	}
	return rec, nil
}

func arrFloat(arr []gjson.Result, i int) float64 {
	if i >= len(arr) {
		return 0
	}
	return arr[i].Float()
}

func pickOr(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}
