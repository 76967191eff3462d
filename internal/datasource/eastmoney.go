package datasource

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"hkquant/internal/market"
)

// EastmoneySource 基于东方财富 push2his 历史 K 线接口（klt=101 为日线，fqt=1 前复权）。
type EastmoneySource struct {
	baseURL string
	client  *http.Client
}

func NewEastmoneySource(base string, timeout time.Duration) *EastmoneySource {
	if base == "" {
		base = "https://push2his.eastmoney.com"
	}
	return &EastmoneySource{baseURL: base, client: newHTTPClient(timeout)}
}

func (e *EastmoneySource) Name() string { return "eastmoney" }

// klines 字段顺序由 fields2 固定，转成带中文列头的表格走统一清洗。
var eastmoneyHeaders = []string{"日期", "开盘", "收盘", "最高", "最低", "成交量"}

func (e *EastmoneySource) Fetch(ctx context.Context, symbol string, start, end time.Time) (market.Series, error) {
	secid, err := eastmoneySecID(symbol)
	if err != nil {
		return market.Series{}, &StructuralError{Source: e.Name(), Reason: err.Error()}
	}
	u := fmt.Sprintf("%s/api/qt/stock/kline/get?secid=%s&klt=101&fqt=1&fields1=f1,f2,f3&fields2=f51,f52,f53,f54,f55,f56&beg=%s&end=%s",
		e.baseURL, secid, start.Format("20060102"), end.Format("20060102"))
	body, err := httpGetJSON(ctx, e.client, e.Name(), u)
	if err != nil {
		return market.Series{}, err
	}
	klines := gjson.GetBytes(body, "data.klines").Array()
	if len(klines) == 0 {
		return market.Series{}, &StructuralError{Source: e.Name(), Reason: "data.klines 为空"}
	}
	table := Table{Headers: eastmoneyHeaders}
	for _, line := range klines {
		cells := strings.Split(line.String(), ",")
		if len(cells) < len(eastmoneyHeaders) {
			continue
		}
		table.Rows = append(table.Rows, cells[:len(eastmoneyHeaders)])
	}
	return NormalizeTable(e.Name(), symbol, table, start, end)
}

// eastmoneySecID 把 0700.HK 形式的代码映射到东财的 secid（港股市场前缀 116）。
func eastmoneySecID(symbol string) (string, error) {
	code, ok := strings.CutSuffix(symbol, ".HK")
	if !ok {
		return "", fmt.Errorf("不支持的代码格式: %s", symbol)
	}
	for len(code) < 5 {
		code = "0" + code
	}
	return "116." + code, nil
}
