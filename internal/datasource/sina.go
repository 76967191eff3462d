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

// SinaSource 基于新浪财经港股日线接口，响应为对象数组，字段名随接口
// 版本在中英文之间摇摆，依赖统一清洗层的列名子串匹配。
type SinaSource struct {
	baseURL string
	client  *http.Client
}

func NewSinaSource(base string, timeout time.Duration) *SinaSource {
	if base == "" {
		base = "https://finance.sina.com.cn"
	}
	return &SinaSource{baseURL: base, client: newHTTPClient(timeout)}
}

func (s *SinaSource) Name() string { return "sina" }

func (s *SinaSource) Fetch(ctx context.Context, symbol string, start, end time.Time) (market.Series, error) {
	code, ok := strings.CutSuffix(symbol, ".HK")
	if !ok {
		return market.Series{}, &StructuralError{Source: s.Name(), Reason: fmt.Sprintf("不支持的代码格式: %s", symbol)}
	}
	for len(code) < 5 {
		code = "0" + code
	}
	u := fmt.Sprintf("%s/stock/hkstock/daily/%s.json", s.baseURL, code)
	body, err := httpGetJSON(ctx, s.client, s.Name(), u)
	if err != nil {
		return market.Series{}, err
	}
	rows := gjson.ParseBytes(body).Array()
	if len(rows) == 0 {
		return market.Series{}, &StructuralError{Source: s.Name(), Reason: "响应中没有任何记录"}
	}
	// 以首行的键集合作为列头，保持出现顺序稳定
	var headers []string
	rows[0].ForEach(func(key, _ gjson.Result) bool {
		headers = append(headers, key.String())
		return true
	})
	table := Table{Headers: headers}
	for _, row := range rows {
		cells := make([]string, len(headers))
		for i, h := range headers {
			cells[i] = row.Get(h).String()
		}
		table.Rows = append(table.Rows, cells)
	}
	return NormalizeTable(s.Name(), symbol, table, start, end)
}
