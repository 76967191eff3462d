package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// StockPool 保存股票代码与名称映射，以及被视为指数的代码集合。
type StockPool struct {
	Stocks  map[string]string `yaml:"stocks"`
	Indexes map[string]string `yaml:"indexes"`
}

// 默认港股池，对齐每日策略的覆盖范围。
var defaultPool = StockPool{
	Stocks: map[string]string{
		"9618.HK": "京东集团-SW",
		"9999.HK": "网易-S",
		"9988.HK": "阿里巴巴-SW",
		"0700.HK": "腾讯控股",
		"9626.HK": "哔哩哔哩-SW",
		"1024.HK": "快手-W",
		"3690.HK": "美团-W",
		"9888.HK": "百度集团-SW",
	},
	Indexes: map[string]string{
		"HSI.HK":   "恒生指数",
		"HST50.HK": "恒生科技指数",
	},
}

// LoadStockPool 读取股票池文件；文件不存在时回退到内置池。
func LoadStockPool(path string) (StockPool, error) {
	if strings.TrimSpace(path) == "" {
		return defaultPool.clone(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultPool.clone(), nil
		}
		return StockPool{}, fmt.Errorf("读取股票池文件失败 (%s): %w", path, err)
	}
	var pool StockPool
	if err := yaml.Unmarshal(raw, &pool); err != nil {
		return StockPool{}, fmt.Errorf("解析股票池文件失败 (%s): %w", path, err)
	}
	if len(pool.Stocks) == 0 {
		pool.Stocks = defaultPool.clone().Stocks
	}
	if len(pool.Indexes) == 0 {
		pool.Indexes = defaultPool.clone().Indexes
	}
	return pool, nil
}

func (p StockPool) clone() StockPool {
	out := StockPool{
		Stocks:  make(map[string]string, len(p.Stocks)),
		Indexes: make(map[string]string, len(p.Indexes)),
	}
	for k, v := range p.Stocks {
		out.Stocks[k] = v
	}
	for k, v := range p.Indexes {
		out.Indexes[k] = v
	}
	return out
}

// Symbols 返回排序后的股票代码列表。
func (p StockPool) Symbols() []string {
	out := make([]string, 0, len(p.Stocks))
	for code := range p.Stocks {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// IsIndex 判断代码是否为指数。
func (p StockPool) IsIndex(symbol string) bool {
	_, ok := p.Indexes[symbol]
	return ok
}

// Name 返回代码对应的名称，未知代码返回代码本身。
func (p StockPool) Name(symbol string) string {
	if n, ok := p.Stocks[symbol]; ok {
		return n
	}
	if n, ok := p.Indexes[symbol]; ok {
		return n
	}
	return symbol
}
