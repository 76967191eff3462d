package datasource

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"hkquant/internal/logger"
	"hkquant/internal/market"
)

// Cache 把行情序列与基本面记录落盘：
// 行情为 CSV（日期做首列），按 (symbol, start, end) 精确寻址；
// 基本面为每个 symbol 一个 JSON 文件。
// 读取不做过期判断，是否绕过缓存由调用方决定。
type Cache struct {
	dir string
}

func NewCache(dir string) (*Cache, error) {
	if dir == "" {
		return nil, fmt.Errorf("缓存目录不能为空")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) seriesPath(symbol string, start, end time.Time) string {
	name := fmt.Sprintf("%s_%s_%s.csv",
		strings.ReplaceAll(symbol, ".", "_"),
		start.Format(market.DateLayout),
		end.Format(market.DateLayout))
	return filepath.Join(c.dir, name)
}

func (c *Cache) fundamentalsPath(symbol string) string {
	return filepath.Join(c.dir, strings.ReplaceAll(symbol, ".", "_")+"_fundamentals.json")
}

var csvHeader = []string{"Date", "Open", "High", "Low", "Close", "Volume"}

// SaveSeries 覆盖写入序列；同 key 的并发写采用后写覆盖语义。
func (c *Cache) SaveSeries(symbol string, start, end time.Time, s market.Series) error {
	if s.Empty() {
		return fmt.Errorf("拒绝缓存空序列: %s", symbol)
	}
	path := c.seriesPath(symbol, start, end)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return err
	}
	for _, b := range s.Bars {
		row := []string{
			b.Date.Format(market.DateLayout),
			formatFloat(b.Open),
			formatFloat(b.High),
			formatFloat(b.Low),
			formatFloat(b.Close),
			formatFloat(b.Volume),
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadSeries 读取精确 key 的缓存；不存在或损坏返回 false。
func (c *Cache) LoadSeries(symbol string, start, end time.Time) (market.Series, bool) {
	path := c.seriesPath(symbol, start, end)
	f, err := os.Open(path)
	if err != nil {
		return market.Series{}, false
	}
	defer f.Close()
	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil || len(records) < 2 {
		logger.Warnf("读取缓存失败，将重新获取数据: %s", path)
		return market.Series{}, false
	}
	series := market.Series{Symbol: symbol}
	for _, row := range records[1:] {
		if len(row) < 6 {
			continue
		}
		date, err := ParseDate(row[0])
		if err != nil {
			continue
		}
		series.Bars = append(series.Bars, market.Bar{
			Date:   date,
			Open:   parseFloat(row[1]),
			High:   parseFloat(row[2]),
			Low:    parseFloat(row[3]),
			Close:  parseFloat(row[4]),
			Volume: parseFloat(row[5]),
		})
	}
	if series.Empty() {
		return market.Series{}, false
	}
	return series, true
}

// SaveFundamentals 写入基本面 JSON 缓存。
func (c *Cache) SaveFundamentals(symbol string, rec FundamentalRecord) error {
	raw, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.fundamentalsPath(symbol), raw, 0o644)
}

// LoadFundamentals 读取基本面缓存；命中后来源标记改写为 cache。
func (c *Cache) LoadFundamentals(symbol string) (FundamentalRecord, bool) {
	raw, err := os.ReadFile(c.fundamentalsPath(symbol))
	if err != nil {
		return FundamentalRecord{}, false
	}
	var rec FundamentalRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		logger.Warnf("读取基本面缓存失败: %s", c.fundamentalsPath(symbol))
		return FundamentalRecord{}, false
	}
	rec.Source = ProvenanceCache
	return rec, true
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v
}
