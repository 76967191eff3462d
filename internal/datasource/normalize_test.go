package datasource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dateRange() (time.Time, time.Time) {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
}

func TestNormalizeChineseHeaders(t *testing.T) {
	start, end := dateRange()
	table := Table{
		Headers: []string{"日期", "开盘", "收盘", "最高", "最低", "成交量"},
		Rows: [][]string{
			{"2024-03-01", "100", "102", "103", "99", "12345"},
			{"2024-03-04", "102", "101", "104", "100", "23456"},
		},
	}
	series, err := NormalizeTable("eastmoney", "0700.HK", table, start, end)
	require.NoError(t, err)
	require.Equal(t, 2, series.Len())
	assert.Equal(t, 100.0, series.Bars[0].Open)
	assert.Equal(t, 102.0, series.Bars[0].Close)
	assert.Equal(t, 103.0, series.Bars[0].High)
	assert.Equal(t, 99.0, series.Bars[0].Low)
	assert.Equal(t, 12345.0, series.Bars[0].Volume)
}

func TestNormalizeMissingColumnsSynthesized(t *testing.T) {
	start, end := dateRange()
	table := Table{
		Headers: []string{"date", "close"},
		Rows: [][]string{
			{"2024-05-06", "88.5"},
		},
	}
	series, err := NormalizeTable("sina", "9988.HK", table, start, end)
	require.NoError(t, err)
	require.Equal(t, 1, series.Len())
	bar := series.Bars[0]
	assert.Equal(t, 88.5, bar.Close)
	assert.Equal(t, 88.5, bar.Open, "缺失 open 用 close 补齐")
	assert.Equal(t, 88.5, bar.High)
	assert.Equal(t, 88.5, bar.Low)
	assert.Equal(t, 0.0, bar.Volume, "缺失 volume 补 0")
}

func TestNormalizeDiscardsUnparseableDates(t *testing.T) {
	start, end := dateRange()
	table := Table{
		Headers: []string{"date", "close"},
		Rows: [][]string{
			{"not-a-date", "1"},
			{"2024-02-01", "2"},
			{"", "3"},
		},
	}
	series, err := NormalizeTable("yahoo", "0700.HK", table, start, end)
	require.NoError(t, err)
	assert.Equal(t, 1, series.Len())
}

func TestNormalizeClipsToRange(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	table := Table{
		Headers: []string{"date", "close"},
		Rows: [][]string{
			{"2024-02-28", "1"},
			{"2024-03-01", "2"},
			{"2024-03-31", "3"},
			{"2024-04-01", "4"},
		},
	}
	series, err := NormalizeTable("yahoo", "0700.HK", table, start, end)
	require.NoError(t, err)
	require.Equal(t, 2, series.Len(), "区间为闭区间")
	assert.Equal(t, 2.0, series.Bars[0].Close)
	assert.Equal(t, 3.0, series.Bars[1].Close)
}

func TestNormalizeAllRowsInvalidIsStructural(t *testing.T) {
	start, end := dateRange()
	table := Table{
		Headers: []string{"date", "close"},
		Rows:    [][]string{{"bogus", "1"}},
	}
	_, err := NormalizeTable("yahoo", "0700.HK", table, start, end)
	require.Error(t, err)
	var structural *StructuralError
	assert.ErrorAs(t, err, &structural)
	assert.False(t, IsTransient(err))
}

func TestParseDateLayouts(t *testing.T) {
	for _, raw := range []string{"2024-06-03", "2024/06/03", "20240603", "2024-06-03 15:04:05"} {
		d, err := ParseDate(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), d)
	}
	_, err := ParseDate("昨天")
	assert.Error(t, err)
}
