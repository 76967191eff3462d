package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNormalizeSortsAndDedups(t *testing.T) {
	s := Series{Symbol: "0700.HK", Bars: []Bar{
		{Date: day(2024, 1, 3), Close: 3},
		{Date: day(2024, 1, 1), Close: 1},
		{Date: day(2024, 1, 2), Close: 2},
		{Date: day(2024, 1, 2), Close: 22}, // 同日重复，后写覆盖
	}}
	got := s.Normalize()
	require.Equal(t, 3, got.Len())
	assert.Equal(t, 1.0, got.Bars[0].Close)
	assert.Equal(t, 22.0, got.Bars[1].Close)
	assert.Equal(t, 3.0, got.Bars[2].Close)
	for i := 1; i < got.Len(); i++ {
		assert.True(t, got.Bars[i-1].Date.Before(got.Bars[i].Date), "日期必须严格递增")
	}
}

func TestClipInclusive(t *testing.T) {
	s := Series{Symbol: "0700.HK", Bars: []Bar{
		{Date: day(2024, 1, 1), Close: 1},
		{Date: day(2024, 1, 2), Close: 2},
		{Date: day(2024, 1, 3), Close: 3},
		{Date: day(2024, 1, 4), Close: 4},
	}, Synthetic: true}
	got := s.Clip(day(2024, 1, 2), day(2024, 1, 3))
	require.Equal(t, 2, got.Len())
	assert.Equal(t, 2.0, got.Bars[0].Close)
	assert.Equal(t, 3.0, got.Bars[1].Close)
	assert.True(t, got.Synthetic, "Clip 必须保留来源标记")
}

func TestAccessors(t *testing.T) {
	s := Series{Bars: []Bar{
		{Date: day(2024, 1, 1), Open: 1, High: 3, Low: 0.5, Close: 2, Volume: 10},
		{Date: day(2024, 1, 2), Open: 2, High: 4, Low: 1.5, Close: 3, Volume: 20},
	}}
	assert.Equal(t, []float64{2, 3}, s.Closes())
	assert.Equal(t, []float64{3, 4}, s.Highs())
	assert.Equal(t, []float64{0.5, 1.5}, s.Lows())
	assert.Equal(t, []time.Time{day(2024, 1, 1), day(2024, 1, 2)}, s.Dates())
	assert.False(t, s.Empty())
	assert.True(t, Series{}.Empty())
}
