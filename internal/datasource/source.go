package datasource

import (
	"context"
	"time"

	"hkquant/internal/market"
)

// Source 统一不同上游行情提供方的拉取行为。
// 拉取失败通过 error 表达：TransientError 可在同源重试，
// StructuralError 触发换源，两者都不应让调用方拿到半成品序列。
type Source interface {
	Fetch(ctx context.Context, symbol string, start, end time.Time) (market.Series, error)
	Name() string
}

// FundamentalsSource 为可选能力：提供基本面数据的上游实现该接口。
type FundamentalsSource interface {
	FetchFundamentals(ctx context.Context, symbol string) (FundamentalRecord, error)
}
