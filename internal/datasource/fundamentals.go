package datasource

import (
	"hash/fnv"
	"math"
	"strings"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Provenance 标记基本面数据来源。
type Provenance string

const (
	ProvenanceCache Provenance = "cache"
	ProvenanceAPI   Provenance = "api"
	ProvenanceMock  Provenance = "mock"
)

// FundamentalRecord 为单个 symbol 的基本面快照。
type FundamentalRecord struct {
	PERatio       float64    `json:"pe_ratio"`
	PBRatio       float64    `json:"pb_ratio"`
	DividendYield float64    `json:"dividend_yield"`
	MarketCap     float64    `json:"market_cap"`
	RevenueGrowth float64    `json:"revenue_growth"`
	ProfitGrowth  float64    `json:"profit_growth"`
	Source        Provenance `json:"_source"`
}

// 已知重点标的的兜底估值，避免演示环境里全池被随机数污染。
var knownFundamentals = map[string]FundamentalRecord{
	"9988": {PERatio: 18.5, PBRatio: 2.1, DividendYield: 0.008, MarketCap: 2.1e12, RevenueGrowth: 0.09, ProfitGrowth: 0.04},
	"0700": {PERatio: 20.2, PBRatio: 3.5, DividendYield: 0.006, MarketCap: 3.5e12, RevenueGrowth: 0.07, ProfitGrowth: 0.05},
}

// MockFundamentals 生成兜底基本面：已知标的返回固定值，
// 其余按正态分布采样（以 symbol 为种子，保证同一标的稳定）。
func MockFundamentals(symbol string) FundamentalRecord {
	for key, rec := range knownFundamentals {
		if strings.Contains(symbol, key) {
			rec.Source = ProvenanceMock
			return rec
		}
	}
	src := rand.NewSource(symbolSeed(symbol))
	normal := func(mu, sigma float64) float64 {
		return distuv.Normal{Mu: mu, Sigma: sigma, Src: src}.Rand()
	}
	return FundamentalRecord{
		PERatio:       normal(15, 5),
		PBRatio:       normal(2, 0.8),
		DividendYield: math.Max(0, normal(0.01, 0.005)),
		MarketCap:     normal(5e11, 2e11),
		RevenueGrowth: clamp(normal(0.05, 0.08), -0.1, 0.2),
		ProfitGrowth:  clamp(normal(0.03, 0.1), -0.15, 0.25),
		Source:        ProvenanceMock,
	}
}

func symbolSeed(symbol string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	return h.Sum64()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
