package engine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Confidence is the coarse label reflecting which tier produced an estimate
// and how direct the match was.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// DataSource names the fallback tier an estimate came from.
type DataSource string

const (
	SourceExactRoute          DataSource = "exact_route_with_asset"
	SourceRouteDifferentAsset DataSource = "route_with_different_asset"
	SourceCategoryAverage     DataSource = "route_category_average"
)

// RouteStats holds the percentile durations observed for one lookup key.
// Percentile minutes pass through unrounded from the dataset.
type RouteStats struct {
	P25        decimal.Decimal
	P50        decimal.Decimal
	P75        decimal.Decimal
	SampleSize int
}

// CategoryStats is a route-category average with its human description.
type CategoryStats struct {
	RouteStats
	Description string
}

// RouteAssetKey addresses the route+asset table.
type RouteAssetKey struct {
	Origin      string
	Destination string
	Asset       string
	Bin         AmountBin
}

// CategoryKey addresses the route-category average table.
type CategoryKey struct {
	Category RouteCategory
	Asset    string
	Bin      AmountBin
}

// Estimate is a resolved settlement-time estimate. Display formatting is the
// caller's concern; the engine only carries the raw percentile values.
type Estimate struct {
	P25Minutes  decimal.Decimal
	P75Minutes  decimal.Decimal
	Confidence  Confidence
	DataSource  DataSource
	AssetSymbol string
	SampleSize  int
	Note        string
	LastUpdated time.Time
}

// assetPriority pins the substitution order used by tiers 2 and 3. Any asset
// the dataset carries beyond this list sorts after it, lexically, so
// resolution never depends on map iteration order.
var assetPriority = []string{"USDC", "WETH", "USDT", "cbBTC", "xPufETH"}

func assetRank(symbol string) int {
	for i, s := range assetPriority {
		if s == symbol {
			return i
		}
	}
	return len(assetPriority)
}

func sortAssets(symbols []string) {
	sort.Slice(symbols, func(i, j int) bool {
		ri, rj := assetRank(symbols[i]), assetRank(symbols[j])
		if ri != rj {
			return ri < rj
		}
		return symbols[i] < symbols[j]
	})
}
