package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// RouteAssetStat mirrors one row of route_asset_stats for a dataset version.
type RouteAssetStat struct {
	OriginChain      string
	DestinationChain string
	AssetSymbol      string
	AmountBin        string
	P25Minutes       decimal.Decimal
	P50Minutes       decimal.Decimal
	P75Minutes       decimal.Decimal
	SampleSize       int
}

// RouteCategoryStat mirrors one row of route_category_stats.
type RouteCategoryStat struct {
	RouteCategory string
	AssetSymbol   string
	AmountBin     string
	P25Minutes    decimal.Decimal
	P50Minutes    decimal.Decimal
	P75Minutes    decimal.Decimal
	SampleSize    int
	Description   string
}

// ChainClassification mirrors one row of chain_classifications.
type ChainClassification struct {
	ChainName  string
	ChainClass string
}

// RefreshRecord captures one refresh attempt for auditing.
type RefreshRecord struct {
	ID         int64
	Version    string
	Status     string
	Error      *string
	StartedAt  time.Time
	FinishedAt time.Time
}
