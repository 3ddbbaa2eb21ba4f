package dataset

import (
	"context"
	"fmt"

	"settlement-times/internal/storage"
)

// PostgresSource reads the latest dataset version the upstream pipeline
// published into the snapshot tables.
type PostgresSource struct {
	store storage.DatasetStore
}

// NewPostgresSource wires a dataset store into a Source.
func NewPostgresSource(store storage.DatasetStore) *PostgresSource {
	return &PostgresSource{store: store}
}

// Fetch assembles a payload from the rows of the newest published version.
func (s *PostgresSource) Fetch(ctx context.Context) (*Payload, error) {
	version, publishedAt, err := s.store.LatestDatasetVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest dataset version: %w", err)
	}

	routeRows, err := s.store.ListRouteAssetStats(ctx, version)
	if err != nil {
		return nil, fmt.Errorf("route asset stats for %s: %w", version, err)
	}
	categoryRows, err := s.store.ListRouteCategoryStats(ctx, version)
	if err != nil {
		return nil, fmt.Errorf("route category stats for %s: %w", version, err)
	}
	chainRows, err := s.store.ListChainClassifications(ctx, version)
	if err != nil {
		return nil, fmt.Errorf("chain classifications for %s: %w", version, err)
	}

	payload := &Payload{
		RouteAssets: make([]RouteAssetRecord, 0, len(routeRows)),
		Categories:  make([]CategoryRecord, 0, len(categoryRows)),
		Chains:      make(map[string]string, len(chainRows)),
		Version:     version,
		LastUpdated: publishedAt.UTC(),
	}

	for _, row := range routeRows {
		payload.RouteAssets = append(payload.RouteAssets, RouteAssetRecord{
			OriginChain:      row.OriginChain,
			DestinationChain: row.DestinationChain,
			AssetSymbol:      row.AssetSymbol,
			Bin:              row.AmountBin,
			P25Minutes:       row.P25Minutes,
			P50Minutes:       row.P50Minutes,
			P75Minutes:       row.P75Minutes,
			SampleSize:       row.SampleSize,
		})
	}
	for _, row := range categoryRows {
		payload.Categories = append(payload.Categories, CategoryRecord{
			Category:    row.RouteCategory,
			AssetSymbol: row.AssetSymbol,
			Bin:         row.AmountBin,
			P25Minutes:  row.P25Minutes,
			P50Minutes:  row.P50Minutes,
			P75Minutes:  row.P75Minutes,
			SampleSize:  row.SampleSize,
			Description: row.Description,
		})
	}
	for _, row := range chainRows {
		payload.Chains[row.ChainName] = row.ChainClass
	}

	return payload, nil
}
