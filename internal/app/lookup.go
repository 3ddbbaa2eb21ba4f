package app

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"settlement-times/internal/adapter"
	"settlement-times/internal/dataset"
	"settlement-times/internal/engine"
)

// Lookup loads the dataset once and resolves a single estimate.
func (a *App) Lookup(ctx context.Context, opts LookupOptions) error {
	snap, err := a.buildSnapshot(ctx)
	if err != nil {
		return err
	}

	origin := normalizeChain(opts.Origin)
	destination := normalizeChain(opts.Destination)
	asset := normalizeAsset(opts.Asset)

	est, found, err := engine.ResolveAgainst(snap, origin, destination, asset, opts.AmountUSD)
	if err != nil {
		return err
	}
	if !found {
		fmt.Fprintf(os.Stdout, "no estimate for %s→%s (amount %.2f USD)\n", origin, destination, opts.AmountUSD)
		return nil
	}

	bin, _ := engine.BinForAmount(opts.AmountUSD)

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Route\tAsset\tBin\tRange\tConfidence\tSource\tSamples\tUpdated")
	fmt.Fprintf(
		writer,
		"%s→%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
		origin,
		destination,
		est.AssetSymbol,
		bin,
		adapter.DisplayRange(est),
		est.Confidence,
		est.DataSource,
		est.SampleSize,
		est.LastUpdated.UTC().Format(time.RFC3339),
	)
	if est.Note != "" {
		fmt.Fprintf(writer, "note\t%s\n", est.Note)
	}
	writer.Flush()
	return nil
}

func (a *App) buildSnapshot(ctx context.Context) (*engine.Snapshot, error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	if closeStore != nil {
		defer closeStore()
	}

	source, err := a.newSource(store)
	if err != nil {
		return nil, err
	}

	payload, err := source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset: %w", err)
	}
	return dataset.NewLoader(a.Logger).Build(payload)
}

// normalizeChain accepts either a dataset chain name or a numeric chain id.
func normalizeChain(v string) string {
	if id, err := strconv.ParseUint(v, 10, 64); err == nil {
		if name, ok := adapter.ChainName(id); ok {
			return name
		}
	}
	return strings.ToLower(strings.TrimSpace(v))
}

// normalizeAsset accepts either an asset symbol or a token contract address.
func normalizeAsset(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
		return adapter.AssetSymbol(v)
	}
	return v
}
